// Package location models the physical stores orders are fulfilled from.
package location

import (
	"context"
	"math"
	"sort"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/pizza-cart/internal/domain/delivery"
)

// ErrNotFound is returned when a store location does not exist.
var ErrNotFound = errors.New("store location not found")

const earthRadiusKm = 6371.0

// Location is a store that prepares orders.
type Location struct {
	ID               string
	Name             string
	Address          string
	Lat              float64
	Lng              float64
	DeliveryTypes    delivery.Set
	DeliveryRadiusKm float64
	DeliveryFee      decimal.Decimal
	// TaxRate is a fraction, e.g. 0.08 for 8%.
	TaxRate decimal.Decimal
}

// Nearby is a location annotated with its distance from a point.
type Nearby struct {
	Location
	DistanceKm           float64
	WithinDeliveryRadius bool
}

// DistanceKm returns the great-circle distance between two coordinates.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLng := rad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// SortByDistance annotates locations with their distance from (lat, lng) and
// returns them nearest first.
func SortByDistance(locations []Location, lat, lng float64) []Nearby {
	out := make([]Nearby, len(locations))
	for i, l := range locations {
		d := DistanceKm(lat, lng, l.Lat, l.Lng)
		out[i] = Nearby{
			Location:             l,
			DistanceKm:           d,
			WithinDeliveryRadius: l.DeliveryTypes.Has(delivery.Delivery) && d <= l.DeliveryRadiusKm,
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	return out
}

// Repository provides read access to store locations.
type Repository interface {
	List(ctx context.Context) ([]Location, error)
	GetByID(ctx context.Context, id string) (*Location, error)
}
