package api

import (
	"github.com/go-faster/jx"

	"github.com/xenking/pizza-cart/internal/domain/location"
)

// EncodeNearby writes the store locator result.
func EncodeNearby(e *jx.Encoder, list []location.Nearby) {
	e.ArrStart()
	for _, n := range list {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(n.ID)
		e.FieldStart("name")
		e.Str(n.Name)
		e.FieldStart("address")
		e.Str(n.Address)
		e.FieldStart("lat")
		e.Float64(n.Lat)
		e.FieldStart("lng")
		e.Float64(n.Lng)
		e.FieldStart("deliveryTypes")
		encodeDeliverySet(e, n.DeliveryTypes)
		e.FieldStart("deliveryRadiusKm")
		e.Float64(n.DeliveryRadiusKm)
		e.FieldStart("deliveryFee")
		encodeDecimal(e, n.DeliveryFee)
		e.FieldStart("taxRate")
		encodeDecimal(e, n.TaxRate)
		e.FieldStart("distanceKm")
		e.Float64(n.DistanceKm)
		e.FieldStart("withinDeliveryRadius")
		e.Bool(n.WithinDeliveryRadius)
		e.ObjEnd()
	}
	e.ArrEnd()
}

// DecodeNearby reads the store locator result.
func DecodeNearby(d *jx.Decoder) ([]location.Nearby, error) {
	out := []location.Nearby{}
	err := d.Arr(func(d *jx.Decoder) error {
		var n location.Nearby
		if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
			var err error
			switch string(key) {
			case "id":
				n.ID, err = d.Str()
			case "name":
				n.Name, err = decodeOptStr(d)
			case "address":
				n.Address, err = decodeOptStr(d)
			case "lat":
				n.Lat, err = d.Float64()
			case "lng":
				n.Lng, err = d.Float64()
			case "deliveryTypes":
				n.DeliveryTypes, err = decodeDeliverySet(d)
			case "deliveryRadiusKm":
				n.DeliveryRadiusKm, err = d.Float64()
			case "deliveryFee":
				n.DeliveryFee, err = decodeDecimal(d)
			case "taxRate":
				n.TaxRate, err = decodeDecimal(d)
			case "distanceKm":
				n.DistanceKm, err = d.Float64()
			case "withinDeliveryRadius":
				n.WithinDeliveryRadius, err = d.Bool()
			default:
				return d.Skip()
			}
			return field(string(key), err)
		}); err != nil {
			return err
		}
		out = append(out, n)
		return nil
	})
	return out, err
}
