package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/jx"

	"github.com/xenking/pizza-cart/internal/api"
	"github.com/xenking/pizza-cart/internal/domain/location"
)

// ListLocations returns the stores nearest first from ?lat=&lng=. Without
// coordinates the stores are listed by id with zero distance.
func (h *Handler) ListLocations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		lat, lng float64
		sorted   bool
	)
	if q.Has("lat") || q.Has("lng") {
		var err error
		if lat, err = parseCoord(q.Get("lat"), 90); err != nil {
			writeError(w, r, invalid("invalid lat", err))
			return
		}
		if lng, err = parseCoord(q.Get("lng"), 180); err != nil {
			writeError(w, r, invalid("invalid lng", err))
			return
		}
		sorted = true
	}

	list, err := h.locations.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	var nearby []location.Nearby
	if sorted {
		nearby = location.SortByDistance(list, lat, lng)
	} else {
		nearby = make([]location.Nearby, len(list))
		for i, l := range list {
			nearby[i] = location.Nearby{Location: l}
		}
	}
	writeData(w, http.StatusOK, func(e *jx.Encoder) {
		api.EncodeNearby(e, nearby)
	})
}

func parseCoord(s string, limit float64) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if v < -limit || v > limit {
		return 0, strconv.ErrRange
	}
	return v, nil
}
