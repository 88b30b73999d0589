package api

import (
	"github.com/go-faster/jx"

	"github.com/xenking/pizza-cart/internal/domain/address"
)

// EncodeAddress writes a. An empty id is omitted.
func EncodeAddress(e *jx.Encoder, a address.Address) {
	e.ObjStart()
	if a.ID != "" {
		e.FieldStart("id")
		e.Str(a.ID)
	}
	e.FieldStart("sessionId")
	e.Str(a.SessionID)
	if a.Label != "" {
		e.FieldStart("label")
		e.Str(a.Label)
	}
	e.FieldStart("line1")
	e.Str(a.Line1)
	if a.Line2 != "" {
		e.FieldStart("line2")
		e.Str(a.Line2)
	}
	e.FieldStart("city")
	e.Str(a.City)
	if a.PostalCode != "" {
		e.FieldStart("postalCode")
		e.Str(a.PostalCode)
	}
	e.FieldStart("lat")
	e.Float64(a.Lat)
	e.FieldStart("lng")
	e.Float64(a.Lng)
	e.ObjEnd()
}

// EncodeAddresses writes an array of addresses.
func EncodeAddresses(e *jx.Encoder, list []address.Address) {
	e.ArrStart()
	for _, a := range list {
		EncodeAddress(e, a)
	}
	e.ArrEnd()
}

// DecodeAddress reads an address object.
func DecodeAddress(d *jx.Decoder) (address.Address, error) {
	var a address.Address
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "id":
			a.ID, err = d.Str()
		case "sessionId":
			a.SessionID, err = d.Str()
		case "label":
			a.Label, err = decodeOptStr(d)
		case "line1":
			a.Line1, err = d.Str()
		case "line2":
			a.Line2, err = decodeOptStr(d)
		case "city":
			a.City, err = d.Str()
		case "postalCode":
			a.PostalCode, err = decodeOptStr(d)
		case "lat":
			a.Lat, err = d.Float64()
		case "lng":
			a.Lng, err = d.Float64()
		default:
			return d.Skip()
		}
		return field(string(key), err)
	})
	return a, err
}

// DecodeAddresses reads an array of addresses.
func DecodeAddresses(d *jx.Decoder) ([]address.Address, error) {
	out := []address.Address{}
	err := d.Arr(func(d *jx.Decoder) error {
		a, err := DecodeAddress(d)
		if err != nil {
			return err
		}
		out = append(out, a)
		return nil
	})
	return out, err
}
