package api

import (
	"github.com/go-faster/jx"

	"github.com/xenking/pizza-cart/internal/domain/discount"
)

// EncodeRules writes the applicable-discounts list.
func EncodeRules(e *jx.Encoder, rules []discount.Rule) {
	e.ArrStart()
	for _, r := range rules {
		encodeRule(e, r)
	}
	e.ArrEnd()
}

func encodeRule(e *jx.Encoder, r discount.Rule) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(r.ID)
	e.FieldStart("code")
	e.Str(r.Code)
	e.FieldStart("type")
	e.Str(string(r.Type))
	e.FieldStart("value")
	encodeDecimal(e, r.Value)
	if r.Description != "" {
		e.FieldStart("description")
		e.Str(r.Description)
	}
	if r.MinItems > 0 {
		e.FieldStart("minItems")
		e.Int(r.MinItems)
	}
	if r.MinSubtotal.IsPositive() {
		e.FieldStart("minSubtotal")
		encodeDecimal(e, r.MinSubtotal)
	}
	if len(r.DeliveryTypes) > 0 {
		e.FieldStart("deliveryTypes")
		encodeDeliverySet(e, r.DeliveryTypes)
	}
	if r.ValidUntil != nil {
		e.FieldStart("validUntil")
		encodeTime(e, *r.ValidUntil)
	}
	e.ObjEnd()
}

// DecodeRules reads the applicable-discounts list.
func DecodeRules(d *jx.Decoder) ([]discount.Rule, error) {
	out := []discount.Rule{}
	err := d.Arr(func(d *jx.Decoder) error {
		r, err := decodeRule(d)
		if err != nil {
			return err
		}
		out = append(out, r)
		return nil
	})
	return out, err
}

func decodeRule(d *jx.Decoder) (discount.Rule, error) {
	var r discount.Rule
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "id":
			r.ID, err = d.Str()
		case "code":
			r.Code, err = d.Str()
		case "type":
			var s string
			s, err = d.Str()
			r.Type = discount.Type(s)
		case "value":
			r.Value, err = decodeDecimal(d)
		case "description":
			r.Description, err = decodeOptStr(d)
		case "minItems":
			r.MinItems, err = d.Int()
		case "minSubtotal":
			r.MinSubtotal, err = decodeDecimal(d)
		case "deliveryTypes":
			r.DeliveryTypes, err = decodeDeliverySet(d)
		case "validFrom":
			r.ValidFrom, err = decodeOptTime(d)
		case "validUntil":
			r.ValidUntil, err = decodeOptTime(d)
		case "maxDiscount":
			r.MaxDiscount, err = decodeDecimal(d)
		default:
			return d.Skip()
		}
		return field(string(key), err)
	})
	return r, err
}
