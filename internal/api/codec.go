package api

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/pizza-cart/internal/domain/delivery"
)

// Decimals are written as JSON numbers and accepted as numbers or strings.
func encodeDecimal(e *jx.Encoder, v decimal.Decimal) {
	e.Num(jx.Num(v.String()))
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	var s string
	switch d.Next() {
	case jx.String:
		v, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		s = v
	default:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		s = n.String()
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "parse decimal %q", s)
	}
	return v, nil
}

func decodeOptStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

func encodeStrings(e *jx.Encoder, values []string) {
	e.ArrStart()
	for _, v := range values {
		e.Str(v)
	}
	e.ArrEnd()
}

func decodeStrings(d *jx.Decoder) ([]string, error) {
	out := []string{}
	if d.Next() == jx.Null {
		return out, d.Null()
	}
	err := d.Arr(func(d *jx.Decoder) error {
		v, err := d.Str()
		if err != nil {
			return err
		}
		out = append(out, v)
		return nil
	})
	return out, err
}

func encodeDeliverySet(e *jx.Encoder, s delivery.Set) {
	encodeStrings(e, s.Strings())
}

func decodeDeliverySet(d *jx.Decoder) (delivery.Set, error) {
	values, err := decodeStrings(d)
	if err != nil {
		return nil, err
	}
	return delivery.ParseSet(values)
}

func decodeDeliveryType(d *jx.Decoder) (delivery.Type, error) {
	s, err := decodeOptStr(d)
	if err != nil || s == "" {
		return "", err
	}
	return delivery.Parse(s)
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339))
}

func decodeOptTime(d *jx.Decoder) (*time.Time, error) {
	s, err := decodeOptStr(d)
	if err != nil || s == "" {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, errors.Wrapf(err, "parse time %q", s)
	}
	return &t, nil
}

// field wraps a decode error with the offending member name.
func field(name string, err error) error {
	if err != nil {
		return errors.Wrap(err, name)
	}
	return nil
}
