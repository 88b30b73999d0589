// Package api defines the JSON wire format of the storefront Backend API.
// Both the HTTP handlers and the session-side client encode and decode
// through it.
package api

import (
	"slices"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// Envelope is the uniform response wrapper:
//
//	{"statusCode": 201, "data": {...}, "errorMessage": "..."}
type Envelope struct {
	StatusCode   int
	ErrorMessage string
	// Data is the raw "data" member. It is nil when absent or null.
	Data jx.Raw
}

// EncodeEnvelope writes an envelope. A nil data func encodes "data": null,
// an empty msg omits "errorMessage".
func EncodeEnvelope(e *jx.Encoder, status int, msg string, data func(e *jx.Encoder)) {
	e.ObjStart()
	e.FieldStart("statusCode")
	e.Int(status)
	e.FieldStart("data")
	if data == nil {
		e.Null()
	} else {
		data(e)
	}
	if msg != "" {
		e.FieldStart("errorMessage")
		e.Str(msg)
	}
	e.ObjEnd()
}

// DecodeEnvelope parses an envelope without decoding its data.
func DecodeEnvelope(b []byte) (Envelope, error) {
	var env Envelope
	seenStatus := false
	if err := jx.DecodeBytes(b).ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "statusCode":
			v, err := d.Int()
			if err != nil {
				return errors.Wrap(err, "statusCode")
			}
			env.StatusCode = v
			seenStatus = true
		case "errorMessage":
			v, err := decodeOptStr(d)
			if err != nil {
				return errors.Wrap(err, "errorMessage")
			}
			env.ErrorMessage = v
		case "data":
			if d.Next() == jx.Null {
				return d.Null()
			}
			raw, err := d.Raw()
			if err != nil {
				return errors.Wrap(err, "data")
			}
			env.Data = slices.Clone(raw)
		default:
			return d.Skip()
		}
		return nil
	}); err != nil {
		return Envelope{}, errors.Wrap(err, "decode envelope")
	}
	if !seenStatus {
		return Envelope{}, errors.New("decode envelope: missing statusCode")
	}
	return env, nil
}

// DecodeData decodes the envelope data with fn. It fails when data is
// missing.
func (env Envelope) DecodeData(fn func(d *jx.Decoder) error) error {
	if env.Data == nil {
		return errors.New("response has no data")
	}
	return fn(jx.DecodeBytes(env.Data))
}
