package api

import (
	"maps"
	"slices"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/pizza-cart/internal/domain/cart"
)

// CartItemPatch is the body of PATCH /api/cart/{id}. Nil fields are left
// unchanged.
type CartItemPatch struct {
	Quantity  *int
	VariantID *string
	Addons    map[string]int
}

// Apply merges the patch into it.
func (p CartItemPatch) Apply(it *cart.Item) {
	if p.Quantity != nil {
		it.Quantity = *p.Quantity
	}
	if p.VariantID != nil {
		it.VariantID = *p.VariantID
	}
	if p.Addons != nil {
		it.Addons = p.Addons
	}
}

// EncodeCartItem writes it. An empty id is omitted, which is the shape of
// the POST /api/cart body.
func EncodeCartItem(e *jx.Encoder, it cart.Item) {
	e.ObjStart()
	if it.ID != "" {
		e.FieldStart("id")
		e.Str(it.ID)
	}
	e.FieldStart("sessionId")
	e.Str(it.SessionID)
	e.FieldStart("productId")
	e.Str(it.ProductID)
	if it.VariantID != "" {
		e.FieldStart("variantId")
		e.Str(it.VariantID)
	}
	e.FieldStart("addons")
	encodeAddons(e, it.Addons)
	e.FieldStart("quantity")
	e.Int(it.Quantity)
	e.ObjEnd()
}

// EncodeCartItems writes an array of cart items.
func EncodeCartItems(e *jx.Encoder, items []cart.Item) {
	e.ArrStart()
	for _, it := range items {
		EncodeCartItem(e, it)
	}
	e.ArrEnd()
}

// DecodeCartItem reads a cart item object.
func DecodeCartItem(d *jx.Decoder) (cart.Item, error) {
	var it cart.Item
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "id":
			it.ID, err = d.Str()
		case "sessionId":
			it.SessionID, err = d.Str()
		case "productId":
			it.ProductID, err = d.Str()
		case "variantId":
			it.VariantID, err = decodeOptStr(d)
		case "addons":
			it.Addons, err = decodeAddons(d)
		case "quantity":
			it.Quantity, err = d.Int()
		default:
			return d.Skip()
		}
		return field(string(key), err)
	})
	return it, err
}

// DecodeCartItems reads an array of cart items.
func DecodeCartItems(d *jx.Decoder) ([]cart.Item, error) {
	out := []cart.Item{}
	err := d.Arr(func(d *jx.Decoder) error {
		it, err := DecodeCartItem(d)
		if err != nil {
			return err
		}
		out = append(out, it)
		return nil
	})
	return out, err
}

// EncodeCartItemPatch writes only the fields set on p.
func EncodeCartItemPatch(e *jx.Encoder, p CartItemPatch) {
	e.ObjStart()
	if p.Quantity != nil {
		e.FieldStart("quantity")
		e.Int(*p.Quantity)
	}
	if p.VariantID != nil {
		e.FieldStart("variantId")
		e.Str(*p.VariantID)
	}
	if p.Addons != nil {
		e.FieldStart("addons")
		encodeAddons(e, p.Addons)
	}
	e.ObjEnd()
}

// DecodeCartItemPatch reads a PATCH body.
func DecodeCartItemPatch(d *jx.Decoder) (CartItemPatch, error) {
	var p CartItemPatch
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "quantity":
			v, err := d.Int()
			if err != nil {
				return field("quantity", err)
			}
			p.Quantity = &v
		case "variantId":
			v, err := d.Str()
			if err != nil {
				return field("variantId", err)
			}
			p.VariantID = &v
		case "addons":
			v, err := decodeAddons(d)
			if err != nil {
				return field("addons", err)
			}
			if v == nil {
				v = map[string]int{}
			}
			p.Addons = v
		default:
			return d.Skip()
		}
		return nil
	})
	if err == nil && p.Quantity == nil && p.VariantID == nil && p.Addons == nil {
		return p, errors.New("empty patch")
	}
	return p, err
}

func encodeAddons(e *jx.Encoder, addons map[string]int) {
	e.ObjStart()
	for _, id := range slices.Sorted(maps.Keys(addons)) {
		e.FieldStart(id)
		e.Int(addons[id])
	}
	e.ObjEnd()
}

func decodeAddons(d *jx.Decoder) (map[string]int, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	out := map[string]int{}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		qty, err := d.Int()
		if err != nil {
			return field(key, err)
		}
		out[key] = qty
		return nil
	})
	return out, err
}
