package api

import (
	"github.com/go-faster/jx"

	"github.com/xenking/pizza-cart/internal/domain/product"
)

// EncodeProduct writes p. imageBase is prepended to relative image paths.
func EncodeProduct(e *jx.Encoder, p product.Product, imageBase string) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("category")
	e.Str(p.Category)
	e.FieldStart("price")
	encodeDecimal(e, p.Price)

	e.FieldStart("variants")
	e.ArrStart()
	for _, v := range p.Variants {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(v.ID)
		e.FieldStart("name")
		e.Str(v.Name)
		e.FieldStart("priceDelta")
		encodeDecimal(e, v.PriceDelta)
		e.ObjEnd()
	}
	e.ArrEnd()

	e.FieldStart("addons")
	e.ArrStart()
	for _, a := range p.Addons {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(a.ID)
		e.FieldStart("name")
		e.Str(a.Name)
		e.FieldStart("price")
		encodeDecimal(e, a.Price)
		e.ObjEnd()
	}
	e.ArrEnd()

	e.FieldStart("availableDeliveryTypes")
	encodeDeliverySet(e, p.AvailableDeliveryTypes)

	e.FieldStart("image")
	e.ObjStart()
	e.FieldStart("thumbnail")
	e.Str(imageBase + p.Image.Thumbnail)
	e.FieldStart("mobile")
	e.Str(imageBase + p.Image.Mobile)
	e.FieldStart("tablet")
	e.Str(imageBase + p.Image.Tablet)
	e.FieldStart("desktop")
	e.Str(imageBase + p.Image.Desktop)
	e.ObjEnd()
	e.ObjEnd()
}

// DecodeProduct reads a product object.
func DecodeProduct(d *jx.Decoder) (product.Product, error) {
	var p product.Product
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "id":
			p.ID, err = d.Str()
		case "name":
			p.Name, err = d.Str()
		case "category":
			p.Category, err = decodeOptStr(d)
		case "price":
			p.Price, err = decodeDecimal(d)
		case "variants":
			err = d.Arr(func(d *jx.Decoder) error {
				v, err := decodeVariant(d)
				p.Variants = append(p.Variants, v)
				return err
			})
		case "addons":
			err = d.Arr(func(d *jx.Decoder) error {
				a, err := decodeAddon(d)
				p.Addons = append(p.Addons, a)
				return err
			})
		case "availableDeliveryTypes":
			p.AvailableDeliveryTypes, err = decodeDeliverySet(d)
		case "image":
			p.Image, err = decodeImage(d)
		default:
			return d.Skip()
		}
		return field(string(key), err)
	})
	return p, err
}

// DecodeProducts reads an array of products.
func DecodeProducts(d *jx.Decoder) ([]product.Product, error) {
	out := []product.Product{}
	err := d.Arr(func(d *jx.Decoder) error {
		p, err := DecodeProduct(d)
		if err != nil {
			return err
		}
		out = append(out, p)
		return nil
	})
	return out, err
}

func decodeVariant(d *jx.Decoder) (product.Variant, error) {
	var v product.Variant
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "id":
			v.ID, err = d.Str()
		case "name":
			v.Name, err = d.Str()
		case "priceDelta":
			v.PriceDelta, err = decodeDecimal(d)
		default:
			return d.Skip()
		}
		return field(string(key), err)
	})
	return v, err
}

func decodeAddon(d *jx.Decoder) (product.Addon, error) {
	var a product.Addon
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "id":
			a.ID, err = d.Str()
		case "name":
			a.Name, err = d.Str()
		case "price":
			a.Price, err = decodeDecimal(d)
		default:
			return d.Skip()
		}
		return field(string(key), err)
	})
	return a, err
}

func decodeImage(d *jx.Decoder) (product.Image, error) {
	var img product.Image
	if d.Next() == jx.Null {
		return img, d.Null()
	}
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "thumbnail":
			img.Thumbnail, err = decodeOptStr(d)
		case "mobile":
			img.Mobile, err = decodeOptStr(d)
		case "tablet":
			img.Tablet, err = decodeOptStr(d)
		case "desktop":
			img.Desktop, err = decodeOptStr(d)
		default:
			return d.Skip()
		}
		return field(string(key), err)
	})
	return img, err
}
