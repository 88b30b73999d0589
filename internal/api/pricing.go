package api

import (
	"github.com/go-faster/jx"

	"github.com/xenking/pizza-cart/internal/domain/discount"
	"github.com/xenking/pizza-cart/internal/domain/pricing"
)

// EncodeSummaryRequest writes the body of POST /api/cart/summary. Optional
// members are omitted entirely when unset; the server treats an absent member
// differently from an empty one.
func EncodeSummaryRequest(e *jx.Encoder, r pricing.Request) {
	e.ObjStart()
	e.FieldStart("cartIds")
	encodeStrings(e, r.CartIDs)
	e.FieldStart("storeId")
	e.Str(r.StoreID)
	if len(r.DiscountIDs) > 0 {
		e.FieldStart("discountIds")
		encodeStrings(e, r.DiscountIDs)
	}
	if r.DeliveryType != "" {
		e.FieldStart("deliveryType")
		e.Str(string(r.DeliveryType))
	}
	if r.AddressID != "" {
		e.FieldStart("addressId")
		e.Str(r.AddressID)
	}
	e.ObjEnd()
}

// DecodeSummaryRequest reads the body of POST /api/cart/summary.
func DecodeSummaryRequest(d *jx.Decoder) (pricing.Request, error) {
	var r pricing.Request
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "cartIds":
			r.CartIDs, err = decodeStrings(d)
		case "storeId":
			r.StoreID, err = d.Str()
		case "discountIds":
			r.DiscountIDs, err = decodeStrings(d)
		case "deliveryType":
			r.DeliveryType, err = decodeDeliveryType(d)
		case "addressId":
			r.AddressID, err = decodeOptStr(d)
		default:
			return d.Skip()
		}
		return field(string(key), err)
	})
	return r, err
}

// EncodeApplicableRequest writes the body of POST /api/discounts/applicable.
func EncodeApplicableRequest(e *jx.Encoder, r pricing.ApplicableRequest) {
	e.ObjStart()
	e.FieldStart("cartIds")
	encodeStrings(e, r.CartIDs)
	e.FieldStart("storeId")
	e.Str(r.StoreID)
	if r.Search != "" {
		e.FieldStart("search")
		e.Str(r.Search)
	}
	if r.DeliveryType != "" {
		e.FieldStart("deliveryType")
		e.Str(string(r.DeliveryType))
	}
	e.ObjEnd()
}

// DecodeApplicableRequest reads the body of POST /api/discounts/applicable.
func DecodeApplicableRequest(d *jx.Decoder) (pricing.ApplicableRequest, error) {
	var r pricing.ApplicableRequest
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "cartIds":
			r.CartIDs, err = decodeStrings(d)
		case "storeId":
			r.StoreID, err = d.Str()
		case "search":
			r.Search, err = decodeOptStr(d)
		case "deliveryType":
			r.DeliveryType, err = decodeDeliveryType(d)
		default:
			return d.Skip()
		}
		return field(string(key), err)
	})
	return r, err
}

// EncodeSummary writes a billing summary.
func EncodeSummary(e *jx.Encoder, s pricing.Summary) {
	e.ObjStart()
	e.FieldStart("lines")
	e.ArrStart()
	for _, l := range s.Lines {
		e.ObjStart()
		e.FieldStart("cartItemId")
		e.Str(l.CartItemID)
		e.FieldStart("productId")
		e.Str(l.ProductID)
		e.FieldStart("name")
		e.Str(l.Name)
		if l.VariantID != "" {
			e.FieldStart("variantId")
			e.Str(l.VariantID)
		}
		e.FieldStart("quantity")
		e.Int(l.Quantity)
		e.FieldStart("unitPrice")
		encodeDecimal(e, l.UnitPrice)
		e.FieldStart("lineTotal")
		encodeDecimal(e, l.LineTotal)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("subtotal")
	encodeDecimal(e, s.Subtotal)
	e.FieldStart("discount")
	encodeDecimal(e, s.Discount)
	e.FieldStart("deliveryFee")
	encodeDecimal(e, s.DeliveryFee)
	e.FieldStart("tax")
	encodeDecimal(e, s.Tax)
	e.FieldStart("total")
	encodeDecimal(e, s.Total)
	e.FieldStart("appliedDiscounts")
	e.ArrStart()
	for _, ad := range s.AppliedDiscounts {
		encodeAppliedDiscount(e, ad)
	}
	e.ArrEnd()
	if s.DeliveryType != "" {
		e.FieldStart("deliveryType")
		e.Str(string(s.DeliveryType))
	}
	e.ObjEnd()
}

// DecodeSummary reads a billing summary.
func DecodeSummary(d *jx.Decoder) (pricing.Summary, error) {
	var s pricing.Summary
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "lines":
			err = d.Arr(func(d *jx.Decoder) error {
				l, err := decodeLine(d)
				s.Lines = append(s.Lines, l)
				return err
			})
		case "subtotal":
			s.Subtotal, err = decodeDecimal(d)
		case "discount":
			s.Discount, err = decodeDecimal(d)
		case "deliveryFee":
			s.DeliveryFee, err = decodeDecimal(d)
		case "tax":
			s.Tax, err = decodeDecimal(d)
		case "total":
			s.Total, err = decodeDecimal(d)
		case "appliedDiscounts":
			err = d.Arr(func(d *jx.Decoder) error {
				ad, err := decodeAppliedDiscount(d)
				s.AppliedDiscounts = append(s.AppliedDiscounts, ad)
				return err
			})
		case "deliveryType":
			s.DeliveryType, err = decodeDeliveryType(d)
		default:
			return d.Skip()
		}
		return field(string(key), err)
	})
	return s, err
}

func decodeLine(d *jx.Decoder) (pricing.Line, error) {
	var l pricing.Line
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "cartItemId":
			l.CartItemID, err = d.Str()
		case "productId":
			l.ProductID, err = d.Str()
		case "name":
			l.Name, err = decodeOptStr(d)
		case "variantId":
			l.VariantID, err = decodeOptStr(d)
		case "quantity":
			l.Quantity, err = d.Int()
		case "unitPrice":
			l.UnitPrice, err = decodeDecimal(d)
		case "lineTotal":
			l.LineTotal, err = decodeDecimal(d)
		default:
			return d.Skip()
		}
		return field(string(key), err)
	})
	return l, err
}

func encodeAppliedDiscount(e *jx.Encoder, ad discount.Discount) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(ad.RuleID)
	e.FieldStart("code")
	e.Str(ad.Code)
	e.FieldStart("amount")
	encodeDecimal(e, ad.Amount)
	if ad.Description != "" {
		e.FieldStart("description")
		e.Str(ad.Description)
	}
	if ad.WaivesDeliveryFee {
		e.FieldStart("waivesDeliveryFee")
		e.Bool(true)
	}
	e.ObjEnd()
}

func decodeAppliedDiscount(d *jx.Decoder) (discount.Discount, error) {
	var ad discount.Discount
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "id":
			ad.RuleID, err = d.Str()
		case "code":
			ad.Code, err = decodeOptStr(d)
		case "amount":
			ad.Amount, err = decodeDecimal(d)
		case "description":
			ad.Description, err = decodeOptStr(d)
		case "waivesDeliveryFee":
			ad.WaivesDeliveryFee, err = d.Bool()
		default:
			return d.Skip()
		}
		return field(string(key), err)
	})
	return ad, err
}
