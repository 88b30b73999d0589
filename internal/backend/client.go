// Package backend is the session-side client for the storefront Backend API.
package backend

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/xenking/pizza-cart/internal/api"
	"github.com/xenking/pizza-cart/internal/domain/address"
	"github.com/xenking/pizza-cart/internal/domain/cart"
	"github.com/xenking/pizza-cart/internal/domain/discount"
	"github.com/xenking/pizza-cart/internal/domain/location"
	"github.com/xenking/pizza-cart/internal/domain/pricing"
	"github.com/xenking/pizza-cart/internal/domain/product"
)

// maxBody bounds how much of a response is read.
const maxBody = 4 << 20

// Client calls the Backend API. Every method returns either the decoded data
// or a *Failure.
type Client struct {
	base *url.URL
	http *http.Client
}

// New creates a Client for the API rooted at baseURL. A nil httpClient gets an
// otelhttp-instrumented default.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("base url %q must be absolute", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return &Client{base: u, http: httpClient}, nil
}

type call struct {
	method string
	path   string
	query  url.Values
	body   func(e *jx.Encoder)
	// want is the only status code treated as success.
	want   int
	decode func(d *jx.Decoder) error
}

func (c *Client) do(ctx context.Context, cl call) error {
	// cl.path is already escaped.
	target := c.base.String() + cl.path
	if len(cl.query) > 0 {
		target += "?" + cl.query.Encode()
	}

	var body io.Reader
	if cl.body != nil {
		e := jx.GetEncoder()
		defer jx.PutEncoder(e)
		cl.body(e)
		body = bytes.NewReader(e.Bytes())
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, target, body)
	if err != nil {
		return &Failure{Kind: KindTransport, Message: MsgTransport, Err: errors.Wrap(err, "build request")}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Failure{Kind: KindTransport, Message: MsgTransport, Err: errors.Wrapf(err, "%s %s", cl.method, cl.path)}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return &Failure{Kind: KindTransport, Message: MsgTransport, Err: errors.Wrap(err, "read response")}
	}

	env, err := api.DecodeEnvelope(raw)
	if err != nil {
		// A response arrived but is not an envelope.
		return &Failure{Kind: KindDomain, StatusCode: resp.StatusCode, Message: MsgDomain, Err: err}
	}
	if env.StatusCode != cl.want || resp.StatusCode != cl.want {
		msg := env.ErrorMessage
		if msg == "" {
			msg = MsgDomain
		}
		return &Failure{Kind: KindDomain, StatusCode: env.StatusCode, Message: msg}
	}
	if cl.decode == nil {
		return nil
	}
	if err := env.DecodeData(cl.decode); err != nil {
		return &Failure{
			Kind:       KindDomain,
			StatusCode: env.StatusCode,
			Message:    MsgDomain,
			Err:        errors.Wrapf(err, "decode %s %s", cl.method, cl.path),
		}
	}
	return nil
}

// ListProducts calls GET /api/products.
func (c *Client) ListProducts(ctx context.Context) ([]product.Product, error) {
	var out []product.Product
	err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/api/products",
		want:   http.StatusOK,
		decode: func(d *jx.Decoder) (err error) {
			out, err = api.DecodeProducts(d)
			return err
		},
	})
	return out, err
}

// Product calls GET /api/products/{id}.
func (c *Client) Product(ctx context.Context, id string) (*product.Product, error) {
	var out product.Product
	err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/api/products/" + url.PathEscape(id),
		want:   http.StatusOK,
		decode: func(d *jx.Decoder) (err error) {
			out, err = api.DecodeProduct(d)
			return err
		},
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListCart calls GET /api/cart.
func (c *Client) ListCart(ctx context.Context, sessionID string) ([]cart.Item, error) {
	var out []cart.Item
	err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/api/cart",
		query:  url.Values{"sessionId": {sessionID}},
		want:   http.StatusOK,
		decode: func(d *jx.Decoder) (err error) {
			out, err = api.DecodeCartItems(d)
			return err
		},
	})
	return out, err
}

// AddCartItem calls POST /api/cart and returns the created item.
func (c *Client) AddCartItem(ctx context.Context, it cart.Item) (*cart.Item, error) {
	it.ID = ""
	return c.cartItem(ctx, call{
		method: http.MethodPost,
		path:   "/api/cart",
		body:   func(e *jx.Encoder) { api.EncodeCartItem(e, it) },
		want:   http.StatusCreated,
	})
}

// UpdateCartItem calls PATCH /api/cart/{id} and returns the updated item.
func (c *Client) UpdateCartItem(ctx context.Context, id string, patch api.CartItemPatch) (*cart.Item, error) {
	return c.cartItem(ctx, call{
		method: http.MethodPatch,
		path:   "/api/cart/" + url.PathEscape(id),
		body:   func(e *jx.Encoder) { api.EncodeCartItemPatch(e, patch) },
		want:   http.StatusOK,
	})
}

func (c *Client) cartItem(ctx context.Context, cl call) (*cart.Item, error) {
	var out cart.Item
	cl.decode = func(d *jx.Decoder) (err error) {
		out, err = api.DecodeCartItem(d)
		return err
	}
	if err := c.do(ctx, cl); err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveCartItem calls DELETE /api/cart/{id}.
func (c *Client) RemoveCartItem(ctx context.Context, id string) error {
	return c.do(ctx, call{
		method: http.MethodDelete,
		path:   "/api/cart/" + url.PathEscape(id),
		want:   http.StatusOK,
	})
}

// Summary calls POST /api/cart/summary.
func (c *Client) Summary(ctx context.Context, req pricing.Request) (*pricing.Summary, error) {
	var out pricing.Summary
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/api/cart/summary",
		body:   func(e *jx.Encoder) { api.EncodeSummaryRequest(e, req) },
		want:   http.StatusCreated,
		decode: func(d *jx.Decoder) (err error) {
			out, err = api.DecodeSummary(d)
			return err
		},
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ApplicableDiscounts calls POST /api/discounts/applicable.
func (c *Client) ApplicableDiscounts(ctx context.Context, req pricing.ApplicableRequest) ([]discount.Rule, error) {
	var out []discount.Rule
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/api/discounts/applicable",
		body:   func(e *jx.Encoder) { api.EncodeApplicableRequest(e, req) },
		want:   http.StatusCreated,
		decode: func(d *jx.Decoder) (err error) {
			out, err = api.DecodeRules(d)
			return err
		},
	})
	return out, err
}

// ListAddresses calls GET /api/addresses.
func (c *Client) ListAddresses(ctx context.Context, sessionID string) ([]address.Address, error) {
	var out []address.Address
	err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/api/addresses",
		query:  url.Values{"sessionId": {sessionID}},
		want:   http.StatusOK,
		decode: func(d *jx.Decoder) (err error) {
			out, err = api.DecodeAddresses(d)
			return err
		},
	})
	return out, err
}

// CreateAddress calls POST /api/addresses.
func (c *Client) CreateAddress(ctx context.Context, a address.Address) (*address.Address, error) {
	a.ID = ""
	return c.address(ctx, call{
		method: http.MethodPost,
		path:   "/api/addresses",
		body:   func(e *jx.Encoder) { api.EncodeAddress(e, a) },
		want:   http.StatusCreated,
	})
}

// UpdateAddress calls PATCH /api/addresses/{id}.
func (c *Client) UpdateAddress(ctx context.Context, a address.Address) (*address.Address, error) {
	return c.address(ctx, call{
		method: http.MethodPatch,
		path:   "/api/addresses/" + url.PathEscape(a.ID),
		body:   func(e *jx.Encoder) { api.EncodeAddress(e, a) },
		want:   http.StatusOK,
	})
}

func (c *Client) address(ctx context.Context, cl call) (*address.Address, error) {
	var out address.Address
	cl.decode = func(d *jx.Decoder) (err error) {
		out, err = api.DecodeAddress(d)
		return err
	}
	if err := c.do(ctx, cl); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteAddress calls DELETE /api/addresses/{id}.
func (c *Client) DeleteAddress(ctx context.Context, id string) error {
	return c.do(ctx, call{
		method: http.MethodDelete,
		path:   "/api/addresses/" + url.PathEscape(id),
		want:   http.StatusOK,
	})
}

// Locations calls GET /api/locations and returns stores nearest first.
func (c *Client) Locations(ctx context.Context, lat, lng float64) ([]location.Nearby, error) {
	var out []location.Nearby
	err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/api/locations",
		query: url.Values{
			"lat": {strconv.FormatFloat(lat, 'f', -1, 64)},
			"lng": {strconv.FormatFloat(lng, 'f', -1, 64)},
		},
		want: http.StatusOK,
		decode: func(d *jx.Decoder) (err error) {
			out, err = api.DecodeNearby(d)
			return err
		},
	})
	return out, err
}
