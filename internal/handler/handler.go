// Package handler serves the storefront Backend API over HTTP.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/pizza-cart/internal/domain/address"
	"github.com/xenking/pizza-cart/internal/domain/cart"
	"github.com/xenking/pizza-cart/internal/domain/location"
	"github.com/xenking/pizza-cart/internal/domain/pricing"
	"github.com/xenking/pizza-cart/internal/domain/product"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	// When empty, image paths are returned as stored in the database.
	ImageBaseURL string
	// MaxBodyBytes limits request bodies. Zero selects 1 MiB.
	MaxBodyBytes int64
}

// Handler implements the Backend API endpoints.
type Handler struct {
	products     product.Repository
	items        cart.Repository
	addresses    address.Repository
	locations    location.Repository
	pricing      *pricing.Service
	imageBaseURL string
	maxBody      int64
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg Config,
	products product.Repository,
	items cart.Repository,
	addresses address.Repository,
	locations location.Repository,
	pricingService *pricing.Service,
) *Handler {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	return &Handler{
		products:     products,
		items:        items,
		addresses:    addresses,
		locations:    locations,
		pricing:      pricingService,
		imageBaseURL: cfg.ImageBaseURL,
		maxBody:      cfg.MaxBodyBytes,
	}
}

// Routes mounts the API under r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Get("/products/{id}", h.GetProduct)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.ListCart)
			r.Post("/", h.AddCartItem)
			r.Post("/summary", h.Summary)
			r.Patch("/{id}", h.UpdateCartItem)
			r.Delete("/{id}", h.RemoveCartItem)
		})

		r.Post("/discounts/applicable", h.ApplicableDiscounts)

		r.Route("/addresses", func(r chi.Router) {
			r.Get("/", h.ListAddresses)
			r.Post("/", h.CreateAddress)
			r.Patch("/{id}", h.UpdateAddress)
			r.Delete("/{id}", h.DeleteAddress)
		})

		r.Get("/locations", h.ListLocations)
	})
}

// Router returns a chi router serving the API with envelope-shaped 404 and
// 405 responses.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, r, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, r, http.StatusMethodNotAllowed, "Method not allowed")
	})
	h.Routes(r)
	return r
}
