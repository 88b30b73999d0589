//go:build integration

package integration

import (
	"net/http"
	"slices"
	"testing"
)

func TestListProducts(t *testing.T) {
	env := expectEnvelope[[]productResponse](t, doGet(t, "/api/products"), http.StatusOK)
	if len(env.Data) != seededProducts {
		t.Fatalf("expected %d products, got %d", seededProducts, len(env.Data))
	}
}

func TestListProducts_Fields(t *testing.T) {
	env := expectEnvelope[[]productResponse](t, doGet(t, "/api/products"), http.StatusOK)

	idx := slices.IndexFunc(env.Data, func(p productResponse) bool { return p.ID == "margherita" })
	if idx < 0 {
		t.Fatal("product margherita not found")
	}
	p := env.Data[idx]

	if p.Name != "Margherita" {
		t.Errorf("name: got %q, want %q", p.Name, "Margherita")
	}
	if p.Price != 9.5 {
		t.Errorf("price: got %v, want 9.5", p.Price)
	}
	if p.Category != "Pizza" {
		t.Errorf("category: got %q, want %q", p.Category, "Pizza")
	}
	if len(p.Variants) != 3 {
		t.Errorf("variants: got %d, want 3", len(p.Variants))
	}
	if len(p.Addons) != 3 {
		t.Errorf("addons: got %d, want 3", len(p.Addons))
	}
	if len(p.AvailableDeliveryTypes) != 3 {
		t.Errorf("availableDeliveryTypes: got %v", p.AvailableDeliveryTypes)
	}
	if p.Image.Thumbnail == "" || p.Image.Mobile == "" || p.Image.Tablet == "" || p.Image.Desktop == "" {
		t.Errorf("image: incomplete %+v", p.Image)
	}
}

func TestGetProduct(t *testing.T) {
	env := expectEnvelope[productResponse](t, doGet(t, "/api/products/calzone"), http.StatusOK)

	p := env.Data
	if p.ID != "calzone" {
		t.Errorf("id: got %q, want %q", p.ID, "calzone")
	}
	if p.Price != 12.5 {
		t.Errorf("price: got %v, want 12.5", p.Price)
	}
	if slices.Contains(p.AvailableDeliveryTypes, "delivery") {
		t.Errorf("calzone must not be deliverable, got %v", p.AvailableDeliveryTypes)
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	env := expectEnvelope[any](t, doGet(t, "/api/products/hawaii"), http.StatusNotFound)
	if env.ErrorMessage != "Product not found" {
		t.Errorf("errorMessage: got %q, want %q", env.ErrorMessage, "Product not found")
	}
}
