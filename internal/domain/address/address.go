// Package address models delivery addresses saved for a session.
package address

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when an address id does not exist.
var ErrNotFound = errors.New("address not found")

// Address is a saved delivery destination.
type Address struct {
	ID         string
	SessionID  string
	Label      string
	Line1      string
	Line2      string
	City       string
	PostalCode string
	Lat        float64
	Lng        float64
}

// Validate checks that the address is complete enough to deliver to.
func (a Address) Validate() error {
	var missing []string
	if a.SessionID == "" {
		missing = append(missing, "sessionId")
	}
	if strings.TrimSpace(a.Line1) == "" {
		missing = append(missing, "line1")
	}
	if strings.TrimSpace(a.City) == "" {
		missing = append(missing, "city")
	}
	if len(missing) > 0 {
		return errors.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Repository persists addresses.
type Repository interface {
	ListBySession(ctx context.Context, sessionID string) ([]Address, error)
	GetByID(ctx context.Context, id string) (*Address, error)
	Create(ctx context.Context, a *Address) error
	Update(ctx context.Context, a *Address) error
	Delete(ctx context.Context, id string) error
}
