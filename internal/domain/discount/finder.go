package discount

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

// Finder answers which rules apply to a cart and resolves selected ids.
type Finder struct {
	repo Repository
	now  func() time.Time
}

// NewFinder creates a Finder backed by repo.
func NewFinder(repo Repository) *Finder {
	return &Finder{repo: repo, now: time.Now}
}

// Applicable returns every active rule the cart satisfies. A non-empty search
// filters by case-insensitive match on code or description.
func (f *Finder) Applicable(ctx context.Context, c Cart, search string) ([]Rule, error) {
	rules, err := f.repo.ListActive(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list discounts")
	}
	if c.Now.IsZero() {
		c.Now = f.now()
	}

	search = strings.ToLower(strings.TrimSpace(search))
	out := make([]Rule, 0, len(rules))
	for i := range rules {
		r := &rules[i]
		if search != "" &&
			!strings.Contains(strings.ToLower(r.Code), search) &&
			!strings.Contains(strings.ToLower(r.Description), search) {
			continue
		}
		if r.Check(c) != nil {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

// Resolve loads the rules for ids and applies each to the cart, preserving
// the order of ids. Unknown ids yield a *NotFoundError.
func (f *Finder) Resolve(ctx context.Context, ids []string, c Cart) ([]Discount, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rules, err := f.repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get discounts")
	}
	if c.Now.IsZero() {
		c.Now = f.now()
	}

	byID := make(map[string]*Rule, len(rules))
	for i := range rules {
		byID[rules[i].ID] = &rules[i]
	}

	out := make([]Discount, 0, len(ids))
	for _, id := range ids {
		r, ok := byID[id]
		if !ok {
			return nil, &NotFoundError{ID: id}
		}
		d, err := Apply(r, c)
		if err != nil {
			return nil, errors.Wrapf(err, "apply %s", r.Code)
		}
		out = append(out, d)
	}
	return out, nil
}
