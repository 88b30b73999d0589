package discount

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/pizza-cart/internal/domain/delivery"
)

type mockRepo struct {
	rules []Rule
	err   error
}

func (m *mockRepo) ListActive(_ context.Context) ([]Rule, error) {
	return m.rules, m.err
}

func (m *mockRepo) GetByIDs(_ context.Context, ids []string) ([]Rule, error) {
	if m.err != nil {
		return nil, m.err
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []Rule
	for _, r := range m.rules {
		if want[r.ID] {
			out = append(out, r)
		}
	}
	return out, nil
}

func newFinder(rules ...Rule) *Finder {
	f := NewFinder(&mockRepo{rules: rules})
	f.now = func() time.Time { return now }
	return f
}

func TestFinder_Applicable(t *testing.T) {
	f := newFinder(
		Rule{ID: "d1", Code: "HAPPY", Type: Percentage, Value: d("10"), Description: "Happy hour"},
		Rule{ID: "d2", Code: "SHIPFREE", Type: FreeDelivery, Description: "Free delivery"},
		Rule{ID: "d3", Code: "BOGO", Type: FreeLowest, MinItems: 2, Description: "Second pizza free"},
	)
	cart := Cart{
		Lines:        []Line{{ProductID: "p1", UnitPrice: d("12"), Quantity: 1}},
		DeliveryType: delivery.Pickup,
	}

	got, err := f.Applicable(context.Background(), cart, "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "d1", got[0].ID)

	cart.DeliveryType = delivery.Delivery
	got, err = f.Applicable(context.Background(), cart, "free")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "d2", got[0].ID)
}

func TestFinder_ApplicableRepoError(t *testing.T) {
	f := NewFinder(&mockRepo{err: errors.New("db down")})

	_, err := f.Applicable(context.Background(), Cart{}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list discounts")
}

func TestFinder_Resolve(t *testing.T) {
	f := newFinder(
		Rule{ID: "d1", Code: "HAPPY", Type: Percentage, Value: d("10")},
		Rule{ID: "d2", Code: "FIVE", Type: Fixed, Value: d("5")},
	)
	cart := Cart{Lines: []Line{{UnitPrice: d("20"), Quantity: 2}}}

	got, err := f.Resolve(context.Background(), []string{"d2", "d1"}, cart)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "FIVE", got[0].Code)
	assert.True(t, d("4").Equal(got[1].Amount))

	_, err = f.Resolve(context.Background(), []string{"nope"}, cart)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "nope", nf.ID)

	none, err := f.Resolve(context.Background(), nil, cart)
	require.NoError(t, err)
	assert.Empty(t, none)
}
