package delivery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Type
		wantErr bool
	}{
		{in: "delivery", want: Delivery},
		{in: "PICKUP", want: Pickup},
		{in: "Dine-In", want: DineIn},
		{in: " dine_in ", want: DineIn},
		{in: "drone", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownType)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSet(t *testing.T) {
	s := NewSet(Pickup, Delivery)
	assert.True(t, s.Has(Pickup))
	assert.False(t, s.Has(DineIn))
	assert.Equal(t, []string{"delivery", "pickup"}, s.Strings())

	parsed, err := ParseSet([]string{"dine-in", "pickup"})
	require.NoError(t, err)
	assert.Equal(t, []Type{DineIn, Pickup}, parsed.Slice())

	_, err = ParseSet([]string{"teleport"})
	require.Error(t, err)
}
