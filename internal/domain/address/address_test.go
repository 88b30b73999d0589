package address

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddressValidate(t *testing.T) {
	tests := []struct {
		name    string
		addr    Address
		wantErr string
	}{
		{
			name: "complete",
			addr: Address{SessionID: "s1", Line1: "Torstrasse 101", City: "Berlin"},
		},
		{
			name:    "missing everything",
			addr:    Address{},
			wantErr: "missing required fields: sessionId, line1, city",
		},
		{
			name:    "blank line1",
			addr:    Address{SessionID: "s1", Line1: "   ", City: "Berlin"},
			wantErr: "missing required fields: line1",
		},
		{
			name:    "missing city",
			addr:    Address{SessionID: "s1", Line1: "Torstrasse 101"},
			wantErr: "missing required fields: city",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.addr.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.EqualError(t, err, tt.wantErr)
		})
	}
}
