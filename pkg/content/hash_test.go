package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHash(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name:  "lowercase",
			input: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		},
		{
			name:  "uppercase",
			input: "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
		},
		{
			name:    "too_short",
			input:   "aaaa",
			wantErr: true,
		},
		{
			name:    "not_hex",
			input:   "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := ParseHash(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, testHash(0xaa), h)
			assert.Equal(t, "aaaaaaaa", h.Short())
		})
	}
}

func TestHash_MapKey(t *testing.T) {
	raw := testHash(1)
	a, err := HashFromBytes(raw[:])
	require.NoError(t, err)

	m := map[Hash]int{testHash(1): 1}
	assert.Equal(t, 1, m[a])

	_, err = HashFromBytes([]byte{1, 2, 3})
	assert.Error(t, err)
}
