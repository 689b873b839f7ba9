package auth

import (
	"encoding/json"
	"testing"

	"sniprx/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Idempotent(t *testing.T) {
	r := NewRegistry()
	r.Authorize(7)
	r.Authorize(7)
	assert.True(t, r.IsAuthorized(7))
	assert.Equal(t, 1, r.Len())

	r.Deauthorize(7)
	r.Deauthorize(7)
	assert.False(t, r.IsAuthorized(7))
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_ListSorted(t *testing.T) {
	r := NewRegistry(30, -100200, 5)
	assert.Equal(t, []int64{-100200, 5, 30}, r.List())
}

func TestParseID(t *testing.T) {
	valid := map[string]int64{
		`7`:                    7,
		`"7"`:                  7,
		`"007"`:                7,
		`" 7 "`:                7,
		`7.0`:                  7,
		`"-1001234567890123"`:  -1001234567890123,
		`-1001234567890123`:    -1001234567890123,
		`1e3`:                  1000,
	}
	for raw, want := range valid {
		got, err := ParseRawID(json.RawMessage(raw))
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	invalid := []string{``, `null`, `""`, `"abc"`, `7.5`, `true`, `99999999999999999999`}
	for _, raw := range invalid {
		_, err := ParseRawID(json.RawMessage(raw))
		assert.True(t, errs.IsValidation(err), raw)
	}
}

func TestParseID_SameSubscriber(t *testing.T) {
	r := NewRegistry()
	a, err := ParseID("42")
	require.NoError(t, err)
	b, err := ParseID("042")
	require.NoError(t, err)
	r.Authorize(a)
	assert.True(t, r.IsAuthorized(b))
}
