package device

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsAllowed_DefaultProducts(t *testing.T) {
	allow, err := NewAllowList(DefaultProducts)
	require.NoError(t, err)
	assert.Len(t, allow.Products(), 6)

	for _, p := range DefaultProducts {
		assert.True(t, allow.IsAllowed(p), "expected %q to be allowed", p)
	}
}

func TestIsAllowed_Rejections(t *testing.T) {
	allow, err := NewAllowList(DefaultProducts)
	require.NoError(t, err)

	tests := []struct {
		name    string
		product string
	}{
		{"empty", ""},
		{"capitalized", "Monterey"},
		{"upper case", "HOLLYWOOD"},
		{"substring", "hollywoo"},
		{"superstring", "vr_pacific2"},
		{"leading space", " pacific"},
		{"unrelated", "sdk_gphone64_x86_64"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, allow.IsAllowed(tt.product))
		})
	}
}

func TestNewAllowList_Empty(t *testing.T) {
	_, err := NewAllowList(nil)
	assert.ErrorIs(t, err, ErrEmptyAllowList)

	_, err = NewAllowList([]string{"", ""})
	assert.ErrorIs(t, err, ErrEmptyAllowList)
}

func TestNilAllowList(t *testing.T) {
	var allow *AllowList
	assert.False(t, allow.IsAllowed("monterey"))
}

func TestProducts_SortedCopy(t *testing.T) {
	allow, err := NewAllowList([]string{"pacific", "hollywood", "pacific"})
	require.NoError(t, err)

	products := allow.Products()
	assert.Equal(t, []string{"hollywood", "pacific"}, products)

	products[0] = "mutated"
	assert.True(t, allow.IsAllowed("hollywood"))
	assert.False(t, allow.IsAllowed("mutated"))
}

func TestIsAllowed_ConcurrentReaders(t *testing.T) {
	allow, err := NewAllowList(DefaultProducts)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				_ = allow.IsAllowed("hollywood")
				_ = allow.IsAllowed("unknown")
			}
		}()
	}
	wg.Wait()
}
