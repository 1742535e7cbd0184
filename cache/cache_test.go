// backend/cache/cache_test.go
package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SetGetDelete(t *testing.T) {
	s := New(time.Minute)

	s.Set(PurposeData, "id-1", []string{"a", "b"}, time.Minute)
	v, ok := s.Get(PurposeData, "id-1")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, v)

	// Purposes namespace the keys: same id, different purpose, no hit.
	_, ok = s.Get(PurposeMetadata, "id-1")
	assert.False(t, ok)

	s.Delete(PurposeData, "id-1")
	_, ok = s.Get(PurposeData, "id-1")
	assert.False(t, ok)
}

func TestStore_TTLExpiry(t *testing.T) {
	s := New(time.Minute)
	s.Set(PurposeListing, "q", "payload", 20*time.Millisecond)

	_, ok := s.Get(PurposeListing, "q")
	require.True(t, ok)

	time.Sleep(40 * time.Millisecond)
	_, ok = s.Get(PurposeListing, "q")
	assert.False(t, ok)
}

func TestStore_ZeroTTLUsesDefault(t *testing.T) {
	s := New(20 * time.Millisecond)
	s.Set(PurposeData, "id", 1, 0)

	_, ok := s.Get(PurposeData, "id")
	require.True(t, ok)

	time.Sleep(40 * time.Millisecond)
	_, ok = s.Get(PurposeData, "id")
	assert.False(t, ok)
}
