package ingestion

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tifo/internal/domain/post"
)

func TestMemoryDeduplicator_FirstCallWins(t *testing.T) {
	d := NewMemoryDeduplicator(0)
	key := post.Key{Platform: post.PlatformTwitterlike, ExternalID: "1"}

	first, err := d.MarkSeen(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := d.MarkSeen(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, again)
}

func TestMemoryDeduplicator_ConcurrentAdmission(t *testing.T) {
	d := NewMemoryDeduplicator(0)
	ctx := context.Background()
	key := post.Key{Platform: post.PlatformTwitterlike, ExternalID: "42"}

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			first, err := d.MarkSeen(ctx, key)
			require.NoError(t, err)
			if first {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, admitted, "exactly one caller should win the key")
}

func TestMemoryDeduplicator_KeysAreIndependent(t *testing.T) {
	d := NewMemoryDeduplicator(0)

	first, err := d.MarkSeen(context.Background(), post.Key{Platform: post.PlatformTwitterlike, ExternalID: "7"})
	require.NoError(t, err)
	assert.True(t, first)

	other, err := d.MarkSeen(context.Background(), post.Key{Platform: post.PlatformForum, ExternalID: "7"})
	require.NoError(t, err)
	assert.True(t, other, "same external id on another platform is a distinct post")
}

func TestMemoryDeduplicator_ExpiredKeyReadmits(t *testing.T) {
	d := NewMemoryDeduplicator(time.Minute)
	key := post.Key{Platform: post.PlatformForum, ExternalID: "old"}

	base := time.Now()
	d.now = func() time.Time { return base }

	first, err := d.MarkSeen(context.Background(), key)
	require.NoError(t, err)
	require.True(t, first)

	d.now = func() time.Time { return base.Add(2 * time.Minute) }

	again, err := d.MarkSeen(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, again, "expired key is admitted again")
}
