package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueFIFO(t *testing.T) {
	q := New(4)

	require.NoError(t, q.Post(Message{Kind: KindReleaseBuffer, FileID: 1}))
	require.NoError(t, q.Post(Message{Kind: KindFinalizeResponse, FileID: 2}))
	assert.Equal(t, 2, q.Len())

	msg, ok := q.TryNext()
	require.True(t, ok)
	assert.Equal(t, KindReleaseBuffer, msg.Kind)
	assert.Equal(t, uint32(1), msg.FileID)

	msg, ok = q.TryNext()
	require.True(t, ok)
	assert.Equal(t, KindFinalizeResponse, msg.Kind)

	_, ok = q.TryNext()
	assert.False(t, ok)
}

func TestQueueFull(t *testing.T) {
	q := New(1)

	require.NoError(t, q.Post(Message{Kind: KindCall}))
	err := q.Post(Message{Kind: KindCancel, FileID: 9})
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, 1, q.Len())
}

func TestQueueClose(t *testing.T) {
	q := New(2)
	require.NoError(t, q.Post(Message{Kind: KindCall}))

	q.Close()
	assert.True(t, q.Closed())
	assert.ErrorIs(t, q.Post(Message{Kind: KindCall}), ErrQueueClosed)

	_, ok := q.TryNext()
	assert.True(t, ok, "pending messages survive Close")
}

func TestQueueDefaultCapacity(t *testing.T) {
	q := New(0)
	for i := 0; i < DefaultCapacity; i++ {
		require.NoError(t, q.Post(Message{Kind: KindCall}))
	}
	assert.ErrorIs(t, q.Post(Message{Kind: KindCall}), ErrQueueFull)
}

func TestQueueConcurrentProducers(t *testing.T) {
	q := New(100)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id uint32) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_ = q.Post(Message{Kind: KindCall, FileID: id})
			}
		}(uint32(i))
	}
	wg.Wait()

	count := 0
	for {
		if _, ok := q.TryNext(); !ok {
			break
		}
		count++
	}
	assert.Equal(t, 100, count)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "release_buffer", KindReleaseBuffer.String())
	assert.Equal(t, "cancel", KindCancel.String())
	assert.Equal(t, "Kind(99)", Kind(99).String())
}
