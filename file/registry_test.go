package file

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/sbdt/limits"
	"github.com/opd-ai/sbdt/transport"
)

func TestRegistryAllocateLookupRelease(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, limits.MaxParallelTransfers, r.Cap())

	rec, err := r.Allocate(5)
	require.NoError(t, err)
	assert.True(t, rec.Live)
	assert.Equal(t, uint32(5), rec.FileID)
	rec.FileSize = 10

	got, err := r.Lookup(5)
	require.NoError(t, err)
	assert.Same(t, rec, got)

	assert.True(t, r.Release(5))
	_, err = r.Lookup(5)
	assert.ErrorIs(t, err, ErrTransferNotFound)
	assert.Equal(t, TransferRecord{}, *rec, "slot zeroed")

	assert.False(t, r.Release(5), "second release is a no-op")
}

func TestRegistryFull(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < limits.MaxParallelTransfers; i++ {
		_, err := r.Allocate(uint32(i))
		require.NoError(t, err)
	}

	_, err := r.Allocate(99)
	assert.ErrorIs(t, err, ErrRegistryFull)
	assert.Equal(t, limits.MaxParallelTransfers, r.Len())

	r.Release(1)
	rec, err := r.Allocate(99)
	require.NoError(t, err)
	assert.Equal(t, uint32(99), rec.FileID)
}

func TestRegistryAllocateZeroesSlot(t *testing.T) {
	r := NewRegistry()
	rec, err := r.Allocate(1)
	require.NoError(t, err)
	rec.RunningChecksum = 0xFFFF
	rec.Live = false // simulate a stale slot left behind

	rec2, err := r.Allocate(2)
	require.NoError(t, err)
	assert.Zero(t, rec2.RunningChecksum)
}

func TestRegistryLiveSnapshot(t *testing.T) {
	r := NewRegistry()
	a, _ := r.Allocate(1)
	a.Scratch = make([]byte, 8)
	_, _ = r.Allocate(2)
	r.Release(1)

	live := r.Live()
	require.Len(t, live, 1)
	assert.Equal(t, uint32(2), live[0].FileID)
	assert.Nil(t, live[0].Scratch)
}

func TestTransferRecordDescriptor(t *testing.T) {
	var rec TransferRecord
	rec.SetDescriptor([]byte("v1.2.3"))
	assert.Equal(t, []byte("v1.2.3"), rec.DescriptorBytes())
	assert.Equal(t, uint32(6), rec.DescriptorSize)
}

func TestTransferRecordProgress(t *testing.T) {
	rec := TransferRecord{FileSize: 300, Received: 150}
	assert.Equal(t, uint8(50), rec.Progress())
	assert.False(t, rec.Complete())

	rec.Received = 300
	assert.True(t, rec.Complete())
	assert.Zero(t, (&TransferRecord{}).Progress())
}

func TestTransferRecordMismatches(t *testing.T) {
	rec := TransferRecord{FileSize: 300, BlockSize: 100, MinimumScratchSize: 128}
	rec.SetDescriptor([]byte("abc"))

	params := transport.Params{
		FragmentSize:             100,
		FileSize:                 300,
		MinimumScratchBufferSize: 128,
		Descriptor:               []byte("abc"),
	}
	assert.Empty(t, rec.Mismatches(params))

	params.FileSize = 301
	params.Descriptor = []byte("abd")
	assert.Len(t, rec.Mismatches(params), 2)
}

func TestPolicyValidate(t *testing.T) {
	assert.NoError(t, DefaultPolicy().Validate())

	bad := []func(*Policy){
		func(p *Policy) { p.Action = 2 },
		func(p *Policy) { p.RejectReason = 0x2 },
		func(p *Policy) { p.FinalizeStatus = 3 },
		func(p *Policy) { p.FinalizeDelay = 70000 * 1e9 },
		func(p *Policy) { p.ReleaseDelay = -1 },
	}
	for i, mutate := range bad {
		p := DefaultPolicy()
		mutate(&p)
		assert.Error(t, p.Validate(), "case %d", i)
	}
}
