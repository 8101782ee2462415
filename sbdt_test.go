package sbdt

import (
	"context"
	"hash/crc32"
	"os"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/sbdt/file"
	"github.com/opd-ai/sbdt/sim"
	"github.com/opd-ai/sbdt/storage"
	"github.com/opd-ai/sbdt/transport"
)

type testEngine struct {
	*Engine
	core  *sim.Core
	clock *sim.ManualClock
	kv    storage.KV
}

func openTestKV(t *testing.T) storage.KV {
	t.Helper()
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return storage.NewBadgerKV(db)
}

func newTestEngine(t *testing.T, kv storage.KV, mutate func(*Options)) *testEngine {
	t.Helper()
	if kv == nil {
		kv = openTestKV(t)
	}
	te := &testEngine{
		core:  sim.NewCore(sim.Options{}),
		clock: sim.NewManualClock(),
		kv:    kv,
	}
	options := NewOptions()
	options.TimeProvider = te.clock
	if mutate != nil {
		mutate(options)
	}

	engine, err := New(te.core, kv, options)
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Close() })
	require.NoError(t, engine.Init())
	te.Engine = engine
	return te
}

// deliver sends data in fragment-sized chunks, letting each buffer come back
// before the next chunk.
func (te *testEngine) deliver(t *testing.T, fileID uint32, data []byte, fragment int) {
	t.Helper()
	for off := 0; off < len(data); off += fragment {
		end := off + fragment
		if end > len(data) {
			end = len(data)
		}
		require.NoError(t, te.core.SendNext(fileID, data[off:end]))
		te.clock.Advance(te.Policy().ReleaseDelay)
		te.Iterate()
		require.False(t, te.core.Busy(fileID), "buffer released at offset %d", off)
	}
}

func testData(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*31 + 7)
	}
	return b
}

func transferRequest(fileID, size, fragment uint32) transport.TransferRequest {
	return transport.TransferRequest{
		FileID:                   fileID,
		FileSize:                 size,
		FragmentSize:             fragment,
		MinimumScratchBufferSize: transport.MinScratchBufferSize(fragment),
		Descriptor:               []byte{0x01, 0x02, 0x03},
	}
}

func TestEndToEndTransfer(t *testing.T) {
	te := newTestEngine(t, nil, nil)
	data := testData(300)

	req := transferRequest(0x1, 300, 100)
	require.Equal(t, 128, req.MinimumScratchBufferSize)

	resp, err := te.core.StartTransfer(req)
	require.NoError(t, err)
	accepted, ok := resp.(transport.Accepted)
	require.True(t, ok)
	assert.Len(t, accepted.ScratchBuffer, 128)
	assert.True(t, te.TransferStarted())

	te.deliver(t, 0x1, data, 100)

	rec, err := te.Transfer(0x1)
	require.NoError(t, err)
	assert.True(t, rec.Complete())
	assert.Equal(t, crc32.ChecksumIEEE(data), rec.RunningChecksum)
	assert.Equal(t, 3, te.core.Count(sim.EventBufferReleased, 0x1))

	require.NoError(t, te.core.RequestFinalize(0x1))
	te.clock.Advance(999 * time.Millisecond)
	te.Iterate()
	assert.Zero(t, te.core.Count(sim.EventFinalized, 0x1), "finalize before delay")

	te.clock.Advance(time.Millisecond)
	te.Iterate()
	assert.Equal(t, 1, te.core.Count(sim.EventFinalized, 0x1))
	assert.Equal(t, 1, te.core.Count(sim.EventScratchReleased, 0x1))

	_, err = te.Transfer(0x1)
	assert.ErrorIs(t, err, file.ErrTransferNotFound)
	assert.False(t, te.TransferStarted())

	te.clock.Advance(time.Hour)
	te.Iterate()
	assert.Equal(t, 1, te.core.Count(sim.EventFinalized, 0x1))
}

func TestDuplicateTransferRequest(t *testing.T) {
	te := newTestEngine(t, nil, nil)

	_, err := te.core.StartTransfer(transferRequest(0x2, 100, 100))
	require.NoError(t, err)
	_, err = te.core.StartTransfer(transferRequest(0x2, 100, 100))
	require.NoError(t, err)

	assert.Len(t, te.Transfers(), 1)
}

func TestCapacity(t *testing.T) {
	te := newTestEngine(t, nil, nil)

	for id := uint32(1); id <= 3; id++ {
		_, err := te.core.StartTransfer(transferRequest(id, 100, 100))
		require.NoError(t, err)
	}

	resp, err := te.core.StartTransfer(transferRequest(4, 1, 100))
	assert.ErrorIs(t, err, sim.ErrTransferRejected)
	assert.Equal(t, transport.Rejected{Reason: transport.RejectReasonNoSpace}, resp)
	assert.Len(t, te.Transfers(), 3)
	assert.Equal(t, 3, te.pool.InUse())
}

func TestReleaseIdempotence(t *testing.T) {
	te := newTestEngine(t, nil, nil)
	_, err := te.core.StartTransfer(transferRequest(1, 100, 100))
	require.NoError(t, err)

	te.Callbacks().OnReleaseScratchBuffer(99)
	assert.Len(t, te.Transfers(), 1)

	te.Callbacks().OnReleaseScratchBuffer(1)
	te.Callbacks().OnReleaseScratchBuffer(1)
	assert.Empty(t, te.Transfers())
	assert.Zero(t, te.pool.InUse())
}

func TestLifecycleCompleteness(t *testing.T) {
	te := newTestEngine(t, nil, func(o *Options) { o.ChecksumKeyMode = storage.KeyModePerFile })

	for id := uint32(1); id <= 3; id++ {
		_, err := te.core.StartTransfer(transferRequest(id, 50, 50))
		require.NoError(t, err)
		te.deliver(t, id, testData(50), 50)
	}

	require.NoError(t, te.core.RequestFinalize(1))
	te.clock.Advance(time.Second)
	te.Iterate()
	require.NoError(t, te.core.RemoteCancel(2))
	require.NoError(t, te.core.Fail(3))

	assert.Empty(t, te.Transfers())
	assert.Zero(t, te.pool.InUse())
	for id := uint32(1); id <= 3; id++ {
		assert.Equal(t, 1, te.core.Count(sim.EventScratchReleased, id), "file %d", id)
	}
}

func TestApplicationCancel(t *testing.T) {
	te := newTestEngine(t, nil, nil)
	_, err := te.core.StartTransfer(transferRequest(1, 100, 100))
	require.NoError(t, err)

	assert.ErrorIs(t, te.Cancel(1, transport.RejectReason(0x2)), ErrInvalidReason)

	require.NoError(t, te.Cancel(1, transport.RejectReasonFileTooBig))
	assert.Len(t, te.Transfers(), 1, "cancel goes through the queue")

	te.Iterate()
	assert.Empty(t, te.Transfers())

	var cancel sim.Event
	for _, ev := range te.core.Events() {
		if ev.Kind == sim.EventAppCancel {
			cancel = ev
		}
	}
	assert.Equal(t, transport.RejectReasonFileTooBig, cancel.Reason)
}

func TestChecksumSurvivesRestart(t *testing.T) {
	kv := openTestKV(t)
	data := testData(200)

	first := newTestEngine(t, kv, nil)
	_, err := first.core.StartTransfer(transferRequest(7, 200, 100))
	require.NoError(t, err)
	first.deliver(t, 7, data[:100], 100)
	require.NoError(t, first.Close())

	second := newTestEngine(t, kv, nil)
	req := transferRequest(7, 200, 100)
	req.FileOffset = 100
	_, err = second.core.StartTransfer(req)
	require.NoError(t, err)
	second.deliver(t, 7, data[100:], 100)

	rec, err := second.Transfer(7)
	require.NoError(t, err)
	assert.Equal(t, crc32.ChecksumIEEE(data), rec.RunningChecksum)

	stored, found, err := second.Checksums().Load(7)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, rec.RunningChecksum, stored)
}

func TestPolicyReject(t *testing.T) {
	te := newTestEngine(t, nil, nil)
	p := file.DefaultPolicy()
	p.Action = transport.ActionReject
	p.RejectReason = transport.RejectReasonFileAlreadyExists
	require.NoError(t, te.SetPolicy(p))

	resp, err := te.core.StartTransfer(transferRequest(1, 100, 100))
	assert.ErrorIs(t, err, sim.ErrTransferRejected)
	assert.Equal(t, transport.Rejected{Reason: transport.RejectReasonFileAlreadyExists}, resp)
	assert.Empty(t, te.Transfers())
}

func TestFinalizeFailurePolicy(t *testing.T) {
	te := newTestEngine(t, nil, nil)
	p := file.DefaultPolicy()
	p.FinalizeStatus = transport.FinalStatusFailure
	p.FinalizeDelay = 3 * time.Second
	require.NoError(t, te.SetPolicy(p))

	_, err := te.core.StartTransfer(transferRequest(1, 10, 100))
	require.NoError(t, err)
	te.deliver(t, 1, testData(10), 100)
	require.NoError(t, te.core.RequestFinalize(1))

	te.clock.Advance(2 * time.Second)
	te.Iterate()
	assert.Zero(t, te.core.Count(sim.EventFinalized, 1))

	te.clock.Advance(time.Second)
	te.Iterate()
	for _, ev := range te.core.Events() {
		if ev.Kind == sim.EventFinalized {
			assert.Equal(t, transport.FinalStatusFailure, ev.Status)
		}
	}
	assert.Equal(t, 1, te.core.Count(sim.EventFinalized, 1))
}

func TestSinkWritesFile(t *testing.T) {
	dir := t.TempDir()
	te := newTestEngine(t, nil, func(o *Options) { o.SinkDir = dir })
	data := testData(250)

	_, err := te.core.StartTransfer(transferRequest(0xA, 250, 100))
	require.NoError(t, err)
	te.deliver(t, 0xA, data, 100)
	require.NoError(t, te.core.RequestFinalize(0xA))
	te.clock.Advance(time.Second)
	te.Iterate()

	got, err := os.ReadFile(te.sink.FinalPath(0xA))
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestSinkRejectsOversizedFile(t *testing.T) {
	te := newTestEngine(t, nil, func(o *Options) {
		o.SinkDir = t.TempDir()
		o.MaxFileSize = 100
	})

	resp, err := te.core.StartTransfer(transferRequest(1, 101, 100))
	assert.ErrorIs(t, err, sim.ErrTransferRejected)
	assert.Equal(t, transport.Rejected{Reason: transport.RejectReasonFileTooBig}, resp)
}

func TestTransferStatsAndParams(t *testing.T) {
	te := newTestEngine(t, nil, nil)
	_, err := te.core.StartTransfer(transferRequest(1, 300, 100))
	require.NoError(t, err)
	te.deliver(t, 1, testData(150), 100)

	stats, err := te.TransferStats(1)
	require.NoError(t, err)
	assert.Equal(t, uint8(50), stats.ProgressPercent)
	assert.Equal(t, uint32(150), stats.FileOffset)

	params, mismatches, err := te.TransferParams(1)
	require.NoError(t, err)
	assert.Empty(t, mismatches)
	assert.Equal(t, uint32(100), params.FragmentSize)

	_, _, err = te.TransferParams(9)
	assert.ErrorIs(t, err, transport.ErrUnknownTransfer)
}

func TestInitDeinit(t *testing.T) {
	te := newTestEngine(t, nil, nil)
	assert.ErrorIs(t, te.Init(), transport.ErrAlreadyInitialized)

	_, err := te.core.StartTransfer(transferRequest(1, 100, 100))
	require.NoError(t, err)

	require.NoError(t, te.Deinit())
	assert.False(t, te.Initialized())
	assert.Empty(t, te.Transfers())
	assert.Zero(t, te.pool.InUse())
	assert.ErrorIs(t, te.Deinit(), transport.ErrNotInitialized)
	assert.ErrorIs(t, te.Cancel(1, transport.RejectReasonGeneric), transport.ErrNotInitialized)

	_, err = te.TransferStats(1)
	assert.ErrorIs(t, err, transport.ErrNotInitialized)

	require.NoError(t, te.Init())
	_, err = te.core.StartTransfer(transferRequest(1, 100, 100))
	assert.NoError(t, err)
}

func TestDeinitCancelsPendingReleases(t *testing.T) {
	te := newTestEngine(t, nil, nil)
	_, err := te.core.StartTransfer(transferRequest(1, 300, 100))
	require.NoError(t, err)
	require.NoError(t, te.core.SendNext(1, testData(100)))
	require.Equal(t, 1, te.PendingTimers())

	require.NoError(t, te.Deinit())
	assert.Zero(t, te.PendingTimers())

	te.clock.Advance(time.Second)
	assert.Zero(t, te.Iterate())
	assert.Zero(t, te.core.Count(sim.EventBufferReleased, 1))
}

func TestZeroDelayPolicyIsKept(t *testing.T) {
	te := newTestEngine(t, nil, func(o *Options) { o.Policy = file.Policy{} })
	assert.Equal(t, file.Policy{}, te.Policy())

	_, err := te.core.StartTransfer(transferRequest(1, 100, 100))
	require.NoError(t, err)
	require.NoError(t, te.core.SendNext(1, testData(100)))
	te.clock.Advance(0)
	te.Iterate()
	assert.False(t, te.core.Busy(1))
}

func TestCloseRejectsWork(t *testing.T) {
	te := newTestEngine(t, nil, nil)
	require.NoError(t, te.Close())
	require.NoError(t, te.Close())

	assert.Error(t, te.Submit(func() {}))
	assert.ErrorIs(t, te.Init(), ErrClosed)
}

func TestRunWithRealTimers(t *testing.T) {
	core := sim.NewCore(sim.Options{})
	options := NewOptions()
	options.Policy.ReleaseDelay = time.Millisecond
	options.Policy.FinalizeDelay = 0

	engine, err := New(core, nil, options)
	require.NoError(t, err)
	defer engine.Close()
	require.NoError(t, engine.Init())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- engine.Run(ctx) }()

	var startErr error
	require.NoError(t, engine.SubmitWait(ctx, func() {
		_, startErr = core.StartTransfer(transferRequest(1, 4, 100))
		if startErr == nil {
			startErr = core.SendNext(1, []byte("data"))
		}
	}))
	require.NoError(t, startErr)

	require.Eventually(t, func() bool {
		var busy bool
		_ = engine.SubmitWait(ctx, func() { busy = core.Busy(1) })
		return !busy
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, engine.SubmitWait(ctx, func() { startErr = core.RequestFinalize(1) }))
	require.NoError(t, startErr)

	require.Eventually(t, func() bool {
		return core.Count(sim.EventFinalized, 1) == 1
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
