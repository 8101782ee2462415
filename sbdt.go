package sbdt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/sbdt/file"
	"github.com/opd-ai/sbdt/limits"
	"github.com/opd-ai/sbdt/queue"
	"github.com/opd-ai/sbdt/scheduler"
	"github.com/opd-ai/sbdt/scratch"
	"github.com/opd-ai/sbdt/sink"
	"github.com/opd-ai/sbdt/storage"
	"github.com/opd-ai/sbdt/transport"
)

var (
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("engine closed")
	// ErrInvalidReason is returned by Cancel for reasons outside the
	// enumeration.
	ErrInvalidReason = errors.New("invalid cancel reason")
)

// Options contains configuration options for creating an Engine.
type Options struct {
	// QueueCapacity bounds the application event queue.
	QueueCapacity int
	// ScratchBuffers is the number of scratch pool slots.
	ScratchBuffers int
	// ChecksumKeyMode selects how running checksums are keyed in the store.
	ChecksumKeyMode storage.KeyMode
	// SinkDir enables writing received files to disk when non-empty.
	SinkDir string
	// MaxFileSize bounds a single transfer written by the sink.
	MaxFileSize uint64
	// Policy is the initial transfer policy.
	Policy file.Policy
	// TimeProvider arms the response timers. Nil selects real time.
	TimeProvider scheduler.TimeProvider
	// IterationInterval is the recommended sleep between Iterate calls.
	IterationInterval time.Duration
}

// NewOptions creates a new default Options.
func NewOptions() *Options {
	return &Options{
		QueueCapacity:     queue.DefaultCapacity,
		ScratchBuffers:    limits.MaxScratchBuffers,
		ChecksumKeyMode:   storage.KeyModeShared,
		MaxFileSize:       sink.DefaultMaxFileSize,
		Policy:            file.DefaultPolicy(),
		IterationInterval: 10 * time.Millisecond,
	}
}

// Engine owns the transfer state machine and its collaborators. The
// goroutine calling Iterate or Run is the consumer goroutine: transport
// callbacks and every method documented as consumer-only must run there.
type Engine struct {
	options *Options

	core      transport.Core
	queue     *queue.Queue
	scheduler *scheduler.Scheduler
	pool      *scratch.Pool
	checksums *storage.ChecksumStore
	sink      *sink.DiskSink
	manager   *file.Manager

	mu          sync.Mutex
	initialized bool
	closed      bool
}

// New creates an engine over core. kv may be nil, in which case running
// checksums are kept in memory only.
func New(core transport.Core, kv storage.KV, options *Options) (*Engine, error) {
	if core == nil {
		return nil, errors.New("transport core is required")
	}
	if options == nil {
		options = NewOptions()
	}

	logrus.WithFields(logrus.Fields{
		"function":       "New",
		"queue_capacity": options.QueueCapacity,
		"scratch_slots":  options.ScratchBuffers,
		"key_mode":       options.ChecksumKeyMode.String(),
		"sink_dir":       options.SinkDir,
	}).Info("Creating transfer engine")

	e := &Engine{
		options:   options,
		core:      core,
		queue:     queue.New(options.QueueCapacity),
		scheduler: scheduler.New(options.TimeProvider),
		pool:      scratch.NewPool(options.ScratchBuffers),
	}

	if kv != nil {
		e.checksums = storage.NewChecksumStore(kv, options.ChecksumKeyMode)
	} else {
		logrus.WithField("function", "New").Warn("No durable store, checksums will not survive a restart")
	}

	cfg := file.Config{
		Core:      core,
		Queue:     e.queue,
		Scheduler: e.scheduler,
		Scratch:   e.pool,
		Checksums: e.checksums,
		Policy:    options.Policy,
	}

	if options.SinkDir != "" {
		s, err := sink.New(sink.Options{Dir: options.SinkDir, MaxFileSize: options.MaxFileSize})
		if err != nil {
			return nil, fmt.Errorf("create sink: %w", err)
		}
		e.sink = s
		cfg.Sink = s
	}

	manager, err := file.NewManager(cfg)
	if err != nil {
		return nil, err
	}
	e.manager = manager

	return e, nil
}

// Init registers the engine with the transport core.
func (e *Engine) Init() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	if e.initialized {
		return transport.ErrAlreadyInitialized
	}
	if err := e.core.Init(e.manager); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Init",
			"error":    err.Error(),
		}).Error("Transport core init failed")
		return fmt.Errorf("init transport core: %w", err)
	}
	e.initialized = true

	logrus.WithField("function", "Init").Info("Transfer engine initialized")
	return nil
}

// Deinit unregisters from the core and drops every live transfer. Consumer
// goroutine only.
func (e *Engine) Deinit() error {
	e.mu.Lock()
	if !e.initialized {
		e.mu.Unlock()
		return transport.ErrNotInitialized
	}
	e.initialized = false
	e.mu.Unlock()

	err := e.core.Deinit()
	dropped := e.manager.ReleaseAll()

	logrus.WithFields(logrus.Fields{
		"function": "Deinit",
		"dropped":  dropped,
	}).Info("Transfer engine deinitialized")

	if err != nil {
		return fmt.Errorf("deinit transport core: %w", err)
	}
	return nil
}

// Initialized reports whether Init succeeded and Deinit has not run since.
func (e *Engine) Initialized() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initialized
}

// Iterate handles every message queued so far and returns how many it
// handled. It never blocks.
func (e *Engine) Iterate() int {
	n := e.queue.Len()
	handled := 0
	for i := 0; i < n; i++ {
		msg, ok := e.queue.TryNext()
		if !ok {
			break
		}
		e.manager.HandleMessage(msg)
		handled++
	}
	return handled
}

// Run consumes the queue until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	logrus.WithField("function", "Run").Debug("Event loop started")
	for {
		select {
		case <-ctx.Done():
			logrus.WithField("function", "Run").Debug("Event loop stopped")
			return ctx.Err()
		case msg := <-e.queue.C():
			e.manager.HandleMessage(msg)
		}
	}
}

// IterationInterval returns the recommended interval between iterations.
func (e *Engine) IterationInterval() time.Duration {
	return e.options.IterationInterval
}

// Submit queues fn to run on the consumer goroutine.
func (e *Engine) Submit(fn func()) error {
	return e.queue.Post(queue.Message{Kind: queue.KindCall, Call: fn})
}

// SubmitWait queues fn and waits until the consumer has run it. It must not
// be called from the consumer goroutine.
func (e *Engine) SubmitWait(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	err := e.queue.Post(queue.Message{Kind: queue.KindCall, Call: fn, Done: func() { close(done) }})
	if err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel asks the core to abort a transfer. The call is queued and reaches
// the core from the consumer goroutine.
func (e *Engine) Cancel(fileID uint32, reason transport.RejectReason) error {
	if !reason.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidReason, reason)
	}
	if !e.Initialized() {
		return transport.ErrNotInitialized
	}

	logrus.WithFields(logrus.Fields{
		"function": "Cancel",
		"file_id":  fileID,
		"reason":   reason.String(),
	}).Info("Cancelling transfer")

	return e.queue.Post(queue.Message{Kind: queue.KindCancel, FileID: fileID, Reason: reason})
}

// Policy returns the current transfer policy.
func (e *Engine) Policy() file.Policy {
	return e.manager.Policy()
}

// SetPolicy replaces the transfer policy.
func (e *Engine) SetPolicy(p file.Policy) error {
	return e.manager.SetPolicy(p)
}

// TransferStarted reports whether a transfer is in progress.
func (e *Engine) TransferStarted() bool {
	return e.manager.TransferStarted()
}

// TransferStats queries the core for a transfer's progress.
func (e *Engine) TransferStats(fileID uint32) (transport.Stats, error) {
	if !e.Initialized() {
		return transport.Stats{}, transport.ErrNotInitialized
	}
	return e.core.TransferStats(fileID)
}

// TransferParams queries the core for a transfer's parameters and compares
// them with the engine's record. Every difference is logged and returned.
// Consumer goroutine only.
func (e *Engine) TransferParams(fileID uint32) (transport.Params, []string, error) {
	if !e.Initialized() {
		return transport.Params{}, nil, transport.ErrNotInitialized
	}
	params, err := e.core.TransferParams(fileID)
	if err != nil {
		return transport.Params{}, nil, err
	}

	rec, err := e.manager.Registry().Lookup(fileID)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "TransferParams",
			"file_id":  fileID,
		}).Warn("Core reports a transfer the engine has no record of")
		return params, []string{"no engine record"}, nil
	}

	mismatches := rec.Mismatches(params)
	for _, m := range mismatches {
		logrus.WithFields(logrus.Fields{
			"function": "TransferParams",
			"file_id":  fileID,
		}).Warn("Parameter mismatch: " + m)
	}
	return params, mismatches, nil
}

// Transfers returns a snapshot of the live transfer records. Consumer
// goroutine only.
func (e *Engine) Transfers() []file.TransferRecord {
	return e.manager.Registry().Live()
}

// Transfer returns a copy of one live record. Consumer goroutine only.
func (e *Engine) Transfer(fileID uint32) (file.TransferRecord, error) {
	rec, err := e.manager.Registry().Lookup(fileID)
	if err != nil {
		return file.TransferRecord{}, err
	}
	out := *rec
	out.Scratch = nil
	return out, nil
}

// Checksums returns the durable checksum store, or nil.
func (e *Engine) Checksums() *storage.ChecksumStore {
	return e.checksums
}

// Callbacks returns the transport callbacks registered by Init.
func (e *Engine) Callbacks() transport.Callbacks {
	return e.manager
}

// PendingTimers returns the number of armed response timers.
func (e *Engine) PendingTimers() int {
	return e.scheduler.Pending()
}

// Close stops timers, rejects further queued work and discards unfinished
// sink output. It does not deinitialize the core.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	e.scheduler.Stop()
	e.queue.Close()

	logrus.WithField("function", "Close").Info("Transfer engine closed")

	if e.sink != nil {
		return e.sink.Close()
	}
	return nil
}
