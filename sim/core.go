// Package sim provides an in-memory transport core for tests and demos.
//
// Core drives the engine's callbacks the way a radio core would: it offers
// transfers, stages each chunk in the scratch buffer it was given, waits for
// the buffer to come back before staging the next chunk, and releases the
// scratch buffer once a transfer is finalized, cancelled or failed. Callbacks
// run synchronously on the goroutine calling into Core, so callers use it
// from the engine's consumer goroutine.
package sim

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/sbdt/transport"
)

var (
	// ErrBufferBusy indicates the previous chunk's buffer has not been
	// released yet.
	ErrBufferBusy = errors.New("previous buffer not released")
	// ErrChunkTooLarge indicates a chunk larger than the fragment size or the
	// scratch buffer.
	ErrChunkTooLarge = errors.New("chunk exceeds fragment size")
	// ErrTransferRejected is returned by StartTransfer when the engine
	// refused the transfer.
	ErrTransferRejected = errors.New("transfer rejected")
)

// EventKind tags an Event.
type EventKind uint8

const (
	EventRequest EventKind = iota + 1
	EventData
	EventBufferReleased
	EventFinalizeRequest
	EventFinalized
	EventAppCancel
	EventRemoteCancel
	EventError
	EventScratchReleased
)

var eventNames = map[EventKind]string{
	EventRequest:         "request",
	EventData:            "data",
	EventBufferReleased:  "buffer_released",
	EventFinalizeRequest: "finalize_request",
	EventFinalized:       "finalized",
	EventAppCancel:       "app_cancel",
	EventRemoteCancel:    "remote_cancel",
	EventError:           "error",
	EventScratchReleased: "scratch_released",
}

// String returns the event name.
func (k EventKind) String() string {
	if name, ok := eventNames[k]; ok {
		return name
	}
	return fmt.Sprintf("EventKind(%d)", uint8(k))
}

// Event records one interaction for later verification.
type Event struct {
	Kind   EventKind
	FileID uint32
	Offset uint32
	Size   int
	Status transport.FinalStatus
	Reason transport.RejectReason
}

// Options configures a simulated core.
type Options struct {
	LinkType transport.LinkType
}

type transfer struct {
	req     transport.TransferRequest
	scratch []byte
	offset  uint32
	busy    bool
}

// Core is a simulated transport.Core.
type Core struct {
	opts Options

	mu        sync.Mutex
	callbacks transport.Callbacks
	transfers map[uint32]*transfer
	events    []Event
}

var _ transport.Core = (*Core)(nil)

// NewCore creates an uninitialized simulated core.
func NewCore(opts Options) *Core {
	if opts.LinkType == 0 {
		opts.LinkType = transport.LinkTypeBLE
	}
	logrus.WithFields(logrus.Fields{
		"function": "NewCore",
		"link":     opts.LinkType.String(),
	}).Warn("SIMULATED TRANSPORT CORE - NOT A REAL RADIO")

	return &Core{opts: opts, transfers: make(map[uint32]*transfer)}
}

// Init implements transport.Core.
func (c *Core) Init(cb transport.Callbacks) error {
	if cb == nil {
		return errors.New("nil callbacks")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.callbacks != nil {
		return transport.ErrAlreadyInitialized
	}
	c.callbacks = cb
	return nil
}

// Deinit implements transport.Core. Transfers in flight are dropped without
// callbacks.
func (c *Core) Deinit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.callbacks == nil {
		return transport.ErrNotInitialized
	}
	c.callbacks = nil
	c.transfers = make(map[uint32]*transfer)
	return nil
}

// Initialized reports whether Init succeeded and Deinit was not called since.
func (c *Core) Initialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.callbacks != nil
}

func (c *Core) record(ev Event) {
	c.events = append(c.events, ev)
}

// StartTransfer offers a transfer to the engine.
func (c *Core) StartTransfer(req transport.TransferRequest) (transport.TransferResponse, error) {
	c.mu.Lock()
	cb := c.callbacks
	if cb == nil {
		c.mu.Unlock()
		return nil, transport.ErrNotInitialized
	}
	c.record(Event{Kind: EventRequest, FileID: req.FileID, Size: int(req.FileSize)})
	c.mu.Unlock()

	resp := cb.OnTransferRequest(&req)

	accepted, ok := resp.(transport.Accepted)
	if !ok {
		reason := transport.RejectReasonGeneric
		if r, isRejected := resp.(transport.Rejected); isRejected {
			reason = r.Reason
		}
		logrus.WithFields(logrus.Fields{
			"function": "Core.StartTransfer",
			"file_id":  req.FileID,
			"reason":   reason.String(),
		}).Info("Transfer rejected by engine")
		return resp, fmt.Errorf("%w: %s", ErrTransferRejected, reason)
	}

	need := req.MinimumScratchBufferSize
	if floor := transport.MinScratchBufferSize(req.FragmentSize); floor > need {
		need = floor
	}
	if len(accepted.ScratchBuffer) < need {
		logrus.WithFields(logrus.Fields{
			"function": "Core.StartTransfer",
			"file_id":  req.FileID,
			"size":     len(accepted.ScratchBuffer),
			"need":     need,
		}).Error("Scratch buffer too small")
		c.mu.Lock()
		c.record(Event{Kind: EventError, FileID: req.FileID})
		c.record(Event{Kind: EventScratchReleased, FileID: req.FileID})
		c.mu.Unlock()
		cb.OnError(req.FileID)
		cb.OnReleaseScratchBuffer(req.FileID)
		return resp, fmt.Errorf("%w: %d bytes, need %d", transport.ErrInvalidBuffer, len(accepted.ScratchBuffer), need)
	}

	c.mu.Lock()
	c.transfers[req.FileID] = &transfer{
		req:     req,
		scratch: accepted.ScratchBuffer,
		offset:  req.FileOffset,
	}
	c.mu.Unlock()

	return resp, nil
}

// SendNext stages chunk at the transfer's current offset and delivers it.
func (c *Core) SendNext(fileID uint32, chunk []byte) error {
	c.mu.Lock()
	cb := c.callbacks
	t, ok := c.transfers[fileID]
	switch {
	case cb == nil:
		c.mu.Unlock()
		return transport.ErrNotInitialized
	case !ok:
		c.mu.Unlock()
		return fmt.Errorf("%w: %d", transport.ErrUnknownTransfer, fileID)
	case t.busy:
		c.mu.Unlock()
		return ErrBufferBusy
	case len(chunk) > int(t.req.FragmentSize) || len(chunk) > len(t.scratch):
		c.mu.Unlock()
		return fmt.Errorf("%w: %d bytes", ErrChunkTooLarge, len(chunk))
	}

	n := copy(t.scratch, chunk)
	desc := transport.DataDesc{LinkType: c.opts.LinkType, FileID: fileID, FileOffset: t.offset}
	t.offset += uint32(n)
	t.busy = true
	c.record(Event{Kind: EventData, FileID: fileID, Offset: desc.FileOffset, Size: n})
	buf := transport.Buffer{Data: t.scratch[:n]}
	c.mu.Unlock()

	cb.OnDataReceived(desc, buf)
	return nil
}

// Remaining returns how many bytes of the file are still to be sent.
func (c *Core) Remaining(fileID uint32) (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.transfers[fileID]
	if !ok {
		return 0, fmt.Errorf("%w: %d", transport.ErrUnknownTransfer, fileID)
	}
	if t.offset >= t.req.FileSize {
		return 0, nil
	}
	return t.req.FileSize - t.offset, nil
}

// Busy reports whether a delivered buffer is still held by the engine.
func (c *Core) Busy(fileID uint32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.transfers[fileID]
	return ok && t.busy
}

// RequestFinalize asks the engine to acknowledge the transfer.
func (c *Core) RequestFinalize(fileID uint32) error {
	cb, err := c.lookup(fileID)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.record(Event{Kind: EventFinalizeRequest, FileID: fileID})
	c.mu.Unlock()

	cb.OnFinalizeRequest(fileID)
	return nil
}

// RemoteCancel simulates the peer aborting the transfer.
func (c *Core) RemoteCancel(fileID uint32) error {
	cb, err := c.remove(fileID, Event{Kind: EventRemoteCancel, FileID: fileID})
	if err != nil {
		return err
	}
	cb.OnCancelRequest(fileID)
	cb.OnReleaseScratchBuffer(fileID)
	return nil
}

// Fail simulates a link error on the transfer.
func (c *Core) Fail(fileID uint32) error {
	cb, err := c.remove(fileID, Event{Kind: EventError, FileID: fileID})
	if err != nil {
		return err
	}
	cb.OnError(fileID)
	cb.OnReleaseScratchBuffer(fileID)
	return nil
}

// Cancel implements transport.Core.
func (c *Core) Cancel(fileID uint32, reason transport.RejectReason) error {
	cb, err := c.remove(fileID, Event{Kind: EventAppCancel, FileID: fileID, Reason: reason})
	if err != nil {
		return err
	}
	cb.OnReleaseScratchBuffer(fileID)
	return nil
}

// ReleaseBuffer implements transport.Core.
func (c *Core) ReleaseBuffer(fileID uint32, buf transport.Buffer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.callbacks == nil {
		return transport.ErrNotInitialized
	}
	t, ok := c.transfers[fileID]
	if !ok {
		return fmt.Errorf("%w: %d", transport.ErrUnknownTransfer, fileID)
	}
	if !t.busy {
		return fmt.Errorf("%w: no buffer outstanding for %d", transport.ErrInvalidBuffer, fileID)
	}
	t.busy = false
	c.record(Event{Kind: EventBufferReleased, FileID: fileID, Size: buf.Size()})
	return nil
}

// Finalize implements transport.Core. The scratch buffer is released right
// after the acknowledgement.
func (c *Core) Finalize(fileID uint32, status transport.FinalStatus) error {
	cb, err := c.remove(fileID, Event{Kind: EventFinalized, FileID: fileID, Status: status})
	if err != nil {
		return err
	}
	cb.OnReleaseScratchBuffer(fileID)
	return nil
}

// TransferStats implements transport.Core.
func (c *Core) TransferStats(fileID uint32) (transport.Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.transfers[fileID]
	if !ok {
		return transport.Stats{}, fmt.Errorf("%w: %d", transport.ErrUnknownTransfer, fileID)
	}
	var progress uint8
	if t.req.FileSize > 0 {
		progress = uint8(uint64(t.offset) * 100 / uint64(t.req.FileSize))
	}
	return transport.Stats{ProgressPercent: progress, FileOffset: t.offset}, nil
}

// TransferParams implements transport.Core.
func (c *Core) TransferParams(fileID uint32) (transport.Params, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.transfers[fileID]
	if !ok {
		return transport.Params{}, fmt.Errorf("%w: %d", transport.ErrUnknownTransfer, fileID)
	}
	return transport.Params{
		FragmentSize:             t.req.FragmentSize,
		FileSize:                 t.req.FileSize,
		Descriptor:               append([]byte(nil), t.req.Descriptor...),
		MinimumScratchBufferSize: t.req.MinimumScratchBufferSize,
		ScratchBufferSize:        len(t.scratch),
		ScratchBuffer:            t.scratch,
	}, nil
}

// Events returns a copy of the recorded events.
func (c *Core) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

// Count returns how many events of kind were recorded for fileID.
func (c *Core) Count(kind EventKind, fileID uint32) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, ev := range c.events {
		if ev.Kind == kind && ev.FileID == fileID {
			n++
		}
	}
	return n
}

// Active returns the number of transfers the core is tracking.
func (c *Core) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.transfers)
}

func (c *Core) lookup(fileID uint32) (transport.Callbacks, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.callbacks == nil {
		return nil, transport.ErrNotInitialized
	}
	if _, ok := c.transfers[fileID]; !ok {
		return nil, fmt.Errorf("%w: %d", transport.ErrUnknownTransfer, fileID)
	}
	return c.callbacks, nil
}

// remove forgets the transfer and records ev plus the scratch release that
// the caller delivers next.
func (c *Core) remove(fileID uint32, ev Event) (transport.Callbacks, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.callbacks == nil {
		return nil, transport.ErrNotInitialized
	}
	if _, ok := c.transfers[fileID]; !ok {
		return nil, fmt.Errorf("%w: %d", transport.ErrUnknownTransfer, fileID)
	}
	delete(c.transfers, fileID)
	c.record(ev)
	c.record(Event{Kind: EventScratchReleased, FileID: fileID})
	return c.callbacks, nil
}
