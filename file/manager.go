package file

import (
	"errors"
	"fmt"
	"hash/crc32"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/sbdt/limits"
	"github.com/opd-ai/sbdt/queue"
	"github.com/opd-ai/sbdt/scheduler"
	"github.com/opd-ai/sbdt/scratch"
	"github.com/opd-ai/sbdt/sink"
	"github.com/opd-ai/sbdt/storage"
	"github.com/opd-ai/sbdt/transport"
)

// Sink receives the data of accepted transfers. *sink.DiskSink implements it.
type Sink interface {
	Open(fileID, size uint32) error
	Write(fileID, offset uint32, data []byte) error
	Commit(fileID uint32) (sink.Result, error)
	Abort(fileID uint32) error
}

// Config wires a Manager to its collaborators. Checksums and Sink are
// optional.
type Config struct {
	Core      transport.Core
	Queue     *queue.Queue
	Scheduler *scheduler.Scheduler
	Scratch   scratch.Provider
	Checksums *storage.ChecksumStore
	Sink      Sink
	Policy    Policy
}

type releasePayload struct {
	fileID uint32
	buffer transport.Buffer
}

type finalizePayload struct {
	fileID uint32
	status transport.FinalStatus
}

// Manager dispatches the transport core callbacks. The callbacks and
// HandleMessage must run on the engine's consumer goroutine; Policy and
// SetPolicy may be called from anywhere.
type Manager struct {
	core      transport.Core
	queue     *queue.Queue
	scheduler *scheduler.Scheduler
	scratch   scratch.Provider
	checksums *storage.ChecksumStore
	sink      Sink

	registry *Registry

	mu      sync.RWMutex
	policy  Policy
	started bool
}

var _ transport.Callbacks = (*Manager)(nil)

// NewManager validates cfg and creates a Manager with an empty registry.
// cfg.Policy is used as given; callers wanting the defaults pass
// DefaultPolicy.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Core == nil || cfg.Queue == nil || cfg.Scheduler == nil || cfg.Scratch == nil {
		return nil, errors.New("file manager requires core, queue, scheduler and scratch provider")
	}
	if err := cfg.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function":  "NewManager",
		"capacity":  limits.MaxParallelTransfers,
		"checksums": cfg.Checksums != nil,
		"sink":      cfg.Sink != nil,
	}).Info("Creating transfer manager")

	return &Manager{
		core:      cfg.Core,
		queue:     cfg.Queue,
		scheduler: cfg.Scheduler,
		scratch:   cfg.Scratch,
		checksums: cfg.Checksums,
		sink:      cfg.Sink,
		registry:  NewRegistry(),
		policy:    cfg.Policy,
	}, nil
}

// Policy returns the current policy.
func (m *Manager) Policy() Policy {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.policy
}

// SetPolicy replaces the policy. It applies to the next callback.
func (m *Manager) SetPolicy(p Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.policy = p
	m.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":        "SetPolicy",
		"action":          p.Action.String(),
		"reject_reason":   p.RejectReason.String(),
		"finalize_status": p.FinalizeStatus.String(),
		"finalize_delay":  p.FinalizeDelay,
		"release_delay":   p.ReleaseDelay,
	}).Info("Transfer policy updated")
	return nil
}

// TransferStarted reports whether a transfer was accepted and not yet
// released.
func (m *Manager) TransferStarted() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.started
}

func (m *Manager) setStarted(v bool) {
	m.mu.Lock()
	m.started = v
	m.mu.Unlock()
}

// Registry exposes the transfer table to the consumer goroutine.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// OnTransferRequest decides whether to accept a new transfer.
func (m *Manager) OnTransferRequest(req *transport.TransferRequest) transport.TransferResponse {
	if req == nil {
		logrus.WithField("function", "OnTransferRequest").Warn("Nil transfer request")
		return transport.Rejected{Reason: transport.RejectReasonGeneric}
	}
	policy := m.Policy()

	fields := logrus.Fields{
		"function":      "OnTransferRequest",
		"file_id":       req.FileID,
		"file_size":     req.FileSize,
		"fragment_size": req.FragmentSize,
		"file_offset":   req.FileOffset,
		"min_scratch":   req.MinimumScratchBufferSize,
	}
	logrus.WithFields(fields).Info("Transfer request")

	if _, err := m.registry.Lookup(req.FileID); err == nil {
		logrus.WithFields(fields).Warn("Transfer already live, releasing stale record")
		m.discard(req.FileID)
	}

	// A full table answers NO_SPACE whatever the request carries.
	if m.registry.Len() >= m.registry.Cap() {
		logrus.WithFields(fields).Warn("No free transfer slot")
		return transport.Rejected{Reason: transport.RejectReasonNoSpace}
	}

	if err := limits.ValidateDescriptor(req.Descriptor); err != nil {
		logrus.WithFields(fields).WithError(err).Warn("Rejecting transfer")
		return transport.Rejected{Reason: transport.RejectReasonGeneric}
	}

	rec, err := m.registry.Allocate(req.FileID)
	if err != nil {
		logrus.WithFields(fields).WithError(err).Warn("No free transfer slot")
		return transport.Rejected{Reason: transport.RejectReasonNoSpace}
	}
	rec.FileSize = req.FileSize
	rec.BlockSize = req.FragmentSize
	rec.FileOffset = req.FileOffset
	rec.Received = req.FileOffset
	rec.MinimumScratchSize = req.MinimumScratchBufferSize
	rec.SetDescriptor(req.Descriptor)

	buf, err := m.scratch.Allocate(req.FileID, req.MinimumScratchBufferSize)
	if err != nil {
		logrus.WithFields(fields).WithError(err).Error("Scratch buffer allocation failed")
		m.registry.Release(req.FileID)
		return transport.Rejected{Reason: policy.RejectReason}
	}
	rec.Scratch = buf

	if m.sink != nil {
		if err := m.sink.Open(req.FileID, req.FileSize); err != nil {
			reason := sinkRejectReason(err)
			logrus.WithFields(fields).WithError(err).WithField("reason", reason.String()).Warn("Transfer output unavailable")
			m.scratch.Free(req.FileID)
			m.registry.Release(req.FileID)
			return transport.Rejected{Reason: reason}
		}
	}

	if policy.Action == transport.ActionReject {
		logrus.WithFields(fields).WithField("reason", policy.RejectReason.String()).Info("Transfer rejected by policy")
		m.discard(req.FileID)
		return transport.Rejected{Reason: policy.RejectReason}
	}

	m.setStarted(true)
	logrus.WithFields(fields).Info("Transfer accepted")
	return transport.Accepted{ScratchBuffer: buf}
}

// OnDataReceived folds a chunk into the running checksum and schedules the
// buffer's return to the core.
func (m *Manager) OnDataReceived(desc transport.DataDesc, buf transport.Buffer) {
	rec, err := m.registry.Lookup(desc.FileID)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "OnDataReceived",
			"file_id":  desc.FileID,
		}).Debug("Data for unknown transfer ignored")
		return
	}

	crc := rec.RunningChecksum
	if desc.FileOffset == 0 {
		crc = 0
		if m.checksums != nil {
			if err := m.checksums.Reset(desc.FileID); err != nil {
				logrus.WithFields(logrus.Fields{
					"function": "OnDataReceived",
					"file_id":  desc.FileID,
					"error":    err.Error(),
				}).Warn("Failed to reset persisted checksum")
			}
		}
	} else if m.checksums != nil {
		stored, found, err := m.checksums.Load(desc.FileID)
		switch {
		case err != nil:
			logrus.WithFields(logrus.Fields{
				"function": "OnDataReceived",
				"file_id":  desc.FileID,
				"error":    err.Error(),
			}).Warn("Failed to read persisted checksum")
		case found:
			crc = stored
		}
	}

	crc = crc32.Update(crc, crc32.IEEETable, buf.Data)
	rec.RunningChecksum = crc
	rec.FileOffset = desc.FileOffset
	rec.Received = desc.FileOffset + uint32(len(buf.Data))

	if m.checksums != nil {
		if err := m.checksums.Save(desc.FileID, crc); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "OnDataReceived",
				"file_id":  desc.FileID,
				"error":    err.Error(),
			}).Warn("Failed to persist checksum")
		}
	}

	logrus.WithFields(logrus.Fields{
		"function":  "OnDataReceived",
		"file_id":   desc.FileID,
		"link":      desc.LinkType.String(),
		"offset":    desc.FileOffset,
		"size":      len(buf.Data),
		"crc32":     fmt.Sprintf("0x%08x", crc),
		"file_size": rec.FileSize,
	}).Debug("Chunk received")

	if rec.Complete() {
		logrus.WithFields(logrus.Fields{
			"function": "OnDataReceived",
			"file_id":  desc.FileID,
			"crc32":    fmt.Sprintf("0x%08x", crc),
		}).Info("File received")
	}

	if m.sink != nil {
		if err := m.sink.Write(desc.FileID, desc.FileOffset, buf.Data); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "OnDataReceived",
				"file_id":  desc.FileID,
				"error":    err.Error(),
			}).Error("Failed to store chunk, cancelling transfer")
			m.post(queue.Message{
				Kind:   queue.KindCancel,
				FileID: desc.FileID,
				Reason: transport.RejectReasonFileTooBig,
			})
		}
	}

	m.scheduleRelease(desc, buf)
}

// OnFinalizeRequest schedules the finalize acknowledgement. The outcome is
// the policy's at request time; a repeated request replaces the pending one.
func (m *Manager) OnFinalizeRequest(fileID uint32) {
	policy := m.Policy()
	delay := policy.finalizeDelay()

	logrus.WithFields(logrus.Fields{
		"function": "OnFinalizeRequest",
		"file_id":  fileID,
		"status":   policy.FinalizeStatus.String(),
		"delay":    delay,
	}).Info("Finalize requested")

	payload := &finalizePayload{fileID: fileID, status: policy.FinalizeStatus}
	_, err := m.scheduler.Schedule(finalizeKey(fileID), delay, payload, m.fireFinalize, m.finalizeStopped)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "OnFinalizeRequest",
			"file_id":  fileID,
			"error":    err.Error(),
		}).Error("Failed to schedule finalize response")
	}
}

// OnCancelRequest logs a core-side cancel. The core follows up with
// OnReleaseScratchBuffer.
func (m *Manager) OnCancelRequest(fileID uint32) {
	logrus.WithFields(logrus.Fields{
		"function": "OnCancelRequest",
		"file_id":  fileID,
	}).Info("Transfer cancelled by core")
}

// OnError logs a core-side transfer error.
func (m *Manager) OnError(fileID uint32) {
	logrus.WithFields(logrus.Fields{
		"function": "OnError",
		"file_id":  fileID,
	}).Warn("Transfer error reported by core")
}

// OnReleaseScratchBuffer destroys the transfer record. Unknown ids are
// ignored.
func (m *Manager) OnReleaseScratchBuffer(fileID uint32) {
	live := m.discard(fileID)
	m.setStarted(false)

	logrus.WithFields(logrus.Fields{
		"function": "OnReleaseScratchBuffer",
		"file_id":  fileID,
		"released": live,
	}).Info("Scratch buffer released")
}

// ReleaseAll drops every live transfer without calling the core. It is used
// after the core was deinitialized and will deliver no more callbacks.
func (m *Manager) ReleaseAll() int {
	live := m.registry.Live()
	for _, rec := range live {
		m.discard(rec.FileID)
	}
	m.setStarted(false)

	if len(live) > 0 {
		logrus.WithFields(logrus.Fields{
			"function": "ReleaseAll",
			"released": len(live),
		}).Info("Dropped live transfers")
	}
	return len(live)
}

// HandleMessage completes a queued response. It is the only path that calls
// back into the core.
func (m *Manager) HandleMessage(msg queue.Message) {
	if msg.Done != nil {
		defer msg.Done()
	}

	switch msg.Kind {
	case queue.KindReleaseBuffer:
		if err := m.core.ReleaseBuffer(msg.FileID, msg.Buffer); err != nil {
			entry := logrus.WithFields(logrus.Fields{
				"function": "HandleMessage",
				"file_id":  msg.FileID,
				"error":    err.Error(),
			})
			if benignCoreError(err) {
				entry.Debug("Buffer release for a finished transfer skipped")
			} else {
				entry.Error("Failed to release buffer")
			}
		}

	case queue.KindFinalizeResponse:
		status := m.commit(msg.FileID, msg.Status)
		if err := m.core.Finalize(msg.FileID, status); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "HandleMessage",
				"file_id":  msg.FileID,
				"status":   status.String(),
				"error":    err.Error(),
			}).Error("Failed to finalize transfer")
			return
		}
		logrus.WithFields(logrus.Fields{
			"function": "HandleMessage",
			"file_id":  msg.FileID,
			"status":   status.String(),
		}).Info("Finalize response sent")

	case queue.KindCancel:
		if err := m.core.Cancel(msg.FileID, msg.Reason); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "HandleMessage",
				"file_id":  msg.FileID,
				"reason":   msg.Reason.String(),
				"error":    err.Error(),
			}).Error("Failed to cancel transfer")
		}

	case queue.KindCall:
		if msg.Call != nil {
			msg.Call()
		}

	default:
		logrus.WithFields(logrus.Fields{
			"function": "HandleMessage",
			"kind":     msg.Kind.String(),
		}).Warn("Unknown message kind")
	}
}

func (m *Manager) commit(fileID uint32, status transport.FinalStatus) transport.FinalStatus {
	if m.sink == nil || status != transport.FinalStatusSuccess {
		return status
	}
	if _, err := m.sink.Commit(fileID); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "commit",
			"file_id":  fileID,
			"error":    err.Error(),
		}).Error("Failed to commit transfer output")
		return transport.FinalStatusFailure
	}
	return status
}

// scheduleRelease arms the buffer's return under a key unique to the chunk,
// so that discard can cancel every pending release of a file.
func (m *Manager) scheduleRelease(desc transport.DataDesc, buf transport.Buffer) {
	delay := m.Policy().releaseDelay()
	payload := &releasePayload{fileID: desc.FileID, buffer: buf}

	key := releaseKeyPrefix(desc.FileID) + strconv.FormatUint(uint64(desc.FileOffset), 10)
	_, err := m.scheduler.Schedule(key, delay, payload, m.fireRelease, m.releaseStopped)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "scheduleRelease",
			"file_id":  desc.FileID,
			"error":    err.Error(),
		}).Error("Failed to schedule buffer release")
	}
}

// discard drops every resource held for fileID and reports whether a live
// record existed.
func (m *Manager) discard(fileID uint32) bool {
	live := m.registry.Release(fileID)
	m.scratch.Free(fileID)
	m.scheduler.CancelKey(finalizeKey(fileID))
	m.scheduler.CancelPrefix(releaseKeyPrefix(fileID))
	if m.sink != nil {
		if err := m.sink.Abort(fileID); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "discard",
				"file_id":  fileID,
				"error":    err.Error(),
			}).Warn("Failed to discard transfer output")
		}
	}
	return live
}

func (m *Manager) post(msg queue.Message) error {
	err := m.queue.Post(msg)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "post",
			"kind":     msg.Kind.String(),
			"file_id":  msg.FileID,
			"error":    err.Error(),
		}).Error("Dropping queued response")
	}
	return err
}

// fireFinalize hands an expired finalize task to the consumer. When the
// queue refuses it the task ends through its stop hook.
func (m *Manager) fireFinalize(p any) {
	fp := p.(*finalizePayload)
	if err := m.post(queue.Message{Kind: queue.KindFinalizeResponse, FileID: fp.fileID, Status: fp.status}); err != nil {
		m.finalizeStopped(p)
	}
}

// finalizeStopped ends a finalize task that will not reach the core. The
// core gets no acknowledgement and falls back on its own timeout.
func (m *Manager) finalizeStopped(p any) {
	logrus.WithFields(logrus.Fields{
		"function": "finalizeStopped",
		"file_id":  p.(*finalizePayload).fileID,
		"status":   p.(*finalizePayload).status.String(),
	}).Debug("Pending finalize response dropped")
}

func (m *Manager) fireRelease(p any) {
	rp := p.(*releasePayload)
	if err := m.post(queue.Message{Kind: queue.KindReleaseBuffer, FileID: rp.fileID, Buffer: rp.buffer}); err != nil {
		m.releaseStopped(p)
	}
}

// releaseStopped ends a release task whose buffer will not be returned.
func (m *Manager) releaseStopped(p any) {
	rp := p.(*releasePayload)
	logrus.WithFields(logrus.Fields{
		"function": "releaseStopped",
		"file_id":  rp.fileID,
		"size":     rp.buffer.Size(),
	}).Debug("Pending buffer release dropped")
}

func finalizeKey(fileID uint32) string {
	return fmt.Sprintf("finalize:%d", fileID)
}

func releaseKeyPrefix(fileID uint32) string {
	return fmt.Sprintf("release:%d:", fileID)
}

// benignCoreError reports core errors expected once a transfer or the core
// itself is gone.
func benignCoreError(err error) bool {
	return errors.Is(err, transport.ErrNotInitialized) || errors.Is(err, transport.ErrUnknownTransfer)
}

func sinkRejectReason(err error) transport.RejectReason {
	switch {
	case errors.Is(err, sink.ErrNoSpace):
		return transport.RejectReasonNoSpace
	case errors.Is(err, sink.ErrFileTooBig):
		return transport.RejectReasonFileTooBig
	default:
		return transport.RejectReasonGeneric
	}
}
