package file

import (
	"errors"
	"sync"

	"github.com/opd-ai/sbdt/sink"
	"github.com/opd-ai/sbdt/storage"
	"github.com/opd-ai/sbdt/transport"
)

type coreCall struct {
	fileID uint32
	buffer transport.Buffer
	status transport.FinalStatus
	reason transport.RejectReason
}

// mockCore records the calls the manager makes back into the core.
type mockCore struct {
	mu        sync.Mutex
	released  []coreCall
	finalized []coreCall
	cancelled []coreCall
	err       error
}

func (m *mockCore) Init(transport.Callbacks) error { return nil }
func (m *mockCore) Deinit() error                  { return nil }

func (m *mockCore) Cancel(fileID uint32, reason transport.RejectReason) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled = append(m.cancelled, coreCall{fileID: fileID, reason: reason})
	return m.err
}

func (m *mockCore) ReleaseBuffer(fileID uint32, buf transport.Buffer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released = append(m.released, coreCall{fileID: fileID, buffer: buf})
	return m.err
}

func (m *mockCore) Finalize(fileID uint32, status transport.FinalStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finalized = append(m.finalized, coreCall{fileID: fileID, status: status})
	return m.err
}

func (m *mockCore) TransferStats(uint32) (transport.Stats, error) {
	return transport.Stats{}, nil
}

func (m *mockCore) TransferParams(uint32) (transport.Params, error) {
	return transport.Params{}, nil
}

// memKV is a map-backed storage.KV.
type memKV struct {
	records map[uint16]map[uint32][]byte
	failSet bool
}

func newMemKV() *memKV {
	return &memKV{records: make(map[uint16]map[uint32][]byte)}
}

func (m *memKV) RecordGet(group uint16, key uint32) ([]byte, error) {
	v, ok := m.records[group][key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return v, nil
}

func (m *memKV) RecordSet(group uint16, key uint32, value []byte) error {
	if m.failSet {
		return errors.New("flash write failed")
	}
	if m.records[group] == nil {
		m.records[group] = make(map[uint32][]byte)
	}
	m.records[group][key] = append([]byte(nil), value...)
	return nil
}

func (m *memKV) RecordDelete(group uint16, key uint32) error {
	delete(m.records[group], key)
	return nil
}

func (m *memKV) GroupDelete(group uint16) error {
	delete(m.records, group)
	return nil
}

// failingProvider refuses every allocation.
type failingProvider struct {
	freed []uint32
}

func (f *failingProvider) Allocate(uint32, int) ([]byte, error) {
	return nil, errors.New("out of memory")
}

func (f *failingProvider) Free(fileID uint32) {
	f.freed = append(f.freed, fileID)
}

// mockSink records sink traffic and fails on demand.
type mockSink struct {
	openErr   error
	writeErr  error
	commitErr error

	opened    []uint32
	written   map[uint32][]byte
	committed []uint32
	aborted   []uint32
}

func newMockSink() *mockSink {
	return &mockSink{written: make(map[uint32][]byte)}
}

func (s *mockSink) Open(fileID, size uint32) error {
	if s.openErr != nil {
		return s.openErr
	}
	s.opened = append(s.opened, fileID)
	return nil
}

func (s *mockSink) Write(fileID, offset uint32, data []byte) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.written[fileID] = append(s.written[fileID], data...)
	return nil
}

func (s *mockSink) Commit(fileID uint32) (sink.Result, error) {
	if s.commitErr != nil {
		return sink.Result{}, s.commitErr
	}
	s.committed = append(s.committed, fileID)
	return sink.Result{FileID: fileID}, nil
}

func (s *mockSink) Abort(fileID uint32) error {
	s.aborted = append(s.aborted, fileID)
	return nil
}
