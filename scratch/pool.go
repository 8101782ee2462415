// Package scratch provides the scratch buffers the engine hands to the
// transport core for staging incoming fragments.
package scratch

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/sbdt/limits"
)

var (
	// ErrPoolExhausted indicates every slot is in use.
	ErrPoolExhausted = errors.New("scratch pool exhausted")

	// ErrAlreadyAssigned indicates a buffer already exists for the file id.
	ErrAlreadyAssigned = errors.New("scratch buffer already assigned to file")
)

// Provider hands out scratch buffers keyed by file id.
type Provider interface {
	// Allocate returns a zeroed buffer of at least size bytes for fileID.
	Allocate(fileID uint32, size int) ([]byte, error)

	// Free releases the buffer of fileID. Freeing an unknown id is a no-op.
	Free(fileID uint32)
}

type slot struct {
	fileID uint32
	used   bool
	buffer []byte
}

// Pool is a fixed-slot Provider. A file id can own at most one buffer.
type Pool struct {
	mu    sync.Mutex
	slots []slot
}

// NewPool creates a pool with the given number of slots. A non-positive
// capacity falls back to limits.MaxScratchBuffers.
func NewPool(capacity int) *Pool {
	if capacity <= 0 {
		capacity = limits.MaxScratchBuffers
	}
	return &Pool{slots: make([]slot, capacity)}
}

// Allocate implements Provider.
func (p *Pool) Allocate(fileID uint32, size int) ([]byte, error) {
	if err := limits.ValidateScratchSize(size); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Pool.Allocate",
			"file_id":  fileID,
			"size":     size,
			"error":    err.Error(),
		}).Error("Rejected scratch buffer request")
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	free := -1
	for i := range p.slots {
		if p.slots[i].used && p.slots[i].fileID == fileID {
			logrus.WithFields(logrus.Fields{
				"function": "Pool.Allocate",
				"file_id":  fileID,
			}).Error("Buffer already assigned to file")
			return nil, fmt.Errorf("%w: file %d", ErrAlreadyAssigned, fileID)
		}
		if free < 0 && !p.slots[i].used {
			free = i
		}
	}

	if free < 0 {
		logrus.WithFields(logrus.Fields{
			"function": "Pool.Allocate",
			"file_id":  fileID,
			"capacity": len(p.slots),
		}).Error("Too many scratch buffers")
		return nil, ErrPoolExhausted
	}

	p.slots[free] = slot{fileID: fileID, used: true, buffer: make([]byte, size)}

	logrus.WithFields(logrus.Fields{
		"function": "Pool.Allocate",
		"file_id":  fileID,
		"size":     size,
		"slot":     free,
	}).Debug("Scratch buffer allocated")

	return p.slots[free].buffer, nil
}

// Free implements Provider.
func (p *Pool) Free(fileID uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.slots {
		if p.slots[i].used && p.slots[i].fileID == fileID {
			p.slots[i] = slot{}
			return
		}
	}

	logrus.WithFields(logrus.Fields{
		"function": "Pool.Free",
		"file_id":  fileID,
	}).Debug("No scratch buffer for file")
}

// InUse returns the number of assigned slots.
func (p *Pool) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for i := range p.slots {
		if p.slots[i].used {
			n++
		}
	}
	return n
}
