package file

import (
	"errors"

	"github.com/opd-ai/sbdt/limits"
)

var (
	// ErrRegistryFull indicates every slot holds a live transfer.
	ErrRegistryFull = errors.New("transfer registry full")
	// ErrTransferNotFound indicates no live transfer has the file id.
	ErrTransferNotFound = errors.New("transfer not found")
)

// Registry is a fixed-capacity table of transfer records. It is not safe for
// concurrent use; the engine touches it from its consumer goroutine only.
type Registry struct {
	slots [limits.MaxParallelTransfers]TransferRecord
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Allocate claims the first free slot for fileID. The returned record is
// zeroed except for FileID and Live. It does not check for duplicates.
func (r *Registry) Allocate(fileID uint32) (*TransferRecord, error) {
	for i := range r.slots {
		if !r.slots[i].Live {
			r.slots[i] = TransferRecord{FileID: fileID, Live: true}
			return &r.slots[i], nil
		}
	}
	return nil, ErrRegistryFull
}

// Lookup returns the live record for fileID.
func (r *Registry) Lookup(fileID uint32) (*TransferRecord, error) {
	for i := range r.slots {
		if r.slots[i].Live && r.slots[i].FileID == fileID {
			return &r.slots[i], nil
		}
	}
	return nil, ErrTransferNotFound
}

// Release zeroes the live record for fileID. It reports whether one existed.
func (r *Registry) Release(fileID uint32) bool {
	rec, err := r.Lookup(fileID)
	if err != nil {
		return false
	}
	*rec = TransferRecord{}
	return true
}

// Len returns the number of live records.
func (r *Registry) Len() int {
	n := 0
	for i := range r.slots {
		if r.slots[i].Live {
			n++
		}
	}
	return n
}

// Cap returns the number of slots.
func (r *Registry) Cap() int {
	return len(r.slots)
}

// Live returns copies of the live records in slot order.
func (r *Registry) Live() []TransferRecord {
	out := make([]TransferRecord, 0, len(r.slots))
	for i := range r.slots {
		if r.slots[i].Live {
			rec := r.slots[i]
			rec.Scratch = nil
			out = append(out, rec)
		}
	}
	return out
}
