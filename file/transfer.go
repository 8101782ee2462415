package file

import (
	"bytes"
	"fmt"

	"github.com/opd-ai/sbdt/limits"
	"github.com/opd-ai/sbdt/transport"
)

// TransferRecord is the engine's view of one in-flight inbound transfer.
type TransferRecord struct {
	FileID uint32
	Live   bool

	FileSize  uint32
	BlockSize uint32
	// FileOffset is the offset of the most recently accepted chunk.
	FileOffset uint32
	// Received is the end of the most recently accepted chunk.
	Received uint32

	RunningChecksum uint32

	Descriptor     [limits.MaxDescriptorSize]byte
	DescriptorSize uint32

	MinimumScratchSize int
	// Scratch is owned by the transport core once handed over.
	Scratch []byte
}

// DescriptorBytes returns the stored descriptor.
func (r *TransferRecord) DescriptorBytes() []byte {
	return r.Descriptor[:r.DescriptorSize]
}

// SetDescriptor copies d into the record. d must already be validated
// against limits.MaxDescriptorSize.
func (r *TransferRecord) SetDescriptor(d []byte) {
	r.DescriptorSize = uint32(copy(r.Descriptor[:], d))
}

// Complete reports whether the last chunk reached the end of the file.
func (r *TransferRecord) Complete() bool {
	return r.FileSize > 0 && r.Received == r.FileSize
}

// Progress returns the received percentage, 0..100.
func (r *TransferRecord) Progress() uint8 {
	if r.FileSize == 0 {
		return 0
	}
	p := uint64(r.Received) * 100 / uint64(r.FileSize)
	if p > 100 {
		p = 100
	}
	return uint8(p)
}

// Mismatches compares transfer parameters reported by the core with the
// record and describes every field that differs.
func (r *TransferRecord) Mismatches(p transport.Params) []string {
	var out []string
	if p.FragmentSize != r.BlockSize {
		out = append(out, fmt.Sprintf("fragment size: core %d, record %d", p.FragmentSize, r.BlockSize))
	}
	if p.FileSize != r.FileSize {
		out = append(out, fmt.Sprintf("file size: core %d, record %d", p.FileSize, r.FileSize))
	}
	if p.MinimumScratchBufferSize != r.MinimumScratchSize {
		out = append(out, fmt.Sprintf("minimum scratch size: core %d, record %d", p.MinimumScratchBufferSize, r.MinimumScratchSize))
	}
	if !bytes.Equal(p.Descriptor, r.DescriptorBytes()) {
		out = append(out, fmt.Sprintf("descriptor: core %d bytes, record %d bytes", len(p.Descriptor), r.DescriptorSize))
	}
	return out
}
