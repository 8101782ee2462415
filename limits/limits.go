// Package limits provides centralized size and capacity limits for the bulk
// data transfer engine. This ensures consistent validation across the
// registry, the scratch pool and the operator shell.
package limits

import (
	"errors"
	"fmt"

	"github.com/samber/lo"
)

const (
	// MaxParallelTransfers is the number of transfer records that can be live
	// at the same time.
	MaxParallelTransfers = 3

	// MaxScratchBuffers is the number of scratch buffers the default pool hands
	// out at once. It matches MaxParallelTransfers so that every live record
	// can own one buffer.
	MaxScratchBuffers = MaxParallelTransfers

	// MaxDescriptorSize is the largest opaque file descriptor the transport
	// core may attach to a transfer request.
	MaxDescriptorSize = 128

	// MaxScratchBufferSize caps a single scratch allocation (64 KiB).
	MaxScratchBufferSize = 64 * 1024

	// MaxFinalizeDelaySeconds and MaxReleaseDelayMillis bound the policy
	// delays. Both come from 16 bit shell arguments.
	MaxFinalizeDelaySeconds = 65535
	MaxReleaseDelayMillis   = 65535
)

// ValidFragmentSizes lists the block sizes the transport core negotiates.
var ValidFragmentSizes = []uint32{1024, 2048, 3072, 4096, 5120, 6144, 7168, 8192}

var (
	// ErrDescriptorTooLarge indicates a descriptor exceeding MaxDescriptorSize.
	ErrDescriptorTooLarge = errors.New("file descriptor too large")

	// ErrScratchSizeInvalid indicates a scratch request that is empty or too large.
	ErrScratchSizeInvalid = errors.New("invalid scratch buffer size")
)

// ValidateDescriptor checks a file descriptor against MaxDescriptorSize.
// An empty descriptor is valid.
func ValidateDescriptor(descriptor []byte) error {
	if len(descriptor) > MaxDescriptorSize {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrDescriptorTooLarge, len(descriptor), MaxDescriptorSize)
	}
	return nil
}

// ValidateScratchSize validates a requested scratch buffer size.
func ValidateScratchSize(size int) error {
	if size <= 0 || size > MaxScratchBufferSize {
		return fmt.Errorf("%w: size %d not in (0, %d]", ErrScratchSizeInvalid, size, MaxScratchBufferSize)
	}
	return nil
}

// IsValidFragmentSize reports whether size is one of ValidFragmentSizes.
func IsValidFragmentSize(size uint32) bool {
	return lo.Contains(ValidFragmentSizes, size)
}
