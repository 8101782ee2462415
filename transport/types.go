//go:generate go run go.uber.org/mock/mockgen -source=types.go -destination=../mocks/mock_transport.go -package=mocks
package transport

import "errors"

var (
	// ErrNotInitialized indicates a Core call before Init or after Deinit.
	ErrNotInitialized = errors.New("transport core not initialized")

	// ErrAlreadyInitialized indicates a second Init without Deinit.
	ErrAlreadyInitialized = errors.New("transport core already initialized")

	// ErrUnknownTransfer indicates a file id the core has no transfer for.
	ErrUnknownTransfer = errors.New("unknown transfer")

	// ErrInvalidBuffer indicates a released buffer the core never delivered.
	ErrInvalidBuffer = errors.New("buffer was not delivered by the core")
)

// Callbacks is implemented by the engine and registered with Core.Init.
// The receiver plays the role of the opaque user context.
//
// The core invokes every callback from the goroutine that consumes the
// engine's event queue. Implementations must not block.
type Callbacks interface {
	// OnTransferRequest decides whether to accept an incoming transfer.
	OnTransferRequest(req *TransferRequest) TransferResponse

	// OnDataReceived delivers a chunk. The buffer stays owned by the
	// application until it is returned with Core.ReleaseBuffer.
	OnDataReceived(desc DataDesc, buf Buffer)

	// OnFinalizeRequest asks the application to confirm a received file with
	// Core.Finalize.
	OnFinalizeRequest(fileID uint32)

	// OnCancelRequest reports a transfer cancelled by the remote side.
	OnCancelRequest(fileID uint32)

	// OnError reports a transfer aborted by the core.
	OnError(fileID uint32)

	// OnReleaseScratchBuffer hands the scratch buffer back. It is delivered
	// exactly once for every accepted transfer.
	OnReleaseScratchBuffer(fileID uint32)
}

// Core is the transport core API consumed by the engine.
type Core interface {
	// Init registers the callbacks.
	Init(cb Callbacks) error

	// Deinit unregisters the callbacks and cancels ongoing transfers.
	Deinit() error

	// Cancel aborts a transfer from the application side.
	Cancel(fileID uint32, reason RejectReason) error

	// ReleaseBuffer returns a buffer delivered by OnDataReceived.
	ReleaseBuffer(fileID uint32, buf Buffer) error

	// Finalize acknowledges a finalize request.
	Finalize(fileID uint32, status FinalStatus) error

	// TransferStats reports progress of a transfer.
	TransferStats(fileID uint32) (Stats, error)

	// TransferParams reports negotiated parameters of a transfer.
	TransferParams(fileID uint32) (Params, error)
}

const (
	// scratchOverhead is the per-fragment staging header kept by the core.
	scratchOverhead = 16
	// scratchAlignment is the allocation granularity of the staging area.
	scratchAlignment = 64
)

// MinScratchBufferSize returns the smallest scratch buffer the core needs to
// stage fragments of fragmentSize bytes. It is a pure function and is
// evaluated before accepting a transfer.
func MinScratchBufferSize(fragmentSize uint32) int {
	if fragmentSize == 0 {
		return 0
	}
	n := int(fragmentSize) + scratchOverhead
	return (n + scratchAlignment - 1) / scratchAlignment * scratchAlignment
}
