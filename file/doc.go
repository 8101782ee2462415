// Package file implements the inbound bulk data transfer state machine.
//
// # Overview
//
// The package provides three components:
//
//   - Registry: a fixed-capacity table of TransferRecords, one per in-flight
//     transfer, bounded by limits.MaxParallelTransfers
//   - Policy: how transfer requests and finalize requests are answered, and
//     how long responses are deferred
//   - Manager: the transport.Callbacks implementation that drives the
//     registry, the scratch provider, checksum persistence and the optional
//     output sink
//
// # Transfer Lifecycle
//
// A record is created when a transfer request is accepted, updated on every
// data chunk, and destroyed only by the release-scratch-buffer callback:
//
//	OnTransferRequest      -> Accepted{ScratchBuffer} | Rejected{Reason}
//	OnDataReceived         -> CRC-32 update, checksum persisted, buffer release scheduled
//	OnFinalizeRequest      -> finalize response scheduled
//	OnReleaseScratchBuffer -> record, scratch buffer and sink output dropped
//
// Cancel and error callbacks only log; the core always follows them with a
// release-scratch-buffer callback.
//
// # Deferred Responses
//
// Buffer releases and finalize acknowledgements are never sent from inside a
// callback. The Manager arms a scheduler task whose expiry posts a
// queue.Message; the engine's consumer goroutine hands it to HandleMessage,
// which is the only code calling back into the core:
//
//	for msg := range q.C() {
//	    manager.HandleMessage(msg)
//	}
//
// # Thread Safety
//
// The Registry and every callback are confined to the consumer goroutine.
// Policy and SetPolicy are safe to call from any goroutine.
package file
