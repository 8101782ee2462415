// Package transport defines the contract between the bulk data transfer
// engine and the wireless transport core that frames and delivers chunks.
//
// The core calls into the engine through Callbacks and the engine answers
// through Core. Wire-level framing, retries and link selection stay inside
// the core; the engine only sees whole chunks described by a DataDesc.
//
// # Ownership
//
// A scratch buffer handed over in Accepted belongs to the core until
// Callbacks.OnReleaseScratchBuffer. A Buffer delivered with
// Callbacks.OnDataReceived aliases that scratch buffer and must be returned
// with Core.ReleaseBuffer before the next chunk can arrive.
//
// # Example
//
//	core := sim.NewCore(sim.Options{})
//	if err := core.Init(manager); err != nil {
//	    log.Fatal(err)
//	}
//
//	resp := manager.OnTransferRequest(&transport.TransferRequest{
//	    FileID:                   0x1,
//	    FileSize:                 300,
//	    FragmentSize:             100,
//	    MinimumScratchBufferSize: transport.MinScratchBufferSize(100),
//	})
//
// Mocks of Callbacks and Core for gomock live in the mocks package and are
// regenerated with go generate.
package transport
