// Package sbdt implements a bulk data transfer engine for inbound chunked
// file transfers over constrained, small-MTU links.
//
// The engine sits between a transport core, which frames and delivers
// chunks, and the application. It accepts or rejects transfer requests,
// tracks per-file state in a fixed-capacity registry, keeps a CRC-32 of the
// received data in a durable store so that it survives a power loss, and
// paces buffer releases and finalize acknowledgements with timers that never
// block the core's callbacks.
//
// # Getting Started
//
// Create an engine over a transport core and a durable store, then drive its
// event loop:
//
//	db, err := badger.Open(badger.DefaultOptions(dir))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	options := sbdt.NewOptions()
//	options.SinkDir = "/var/lib/sbdt/incoming"
//
//	engine, err := sbdt.New(core, storage.NewBadgerKV(db), options)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Close()
//
//	if err := engine.Init(); err != nil {
//	    log.Fatal(err)
//	}
//	_ = engine.Run(ctx)
//
// # Core Types
//
//   - [Engine]: owns the registry, policy, scheduler and event queue
//   - [Options]: configuration for creating an Engine
//
// # Threading
//
// The goroutine running [Engine.Run] (or calling [Engine.Iterate]) is the
// consumer goroutine. The transport core delivers its callbacks there, and
// it is the only goroutine that calls back into the core. Other goroutines
// hand work to it with [Engine.Submit] or [Engine.SubmitWait]:
//
//	err := engine.SubmitWait(ctx, func() {
//	    records = engine.Transfers()
//	})
//
// Timers fire on their own goroutines and only post messages to the queue.
//
// # Checksum Persistence
//
// By default every transfer shares one persisted checksum record, so only
// the most recent transfer can resume after a restart. Set
// Options.ChecksumKeyMode to storage.KeyModePerFile to key the record by
// file id instead.
package sbdt
