// Package limits provides centralized capacity constants and validation
// helpers for the bulk data transfer engine.
//
// # Capacity
//
//   - MaxParallelTransfers (3): live transfer records at once. A transfer
//     request beyond this is rejected with NO_SPACE before any scratch
//     buffer is requested.
//
//   - MaxDescriptorSize (128 bytes): the opaque descriptor the transport core
//     attaches to a request (file name, version, ...). It is copied verbatim
//     and never decoded.
//
//   - MaxScratchBufferSize (64 KiB): the largest staging buffer a single
//     transfer may ask for.
//
// # Validation Functions
//
//	if err := limits.ValidateDescriptor(req.Descriptor); err != nil {
//	    // errors.Is(err, limits.ErrDescriptorTooLarge)
//	}
//
// IsValidFragmentSize checks a block size against the sizes the transport
// core negotiates (1024 to 8192 in 1 KiB steps).
package limits
