package transport

import "fmt"

// Action is the accept/reject decision for a transfer request.
type Action uint8

const (
	// ActionAccept accepts the file transfer.
	ActionAccept Action = 0
	// ActionReject rejects the file transfer.
	ActionReject Action = 1
)

// String returns the shell representation of the action.
func (a Action) String() string {
	if a == ActionReject {
		return "REJECT"
	}
	return "ACCEPT"
}

// RejectReason explains why a transfer request or a cancellation was refused.
type RejectReason uint8

const (
	RejectReasonNone                   RejectReason = 0x0
	RejectReasonGeneric                RejectReason = 0x1
	RejectReasonFileTooBig             RejectReason = 0x3
	RejectReasonNoSpace                RejectReason = 0x4
	RejectReasonLowBattery             RejectReason = 0x5
	RejectReasonFileVerificationFailed RejectReason = 0x9
	RejectReasonFileAlreadyExists      RejectReason = 0xB
	RejectReasonInvalidFragmentSize    RejectReason = 0xE
)

var rejectReasonNames = map[RejectReason]string{
	RejectReasonNone:                   "NONE",
	RejectReasonGeneric:                "GENERIC",
	RejectReasonFileTooBig:             "FILE_TOO_BIG",
	RejectReasonNoSpace:                "NO_SPACE",
	RejectReasonLowBattery:             "LOW_BATTERY",
	RejectReasonFileVerificationFailed: "FILE_VERIFICATION_FAILED",
	RejectReasonFileAlreadyExists:      "FILE_ALREADY_EXISTS",
	RejectReasonInvalidFragmentSize:    "INVALID_FRAGMENT_SIZE",
}

// String returns the protocol name of the reason.
func (r RejectReason) String() string {
	if name, ok := rejectReasonNames[r]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(0x%X)", uint8(r))
}

// Valid reports whether r is one of the enumerated reasons.
func (r RejectReason) Valid() bool {
	_, ok := rejectReasonNames[r]
	return ok
}

// FinalStatus is the outcome reported to the core when acknowledging a
// finalize request.
type FinalStatus uint8

const (
	// FinalStatusSuccess reports that the received file passed verification.
	FinalStatusSuccess FinalStatus = 0
	// FinalStatusFailure reports that the received file was refused.
	FinalStatusFailure FinalStatus = 1
)

// String returns the shell representation of the status.
func (s FinalStatus) String() string {
	if s == FinalStatusFailure {
		return "FAILURE"
	}
	return "SUCCESS"
}

// LinkType identifies the radio link a chunk arrived on.
type LinkType uint8

const (
	LinkTypeBLE LinkType = 1 << iota
	LinkTypeFSK
	LinkTypeLoRa
)

// String returns the link name.
func (l LinkType) String() string {
	switch l {
	case LinkTypeBLE:
		return "BLE"
	case LinkTypeFSK:
		return "FSK"
	case LinkTypeLoRa:
		return "LORA"
	default:
		return "UNKNOWN"
	}
}

// TransferRequest is delivered by the core when a peer offers a new file.
type TransferRequest struct {
	FileID                   uint32
	FileSize                 uint32
	FragmentSize             uint32
	FileOffset               uint32
	MinimumScratchBufferSize int
	// Descriptor is opaque metadata (file name, version, ...). The engine
	// copies it and never decodes it.
	Descriptor []byte
}

// TransferResponse is the engine's answer to a TransferRequest. It is either
// Accepted or Rejected.
type TransferResponse interface {
	Action() Action
}

// Accepted hands a scratch buffer to the core. The core owns the buffer until
// it delivers the release-scratch-buffer callback.
type Accepted struct {
	ScratchBuffer []byte
}

// Action implements TransferResponse.
func (Accepted) Action() Action { return ActionAccept }

// Rejected refuses the transfer with a reason.
type Rejected struct {
	Reason RejectReason
}

// Action implements TransferResponse.
func (Rejected) Action() Action { return ActionReject }

// DataDesc describes a delivered chunk.
type DataDesc struct {
	LinkType   LinkType
	FileID     uint32
	FileOffset uint32
}

// Buffer is a chunk delivered by the core. Data usually aliases the scratch
// buffer and must be handed back with Core.ReleaseBuffer.
type Buffer struct {
	Data []byte
}

// Size returns the number of bytes in the buffer.
func (b Buffer) Size() int { return len(b.Data) }

// Stats reports transfer progress as seen by the core.
type Stats struct {
	ProgressPercent uint8
	FileOffset      uint32
}

// Params reports the negotiated parameters of a transfer as seen by the core.
type Params struct {
	FragmentSize             uint32
	FileSize                 uint32
	Descriptor               []byte
	MinimumScratchBufferSize int
	ScratchBufferSize        int
	ScratchBuffer            []byte
}
