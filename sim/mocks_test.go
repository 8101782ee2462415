package sim

import "github.com/opd-ai/sbdt/transport"

// recordingCallbacks accepts every transfer with a buffer of scratchSize
// bytes and records what it receives.
type recordingCallbacks struct {
	scratchSize int
	reject      bool

	requests  []uint32
	chunks    [][]byte
	offsets   []uint32
	finalizes []uint32
	cancels   []uint32
	errors    []uint32
	releases  []uint32
}

func (r *recordingCallbacks) OnTransferRequest(req *transport.TransferRequest) transport.TransferResponse {
	r.requests = append(r.requests, req.FileID)
	if r.reject {
		return transport.Rejected{Reason: transport.RejectReasonLowBattery}
	}
	return transport.Accepted{ScratchBuffer: make([]byte, r.scratchSize)}
}

func (r *recordingCallbacks) OnDataReceived(desc transport.DataDesc, buf transport.Buffer) {
	r.offsets = append(r.offsets, desc.FileOffset)
	r.chunks = append(r.chunks, append([]byte(nil), buf.Data...))
}

func (r *recordingCallbacks) OnFinalizeRequest(fileID uint32) {
	r.finalizes = append(r.finalizes, fileID)
}

func (r *recordingCallbacks) OnCancelRequest(fileID uint32) {
	r.cancels = append(r.cancels, fileID)
}

func (r *recordingCallbacks) OnError(fileID uint32) {
	r.errors = append(r.errors, fileID)
}

func (r *recordingCallbacks) OnReleaseScratchBuffer(fileID uint32) {
	r.releases = append(r.releases, fileID)
}
