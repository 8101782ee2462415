package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMinScratchBufferSize(t *testing.T) {
	tests := []struct {
		fragment uint32
		want     int
	}{
		{0, 0},
		{1, 64},
		{48, 64},
		{49, 128},
		{100, 128},
		{1024, 1088},
		{8192, 8256},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MinScratchBufferSize(tt.fragment), "fragment %d", tt.fragment)
	}
}

func TestMinScratchBufferSizeCoversFragment(t *testing.T) {
	for fragment := uint32(1); fragment <= 8192; fragment += 97 {
		size := MinScratchBufferSize(fragment)
		assert.GreaterOrEqual(t, size, int(fragment))
		assert.Zero(t, size%scratchAlignment)
	}
}

func TestRejectReasonString(t *testing.T) {
	assert.Equal(t, "NONE", RejectReasonNone.String())
	assert.Equal(t, "NO_SPACE", RejectReasonNoSpace.String())
	assert.Equal(t, "INVALID_FRAGMENT_SIZE", RejectReasonInvalidFragmentSize.String())
	assert.Equal(t, "UNKNOWN(0x2)", RejectReason(0x2).String())
}

func TestRejectReasonValid(t *testing.T) {
	valid := []RejectReason{0x0, 0x1, 0x3, 0x4, 0x5, 0x9, 0xB, 0xE}
	for _, r := range valid {
		assert.True(t, r.Valid(), "reason 0x%X", uint8(r))
	}
	for _, r := range []RejectReason{0x2, 0x6, 0x7, 0x8, 0xA, 0xC, 0xD, 0xF, 0xFF} {
		assert.False(t, r.Valid(), "reason 0x%X", uint8(r))
	}
}

func TestTransferResponseActions(t *testing.T) {
	var resp TransferResponse = Accepted{ScratchBuffer: make([]byte, 4)}
	assert.Equal(t, ActionAccept, resp.Action())

	resp = Rejected{Reason: RejectReasonNoSpace}
	assert.Equal(t, ActionReject, resp.Action())

	switch r := resp.(type) {
	case Rejected:
		assert.Equal(t, RejectReasonNoSpace, r.Reason)
	default:
		t.Fatalf("unexpected response type %T", r)
	}
}

func TestStatusStrings(t *testing.T) {
	assert.Equal(t, "ACCEPT", ActionAccept.String())
	assert.Equal(t, "REJECT", ActionReject.String())
	assert.Equal(t, "SUCCESS", FinalStatusSuccess.String())
	assert.Equal(t, "FAILURE", FinalStatusFailure.String())
	assert.Equal(t, "LORA", LinkTypeLoRa.String())
	assert.Equal(t, "UNKNOWN", LinkType(0).String())
}
