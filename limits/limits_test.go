package limits

import (
	"errors"
	"testing"
)

func TestScratchPoolMatchesRegistryCapacity(t *testing.T) {
	if MaxScratchBuffers < MaxParallelTransfers {
		t.Errorf("MaxScratchBuffers = %d, want at least MaxParallelTransfers (%d)",
			MaxScratchBuffers, MaxParallelTransfers)
	}
}

func TestValidateDescriptor(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantErr error
	}{
		{"empty", 0, nil},
		{"small", 16, nil},
		{"at limit", MaxDescriptorSize, nil},
		{"over limit", MaxDescriptorSize + 1, ErrDescriptorTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDescriptor(make([]byte, tt.size))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDescriptor(%d bytes) = %v, want %v", tt.size, err, tt.wantErr)
			}
		})
	}
}

func TestValidateScratchSize(t *testing.T) {
	tests := []struct {
		size    int
		wantErr bool
	}{
		{0, true},
		{-1, true},
		{1, false},
		{128, false},
		{MaxScratchBufferSize, false},
		{MaxScratchBufferSize + 1, true},
	}

	for _, tt := range tests {
		err := ValidateScratchSize(tt.size)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateScratchSize(%d) error = %v, wantErr %v", tt.size, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrScratchSizeInvalid) {
			t.Errorf("ValidateScratchSize(%d) error does not wrap ErrScratchSizeInvalid", tt.size)
		}
	}
}

func TestIsValidFragmentSize(t *testing.T) {
	for _, size := range ValidFragmentSizes {
		if !IsValidFragmentSize(size) {
			t.Errorf("IsValidFragmentSize(%d) = false, want true", size)
		}
	}
	for _, size := range []uint32{0, 100, 1000, 1025, 9216} {
		if IsValidFragmentSize(size) {
			t.Errorf("IsValidFragmentSize(%d) = true, want false", size)
		}
	}
}
