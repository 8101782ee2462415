package storage

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	// ChecksumGroup holds the single shared running checksum.
	ChecksumGroup uint16 = 0xB
	// ChecksumKey is the record key inside ChecksumGroup.
	ChecksumKey uint32 = 1
	// PerFileChecksumGroup holds one checksum per file id.
	PerFileChecksumGroup uint16 = 0xC
)

// KeyMode selects how checksum records are keyed.
type KeyMode uint8

const (
	// KeyModeShared stores every transfer's checksum under one key, so only
	// the most recently written transfer can be resumed after a restart.
	KeyModeShared KeyMode = iota
	// KeyModePerFile stores one checksum per file id.
	KeyModePerFile
)

// String returns the mode name used in configuration.
func (m KeyMode) String() string {
	switch m {
	case KeyModeShared:
		return "shared"
	case KeyModePerFile:
		return "per-file"
	default:
		return fmt.Sprintf("KeyMode(%d)", uint8(m))
	}
}

// ParseKeyMode parses the configuration form of a KeyMode.
func ParseKeyMode(s string) (KeyMode, error) {
	switch s {
	case "", "shared":
		return KeyModeShared, nil
	case "per-file", "perfile":
		return KeyModePerFile, nil
	default:
		return KeyModeShared, fmt.Errorf("unknown checksum key mode %q", s)
	}
}

// ChecksumStore persists running CRC-32 values in a KV.
type ChecksumStore struct {
	kv   KV
	mode KeyMode
}

// NewChecksumStore creates a store over kv.
func NewChecksumStore(kv KV, mode KeyMode) *ChecksumStore {
	return &ChecksumStore{kv: kv, mode: mode}
}

// Mode returns the key mode.
func (s *ChecksumStore) Mode() KeyMode {
	return s.mode
}

func (s *ChecksumStore) location(fileID uint32) (uint16, uint32) {
	if s.mode == KeyModePerFile {
		return PerFileChecksumGroup, fileID
	}
	return ChecksumGroup, ChecksumKey
}

// Reset discards the persisted checksum for fileID. In shared mode this
// drops the whole checksum group.
func (s *ChecksumStore) Reset(fileID uint32) error {
	group, key := s.location(fileID)
	if s.mode == KeyModePerFile {
		return s.kv.RecordDelete(group, key)
	}
	return s.kv.GroupDelete(group)
}

// Load returns the persisted checksum. found is false when nothing is stored.
func (s *ChecksumStore) Load(fileID uint32) (crc uint32, found bool, err error) {
	group, key := s.location(fileID)

	raw, err := s.kv.RecordGet(group, key)
	if errors.Is(err, ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	var value wrapperspb.UInt32Value
	if err := proto.Unmarshal(raw, &value); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "ChecksumStore.Load",
			"file_id":  fileID,
			"error":    err.Error(),
		}).Warn("Discarding undecodable checksum record")
		return 0, false, fmt.Errorf("decode checksum: %w", err)
	}
	return value.GetValue(), true, nil
}

// Save persists crc for fileID.
func (s *ChecksumStore) Save(fileID, crc uint32) error {
	raw, err := proto.Marshal(wrapperspb.UInt32(crc))
	if err != nil {
		return fmt.Errorf("encode checksum: %w", err)
	}
	group, key := s.location(fileID)
	return s.kv.RecordSet(group, key, raw)
}
