// Package sink writes accepted transfers to disk.
//
// Each chunk lands at its offset in <dir>/<file_id>.part. Commit renames the
// part file to <file_id>.bin and sniffs its content type; Abort removes it.
package sink

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/shirou/gopsutil/disk"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"
)

var (
	// ErrNoSpace indicates the target volume cannot hold the file.
	ErrNoSpace = errors.New("not enough free disk space")
	// ErrFileTooBig indicates the file exceeds the configured maximum, or a
	// chunk would be written past the announced size.
	ErrFileTooBig = errors.New("file too big")
	// ErrNotOpen indicates no open output exists for the file id.
	ErrNotOpen = errors.New("no open output for file")
)

// DefaultMaxFileSize bounds a single transfer when Options.MaxFileSize is 0.
const DefaultMaxFileSize = 16 << 20

// sniffSize is how many leading bytes mimetype inspects.
const sniffSize = 512

// UsageFunc reports free bytes on the volume holding path.
type UsageFunc func(path string) (uint64, error)

// DiskUsage queries the volume through gopsutil.
func DiskUsage(path string) (uint64, error) {
	stat, err := disk.Usage(path)
	if err != nil {
		return 0, err
	}
	return stat.Free, nil
}

// Options configures a DiskSink.
type Options struct {
	Dir         string
	MaxFileSize uint64
	// Usage overrides the free-space check. Nil selects DiskUsage.
	Usage UsageFunc
}

// Result describes a committed file.
type Result struct {
	FileID   uint32
	Path     string
	Size     int64
	MIME     string
	Blake2b  string
	Received uint32
}

type output struct {
	file     *os.File
	path     string
	size     uint32
	received uint32
}

// DiskSink stores transfers under a directory.
type DiskSink struct {
	dir     string
	maxSize uint64
	usage   UsageFunc

	mu      sync.Mutex
	outputs map[uint32]*output
}

// New creates the directory if needed and returns a sink writing into it.
func New(opts Options) (*DiskSink, error) {
	if opts.Dir == "" {
		return nil, errors.New("sink directory is required")
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sink directory: %w", err)
	}
	if opts.MaxFileSize == 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	if opts.Usage == nil {
		opts.Usage = DiskUsage
	}
	return &DiskSink{
		dir:     opts.Dir,
		maxSize: opts.MaxFileSize,
		usage:   opts.Usage,
		outputs: make(map[uint32]*output),
	}, nil
}

// Dir returns the output directory.
func (s *DiskSink) Dir() string {
	return s.dir
}

func (s *DiskSink) partPath(fileID uint32) string {
	return filepath.Join(s.dir, fmt.Sprintf("%08x.part", fileID))
}

// FinalPath returns where Commit places the file.
func (s *DiskSink) FinalPath(fileID uint32) string {
	return filepath.Join(s.dir, fmt.Sprintf("%08x.bin", fileID))
}

// Open prepares output for a transfer of size bytes. An existing open output
// for the same id is discarded first.
func (s *DiskSink) Open(fileID, size uint32) error {
	if uint64(size) > s.maxSize {
		return fmt.Errorf("%w: %d bytes (limit is %d)", ErrFileTooBig, size, s.maxSize)
	}

	free, err := s.usage(s.dir)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "DiskSink.Open",
			"file_id":  fileID,
			"error":    err.Error(),
		}).Warn("Free space check failed, continuing")
	} else if free < uint64(size) {
		return fmt.Errorf("%w: need %d bytes, %d free", ErrNoSpace, size, free)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.outputs[fileID]; ok {
		s.discardLocked(fileID, prev)
	}

	path := s.partPath(fileID)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open part file: %w", err)
	}
	s.outputs[fileID] = &output{file: f, path: path, size: size}

	logrus.WithFields(logrus.Fields{
		"function": "DiskSink.Open",
		"file_id":  fileID,
		"size":     size,
		"path":     path,
	}).Info("Opened transfer output")

	return nil
}

// Write stores data at offset.
func (s *DiskSink) Write(fileID, offset uint32, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	out, ok := s.outputs[fileID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNotOpen, fileID)
	}
	end := uint64(offset) + uint64(len(data))
	if end > uint64(out.size) {
		return fmt.Errorf("%w: chunk ends at %d, file size %d", ErrFileTooBig, end, out.size)
	}
	if _, err := out.file.WriteAt(data, int64(offset)); err != nil {
		return fmt.Errorf("write chunk: %w", err)
	}
	if uint32(end) > out.received {
		out.received = uint32(end)
	}

	sum := sha256.Sum256(data)
	logrus.WithFields(logrus.Fields{
		"function": "DiskSink.Write",
		"file_id":  fileID,
		"offset":   offset,
		"size":     len(data),
		"sha256":   hex.EncodeToString(sum[:]),
	}).Debug("Chunk written")

	return nil
}

// Commit closes the output, moves it into place and describes it.
func (s *DiskSink) Commit(fileID uint32) (Result, error) {
	s.mu.Lock()
	out, ok := s.outputs[fileID]
	if ok {
		delete(s.outputs, fileID)
	}
	s.mu.Unlock()

	if !ok {
		return Result{}, fmt.Errorf("%w: %d", ErrNotOpen, fileID)
	}

	if err := out.file.Sync(); err != nil {
		out.file.Close()
		os.Remove(out.path)
		return Result{}, fmt.Errorf("sync part file: %w", err)
	}
	if err := out.file.Close(); err != nil {
		os.Remove(out.path)
		return Result{}, fmt.Errorf("close part file: %w", err)
	}

	final := s.FinalPath(fileID)
	if err := os.Rename(out.path, final); err != nil {
		os.Remove(out.path)
		return Result{}, fmt.Errorf("move part file: %w", err)
	}

	res, err := describe(final)
	if err != nil {
		return Result{}, err
	}
	res.FileID = fileID
	res.Received = out.received

	logrus.WithFields(logrus.Fields{
		"function":  "DiskSink.Commit",
		"file_id":   fileID,
		"path":      res.Path,
		"size":      res.Size,
		"mime_type": res.MIME,
		"blake2b":   res.Blake2b,
	}).Info("Transfer committed")

	return res, nil
}

// Abort discards uncommitted output. Aborting an unknown id is a no-op.
func (s *DiskSink) Abort(fileID uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	out, ok := s.outputs[fileID]
	if !ok {
		return nil
	}
	return s.discardLocked(fileID, out)
}

// Pending reports whether output is pending for the file id.
func (s *DiskSink) Pending(fileID uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.outputs[fileID]
	return ok
}

// Close aborts every pending output.
func (s *DiskSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for id, out := range s.outputs {
		if err := s.discardLocked(id, out); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *DiskSink) discardLocked(fileID uint32, out *output) error {
	delete(s.outputs, fileID)
	out.file.Close()
	if err := os.Remove(out.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove part file: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"function": "DiskSink.Abort",
		"file_id":  fileID,
	}).Info("Discarded partial output")
	return nil
}

func describe(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open committed file: %w", err)
	}
	defer f.Close()

	hash, err := blake2b.New256(nil)
	if err != nil {
		return Result{}, err
	}

	sniff := make([]byte, sniffSize)
	n, err := io.ReadFull(f, sniff)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Result{}, fmt.Errorf("sniff committed file: %w", err)
	}
	sniff = sniff[:n]
	hash.Write(sniff)

	rest, err := io.Copy(hash, f)
	if err != nil {
		return Result{}, fmt.Errorf("hash committed file: %w", err)
	}

	return Result{
		Path:    path,
		Size:    int64(n) + rest,
		MIME:    mimetype.Detect(sniff).String(),
		Blake2b: hex.EncodeToString(hash.Sum(nil)),
	}, nil
}
