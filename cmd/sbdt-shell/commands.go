package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/sbdt"
	"github.com/opd-ai/sbdt/limits"
	"github.com/opd-ai/sbdt/shell"
	"github.com/opd-ai/sbdt/sim"
	"github.com/opd-ai/sbdt/transport"
)

// sendTimeout bounds how long send waits for one buffer to come back.
const sendTimeout = 30 * time.Second

// registerSimCommands adds the commands that drive the simulated core.
func registerSimCommands(sh *shell.Shell, engine *sbdt.Engine, core *sim.Core) {
	poll := engine.IterationInterval()
	sh.Register("send", "send <file_id> <path> [fragment]: push a local file through the simulated core", newSendCommand(core, poll))
	sh.Register("rcancel", "rcancel <file_id>: simulate a cancel from the peer", func(sh *shell.Shell, args []string) error {
		fileID, err := fileIDArg(args)
		if err != nil {
			return err
		}
		if err := dispatchErr(sh, func() error { return core.RemoteCancel(fileID) }); err != nil {
			return err
		}
		sh.OK("peer cancelled file %d", fileID)
		return nil
	})
	sh.Register("fail", "fail <file_id>: simulate a link error", func(sh *shell.Shell, args []string) error {
		fileID, err := fileIDArg(args)
		if err != nil {
			return err
		}
		if err := dispatchErr(sh, func() error { return core.Fail(fileID) }); err != nil {
			return err
		}
		sh.OK("link error injected for file %d", fileID)
		return nil
	})
	sh.Register("events", "events: simulated core event log", func(sh *shell.Shell, _ []string) error {
		events := core.Events()
		rows := make([][]string, 0, len(events))
		for i, ev := range events {
			rows = append(rows, []string{
				strconv.Itoa(i),
				ev.Kind.String(),
				fmt.Sprintf("0x%X", ev.FileID),
				strconv.FormatUint(uint64(ev.Offset), 10),
				strconv.Itoa(ev.Size),
			})
		}
		sh.Table([]string{"#", "EVENT", "FILE_ID", "OFFSET", "SIZE"}, rows)
		return nil
	})
}

func fileIDArg(args []string) (uint32, error) {
	if len(args) != 1 {
		return 0, errors.New("expected <file_id>")
	}
	v, err := strconv.ParseUint(args[0], 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid file_id value %q", args[0])
	}
	return uint32(v), nil
}

// dispatchErr runs fn on the engine consumer and returns its error.
func dispatchErr(sh *shell.Shell, fn func() error) error {
	var err error
	if derr := sh.Dispatch(func() { err = fn() }); derr != nil {
		return derr
	}
	return err
}

// newSendCommand returns a handler that offers a local file to the engine
// and delivers it chunk by chunk, waiting for each buffer to be released,
// then asks for finalization.
func newSendCommand(core *sim.Core, poll time.Duration) shell.HandlerFunc {
	return func(sh *shell.Shell, args []string) error {
		if len(args) < 2 || len(args) > 3 {
			return errors.New("usage: send <file_id> <path> [fragment]")
		}
		fileID, err := fileIDArg(args[:1])
		if err != nil {
			return err
		}
		fragment := limits.ValidFragmentSizes[0]
		if len(args) == 3 {
			v, err := strconv.ParseUint(args[2], 0, 32)
			if err != nil || !limits.IsValidFragmentSize(uint32(v)) {
				return fmt.Errorf("invalid fragment value %q", args[2])
			}
			fragment = uint32(v)
		}

		data, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[1], err)
		}
		if uint64(len(data)) > uint64(^uint32(0)) {
			return fmt.Errorf("%s is too large", args[1])
		}

		descriptor := []byte(filepath.Base(args[1]))
		if len(descriptor) > limits.MaxDescriptorSize {
			descriptor = descriptor[:limits.MaxDescriptorSize]
		}

		req := transport.TransferRequest{
			FileID:                   fileID,
			FileSize:                 uint32(len(data)),
			FragmentSize:             fragment,
			MinimumScratchBufferSize: transport.MinScratchBufferSize(fragment),
			Descriptor:               descriptor,
		}
		if err := dispatchErr(sh, func() error {
			_, err := core.StartTransfer(req)
			return err
		}); err != nil {
			return err
		}

		logger := logrus.WithFields(logrus.Fields{
			"function": "send",
			"file_id":  fileID,
			"size":     len(data),
			"fragment": fragment,
		})
		logger.Info("Sending file through simulated core")

		for off := 0; off < len(data); off += int(fragment) {
			end := off + int(fragment)
			if end > len(data) {
				end = len(data)
			}
			if err := sendChunk(sh, core, fileID, data[off:end], poll); err != nil {
				return fmt.Errorf("offset %d: %w", off, err)
			}
		}
		if err := waitReleased(core, fileID, poll); err != nil {
			return err
		}

		if err := dispatchErr(sh, func() error { return core.RequestFinalize(fileID) }); err != nil {
			return err
		}
		logger.Info("Finalize requested")
		sh.OK("sent %d bytes as file %d, finalize requested", len(data), fileID)
		return nil
	}
}

func sendChunk(sh *shell.Shell, core *sim.Core, fileID uint32, chunk []byte, poll time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	for {
		err := dispatchErr(sh, func() error { return core.SendNext(fileID, chunk) })
		if !errors.Is(err, sim.ErrBufferBusy) {
			return err
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("buffer not released: %w", ctx.Err())
		case <-time.After(poll):
		}
	}
}

func waitReleased(core *sim.Core, fileID uint32, poll time.Duration) error {
	deadline := time.Now().Add(sendTimeout)
	for core.Busy(fileID) {
		if time.Now().After(deadline) {
			return errors.New("last buffer not released")
		}
		time.Sleep(poll)
	}
	return nil
}
