// Command sbdt-shell runs the transfer engine over the simulated transport
// core and exposes the operator shell on standard input.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/sbdt"
	"github.com/opd-ai/sbdt/shell"
	"github.com/opd-ai/sbdt/sim"
	"github.com/opd-ai/sbdt/storage"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func openBadger(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	return badger.Open(opts)
}

func run(args []string) error {
	cfg, err := loadConfig(args, os.Stderr)
	if err != nil {
		return err
	}
	if err := cfg.setupLogging(os.Stderr); err != nil {
		return err
	}

	db, err := openBadger(cfg.BadgerPath)
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logrus.WithField("function", "run").Debug("Closing BadgerDB")
		_ = db.Close()
	}()

	options := sbdt.NewOptions()
	options.QueueCapacity = cfg.QueueCapacity
	options.ScratchBuffers = cfg.ScratchBuffers
	options.ChecksumKeyMode = cfg.keyMode()
	options.SinkDir = cfg.SinkDir
	options.MaxFileSize = cfg.MaxFileSize
	options.IterationInterval = cfg.IterationInterval

	core := sim.NewCore(sim.Options{LinkType: cfg.linkType()})
	engine, err := sbdt.New(core, storage.NewBadgerKV(db), options)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}
	defer func() { _ = engine.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loopDone := make(chan error, 1)
	go func() { loopDone <- engine.Run(ctx) }()

	sh := shell.New(engine, shell.Options{
		In:    os.Stdin,
		Out:   os.Stdout,
		Quit:  stop,
		Color: cfg.Color,
		Dispatch: func(fn func()) error {
			return engine.SubmitWait(ctx, fn)
		},
	})
	registerSimCommands(sh, engine, core)

	shellDone := make(chan error, 1)
	go func() { shellDone <- sh.Run() }()

	select {
	case <-ctx.Done():
		logrus.WithField("function", "run").Info("Shutting down")
	case err := <-shellDone:
		stop()
		if err != nil {
			return fmt.Errorf("shell: %w", err)
		}
	}

	if err := <-loopDone; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if engine.Initialized() {
		if err := engine.Deinit(); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "run",
				"error":    err.Error(),
			}).Warn("Deinit on shutdown failed")
		}
	}
	return nil
}
