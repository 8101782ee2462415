package shell

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"github.com/opd-ai/sbdt/file"
	"github.com/opd-ai/sbdt/limits"
	"github.com/opd-ai/sbdt/transport"
)

var validate = newValidator()

// valueFlags are the cfg flags that change a policy field.
var valueFlags = []string{"fd", "fs", "tr", "trs", "br"}

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("reject_reason", validRejectReason); err != nil {
		panic(fmt.Sprintf("register reject_reason validation: %v", err))
	}
	return v
}

func validRejectReason(fl validator.FieldLevel) bool {
	v := fl.Field().Uint()
	return v <= 0xFF && transport.RejectReason(v).Valid()
}

// cfgArgs holds the parsed cfg flags. Only flags present on the command
// line are applied.
type cfgArgs struct {
	Print          bool
	Reset          bool
	FinalizeDelay  uint64 `validate:"max=65535"`
	FinalizeStatus uint64 `validate:"oneof=0 1"`
	Action         uint64 `validate:"oneof=0 1"`
	RejectReason   uint64 `validate:"max=255,reject_reason"`
	ReleaseDelay   uint64 `validate:"max=65535"`

	set map[string]bool
}

func (sh *Shell) registerBuiltins() {
	sh.Register("init", "init: register the engine with the transport core", cmdInit)
	sh.Register("deinit", "deinit: unregister from the transport core", cmdDeinit)
	sh.Register("cancel", "cancel <file_id> <reason>: cancel a transfer", cmdCancel)
	sh.Register("cfg", "cfg [-p] [-r] [-fd s] [-fs 0|1] [-tr 0|1] [-trs reason] [-br ms]", cmdCfg)
	sh.Register("print", "print: minimum scratch size per block size", cmdPrint)
	sh.Register("stats", "stats [file_id]: transfer progress from the core", cmdStats)
	sh.Register("params", "params [file_id]: transfer parameters, checked against the record", cmdParams)
	sh.Register("transfers", "transfers: live transfer records", cmdTransfers)
	sh.Register("help", "help: list commands", func(sh *Shell, _ []string) error {
		sh.help()
		return nil
	})
}

// parseUint32 accepts decimal, 0x hex and 0 octal like strtol with base 0.
func parseUint32(s, what string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q", what, s)
	}
	return uint32(v), nil
}

func optionalFileID(args []string) (uint32, error) {
	if len(args) == 0 {
		return 0, nil
	}
	return parseUint32(args[0], "file_id")
}

func cmdInit(sh *Shell, _ []string) error {
	var err error
	if derr := sh.dispatch(func() { err = sh.engine.Init() }); derr != nil {
		return derr
	}
	if err != nil {
		return err
	}
	sh.OK("initialized")
	return nil
}

func cmdDeinit(sh *Shell, _ []string) error {
	var err error
	if derr := sh.dispatch(func() { err = sh.engine.Deinit() }); derr != nil {
		return derr
	}
	if err != nil {
		return err
	}
	sh.OK("deinitialized")
	return nil
}

func cmdCancel(sh *Shell, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: cancel <file_id> <reason>")
	}
	fileID, err := parseUint32(args[0], "file_id")
	if err != nil {
		return err
	}
	if fileID > 1<<31-1 {
		return fmt.Errorf("invalid file_id value %q", args[0])
	}
	raw, err := strconv.ParseUint(args[1], 0, 8)
	if err != nil || !transport.RejectReason(raw).Valid() {
		return fmt.Errorf("invalid reason value %q", args[1])
	}
	reason := transport.RejectReason(raw)

	if err := sh.engine.Cancel(fileID, reason); err != nil {
		return err
	}
	sh.OK("cancel queued for file %d (%s)", fileID, reason)
	return nil
}

func parseCfgArgs(args []string) (*cfgArgs, error) {
	out := &cfgArgs{set: make(map[string]bool)}

	fs := flag.NewFlagSet("cfg", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.BoolVar(&out.Print, "p", false, "print the configuration")
	fs.BoolVar(&out.Reset, "r", false, "restore defaults")
	fs.Uint64Var(&out.FinalizeDelay, "fd", 0, "finalize response delay in seconds")
	fs.Uint64Var(&out.FinalizeStatus, "fs", 0, "finalize status, 0 success 1 failure")
	fs.Uint64Var(&out.Action, "tr", 0, "transfer request action, 0 accept 1 reject")
	fs.Uint64Var(&out.RejectReason, "trs", 0, "transfer request reject reason")
	fs.Uint64Var(&out.ReleaseDelay, "br", 0, "buffer release delay in milliseconds")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}
	fs.Visit(func(f *flag.Flag) { out.set[f.Name] = true })

	if err := validate.Struct(out); err != nil {
		return nil, fmt.Errorf("invalid cfg arguments: %w", err)
	}

	if out.Reset && out.changesValues() {
		return nil, errors.New("-r flag can not be combined with any other flag")
	}
	if len(args) == 0 {
		out.Print = true
	}
	return out, nil
}

func (a *cfgArgs) changesValues() bool {
	return lo.SomeBy(valueFlags, func(name string) bool { return a.set[name] })
}

func (a *cfgArgs) apply(p file.Policy) file.Policy {
	if a.Reset {
		return file.DefaultPolicy()
	}
	if a.set["fd"] {
		p.FinalizeDelay = time.Duration(a.FinalizeDelay) * time.Second
	}
	if a.set["fs"] {
		p.FinalizeStatus = transport.FinalStatus(a.FinalizeStatus)
	}
	if a.set["tr"] {
		p.Action = transport.Action(a.Action)
	}
	if a.set["trs"] {
		p.RejectReason = transport.RejectReason(a.RejectReason)
	}
	if a.set["br"] {
		p.ReleaseDelay = time.Duration(a.ReleaseDelay) * time.Millisecond
	}
	return p
}

func cmdCfg(sh *Shell, args []string) error {
	parsed, err := parseCfgArgs(args)
	if err != nil {
		return err
	}

	changed := parsed.Reset || parsed.changesValues()
	if changed {
		if err := sh.engine.SetPolicy(parsed.apply(sh.engine.Policy())); err != nil {
			return err
		}
	}
	if parsed.Print || parsed.Reset {
		sh.printPolicy(sh.engine.Policy())
	}
	if changed {
		sh.OK("configuration updated")
	}
	return nil
}

func (sh *Shell) printPolicy(p file.Policy) {
	sh.Table([]string{"SETTING", "VALUE"}, [][]string{
		{"DATA_TRANSFER_ACTION", fmt.Sprintf("%d (%s)", p.Action, p.Action)},
		{"DATA_TRANSFER_REJECT_REASON", fmt.Sprintf("%d (%s)", p.RejectReason, p.RejectReason)},
		{"TRANSFER_FINAL_STATUS", fmt.Sprintf("%d (%s)", p.FinalizeStatus, p.FinalizeStatus)},
		{"TRANSFER_FINAL_RESP_DELAY_S", strconv.Itoa(int(p.FinalizeDelay / time.Second))},
		{"RELEASE_BUFFER_DELAY_MS", strconv.Itoa(int(p.ReleaseDelay / time.Millisecond))},
		{"TRANSFER_STARTED", strconv.FormatBool(sh.engine.TransferStarted())},
	})
}

func cmdPrint(sh *Shell, _ []string) error {
	rows := lo.Map(limits.ValidFragmentSizes, func(size uint32, _ int) []string {
		return []string{
			strconv.FormatUint(uint64(size), 10),
			strconv.Itoa(transport.MinScratchBufferSize(size)),
		}
	})
	sh.Table([]string{"BLOCK_SIZE", "MIN_SCRATCH_SPACE"}, rows)
	return nil
}

func cmdStats(sh *Shell, args []string) error {
	fileID, err := optionalFileID(args)
	if err != nil {
		return err
	}
	var stats transport.Stats
	if derr := sh.dispatch(func() { stats, err = sh.engine.TransferStats(fileID) }); derr != nil {
		return derr
	}
	if err != nil {
		return err
	}
	sh.Table([]string{"FILE_ID", "PROGRESS_PERCENT", "FILE_OFFSET"}, [][]string{{
		fmt.Sprintf("0x%X", fileID),
		strconv.Itoa(int(stats.ProgressPercent)),
		strconv.FormatUint(uint64(stats.FileOffset), 10),
	}})
	return nil
}

func cmdParams(sh *Shell, args []string) error {
	fileID, err := optionalFileID(args)
	if err != nil {
		return err
	}
	var (
		params     transport.Params
		mismatches []string
	)
	if derr := sh.dispatch(func() { params, mismatches, err = sh.engine.TransferParams(fileID) }); derr != nil {
		return derr
	}
	if err != nil {
		return err
	}
	sh.Table([]string{"PARAM", "VALUE"}, [][]string{
		{"FILE_ID", fmt.Sprintf("0x%X", fileID)},
		{"FRAGMENT_SIZE", strconv.FormatUint(uint64(params.FragmentSize), 10)},
		{"FILE_SIZE", strconv.FormatUint(uint64(params.FileSize), 10)},
		{"DESCRIPTOR_SIZE", strconv.Itoa(len(params.Descriptor))},
		{"MIN_SCRATCH_BUFFER_SIZE", strconv.Itoa(params.MinimumScratchBufferSize)},
		{"SCRATCH_BUFFER_SIZE", strconv.Itoa(params.ScratchBufferSize)},
	})
	for _, m := range mismatches {
		sh.Warnf("mismatch %s", m)
	}
	return nil
}

func cmdTransfers(sh *Shell, _ []string) error {
	var records []file.TransferRecord
	if err := sh.dispatch(func() { records = sh.engine.Transfers() }); err != nil {
		return err
	}
	if len(records) == 0 {
		sh.OK("no live transfers")
		return nil
	}
	rows := lo.Map(records, func(r file.TransferRecord, _ int) []string {
		return []string{
			fmt.Sprintf("0x%X", r.FileID),
			strconv.FormatUint(uint64(r.FileSize), 10),
			strconv.FormatUint(uint64(r.BlockSize), 10),
			strconv.FormatUint(uint64(r.Received), 10),
			strconv.Itoa(int(r.Progress())),
			fmt.Sprintf("0x%08X", r.RunningChecksum),
		}
	})
	sh.Table([]string{"FILE_ID", "FILE_SIZE", "BLOCK_SIZE", "RECEIVED", "PROGRESS", "CRC32"}, rows)
	return nil
}
