/*
Package shell implements the operator command line for the transfer engine.

# Commands

	init                         register with the transport core
	deinit                       unregister and drop live transfers
	cancel <file_id> <reason>    cancel a transfer, numbers accept 0x and 0 prefixes
	cfg [-p] [-r] [-fd s] [-fs 0|1] [-tr 0|1] [-trs reason] [-br ms]
	print                        minimum scratch size for every block size
	stats [file_id]              progress reported by the core
	params [file_id]             negotiated parameters, checked against the record
	transfers                    live transfer records
	help
	exit

cfg with no arguments prints the policy. -r restores the defaults and cannot
be combined with a value flag.

Host binaries add commands with Register:

	sh := shell.New(engine, shell.Options{In: os.Stdin, Out: os.Stdout})
	sh.Register("send", "send <file_id> <path>", sendHandler)
	_ = sh.Run()
*/
package shell
