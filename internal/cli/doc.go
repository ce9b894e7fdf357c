// Package cli implements the barstat command line.
//
// barstat has a single command and no subcommands:
//
//	barstat [--config PATH] [--interval DURATION] [--task-timeout DURATION]
//	        [--output i3bar|term] [--version]
//
// The command loads the config file, builds the capability registry and
// the output encoder, and hands them to the engine, which runs until
// SIGINT or SIGTERM. Flags override the matching settings in the config
// file's general section, and keep doing so on every reload.
//
// Everything the command logs goes to stderr. Stdout carries only the
// status stream.
package cli
