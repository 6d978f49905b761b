// Package cli wires together the Cobra command tree for the issuelens binary.
//
// It defines the root command and all subcommands (run, config, models,
// cache, version), binds flags, reads configuration, drives the
// fetch/triage/summarize pipeline, and maps failures to exit codes.
package cli
