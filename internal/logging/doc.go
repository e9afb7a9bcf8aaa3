// Package logger provides leveled logging for the secret store and its CLI.
//
// All output goes to stderr by default. The store runs inside an MCP server
// whose stdout carries protocol frames, so nothing here may write to stdout.
//
// # Verbosity Levels
//
//   - --verbose: Shows info and warning messages
//   - --debug (or GARMIN_MCP_DEBUG): Shows all messages including debug details
//
// Errors and WarnfAlways messages are always shown.
//
// # Usage
//
//	log := Logger{Verbose: verbose, Debug: debug}
//	log.Infof("Encryption key loaded from %s", backend)
//
// The logger is a plain value; pass it to constructors rather than relying
// on package state.
package logger
