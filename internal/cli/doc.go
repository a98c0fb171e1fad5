// Package cli implements the treetop command-line interface.
//
// The package is organized around Cobra commands. Each command loads the
// config, applies its flags, and hands off to the internal packages that do
// the work.
//
// # Command Structure
//
// The root command "treetop" runs the live table view, with subcommands for
// everything else:
//
//	treetop                  - Live view of the model's tables
//	treetop metrics          - List the metrics treetop reads and their state
//	treetop record <file>    - Record samples into a replayable archive
//	treetop init             - Create .treetop.yaml
//	treetop version          - Print version information
//
// # Startup Sequence
//
// Commands that read metrics share openSession:
//
//  1. Load config and apply flag overrides, then validate
//  2. Build the screens and meters, registering every metric they read
//  3. Open the source picked by source.kind
//  4. Resolve all metrics and perform the first fetch
//
// The root command then starts telemetry, wraps everything in a
// refresh.Cycle and passes it to top.Run.
//
// # Flag Handling
//
// Global flags (--config, --log-file, --color) live on the root command.
// Source flags (--host, --archive, --ssh, --local, --loop) are added to
// every command that opens a source through AddSourceFlags; at most one
// source may be named.
//
// # Logging
//
// The table view owns the terminal, so the standard log output goes to
// --log-file, or nowhere. Set TREETOP_DEBUG to include debug messages.
package cli
