// Command canlog is a tool for viewing and analyzing candb diagnostic
// event logs.
//
// Event logs are CBOR files written by diag.FileLogger: wire one into
// the parsers with candb.WithDiagnostics, or record decoded traffic
// with "candb decode -log".
//
// Usage:
//
//	canlog <command> [flags] <file.canlog>
//
// Commands:
//
//	view     View event log in human-readable format
//	export   Export event log to JSON or CSV format
//	stats    Show statistics about the event log
//
// Examples:
//
//	# View all events
//	canlog view parse.canlog
//
//	# View only merge collisions
//	canlog view -kind collision parse.canlog
//
//	# View frames of one arbitration ID
//	canlog view -kind frame -frame-id 0x1F0 decode.canlog
//
//	# Export to JSONL
//	canlog export -format jsonl parse.canlog
//
//	# Show statistics
//	canlog stats decode.canlog
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/candb-tools/candb-go/cmd/canlog/commands"
	"github.com/candb-tools/candb-go/pkg/diag"
)

const usage = `canlog - candb Event Log Analyzer

Usage:
  canlog <command> [flags] <file.canlog>

Commands:
  view     View event log in human-readable format
  export   Export event log to JSON or CSV format
  stats    Show statistics about the event log

Use "canlog <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `canlog view - View event log in human-readable format

Usage:
  canlog view [flags] <file.canlog>

Flags:
`)
		fs.PrintDefaults()
	}

	kind := fs.String("kind", "", "Filter by kind (collision, skip, frame)")
	severity := fs.String("severity", "", "Filter by severity (info, warning)")
	frameID := fs.String("frame-id", "", "Filter frame events by arbitration ID")
	session := fs.String("session", "", "Filter by session ID")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: event log path required")
		fs.Usage()
		os.Exit(1)
	}

	path := fs.Arg(0)

	filter := diag.Filter{SessionID: *session}

	if *kind != "" {
		k, err := commands.ParseKindFlag(*kind)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		filter.Kind = &k
	}

	if *severity != "" {
		s, err := commands.ParseSeverityFlag(*severity)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		filter.Severity = &s
	}

	if *frameID != "" {
		id, err := commands.ParseFrameIDFlag(*frameID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		filter.FrameID = &id
	}

	if err := commands.RunView(path, filter, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `canlog export - Export event log to JSON or CSV format

Usage:
  canlog export [flags] <file.canlog>

Flags:
`)
		fs.PrintDefaults()
	}

	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: event log path required")
		fs.Usage()
		os.Exit(1)
	}

	if err := commands.RunExport(fs.Arg(0), *format, *output); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `canlog stats - Show statistics about the event log

Usage:
  canlog stats <file.canlog>

`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: event log path required")
		fs.Usage()
		os.Exit(1)
	}

	if err := commands.RunStats(fs.Arg(0), os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
