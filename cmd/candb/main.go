// Command candb is a tool for working with CAN signal database files.
//
// It reads DBC, KCD, and SYM databases and offers candump trace
// decoding, conversion to DBC, database summaries, and an interactive
// browser shell.
//
// Usage:
//
//	candb <command> [flags] <file...>
//
// Commands:
//
//	decode   Decode candump frames from standard input
//	dump     Parse a database file and print it as DBC
//	list     List messages and signals
//	browse   Browse a database interactively
//
// Examples:
//
//	# Decode live traffic against a database
//	candump vcan0 | candb decode vehicle.dbc
//
//	# Decode raw field values only
//	candump vcan0 | candb decode -minimal vehicle.dbc
//
//	# Convert a KCD database to DBC
//	candb dump vehicle.kcd > vehicle.dbc
//
//	# Summarize several databases
//	candb list vehicle.dbc gateway.sym
//
//	# Explore a database interactively
//	candb browse vehicle.dbc
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/candb-tools/candb-go/cmd/candb/commands"
)

const usage = `candb - CAN Signal Database Tool

Usage:
  candb <command> [flags] <file...>

Commands:
  decode   Decode candump frames from standard input
  dump     Parse a database file and print it as DBC
  list     List messages and signals
  browse   Browse a database interactively

Use "candb <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "decode":
		runDecode(args)
	case "dump":
		runDump(args)
	case "list":
		runList(args)
	case "browse":
		runBrowse(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func runDecode(args []string) {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `candb decode - Decode candump frames from standard input

Usage:
  candump vcan0 | candb decode [flags] <file.{dbc,kcd,sym}>

Flags:
`)
		fs.PrintDefaults()
	}

	noChoices := fs.Bool("no-choices", false, "Do not convert raw values to choice labels")
	noScaling := fs.Bool("no-scaling", false, "Do not scale raw values")
	noUnits := fs.Bool("no-units", false, "Do not display units")
	minimal := fs.Bool("minimal", false, "Print only the timestamp and raw signal values")
	format := fs.String("format", "text", "Output format (text, jsonl, csv)")
	logPath := fs.String("log", "", "Append decoded frames to a CBOR event log")
	verbose := fs.Bool("v", false, "Log parse diagnostics to stderr")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: database file path required")
		fs.Usage()
		os.Exit(1)
	}

	opts := commands.DecodeOptions{
		NoChoices: *noChoices,
		NoScaling: *noScaling,
		NoUnits:   *noUnits,
		Minimal:   *minimal,
		Format:    *format,
		LogPath:   *logPath,
		Verbose:   *verbose,
	}

	if err := commands.RunDecode(fs.Arg(0), os.Stdin, os.Stdout, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runDump(args []string) {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `candb dump - Parse a database file and print it as DBC

Usage:
  candb dump [flags] <file.{dbc,kcd,sym}>

Flags:
`)
		fs.PrintDefaults()
	}

	verbose := fs.Bool("v", false, "Log parse diagnostics to stderr")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: database file path required")
		fs.Usage()
		os.Exit(1)
	}

	if err := commands.RunDump(fs.Arg(0), os.Stdout, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runList(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `candb list - List messages and signals

Usage:
  candb list [flags] <file.{dbc,kcd,sym}>...

Flags:
`)
		fs.PrintDefaults()
	}

	verbose := fs.Bool("v", false, "Log parse diagnostics to stderr")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: database file path required")
		fs.Usage()
		os.Exit(1)
	}

	if err := commands.RunList(fs.Args(), os.Stdout, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runBrowse(args []string) {
	fs := flag.NewFlagSet("browse", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `candb browse - Browse a database interactively

Usage:
  candb browse [flags] <file.{dbc,kcd,sym}>...

Multiple files are merged into one session.

Flags:
`)
		fs.PrintDefaults()
	}

	verbose := fs.Bool("v", false, "Log parse diagnostics to stderr")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: database file path required")
		fs.Usage()
		os.Exit(1)
	}

	if err := commands.RunBrowse(fs.Args(), *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
