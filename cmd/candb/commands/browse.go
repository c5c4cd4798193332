package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/candb-tools/candb-go/pkg/codec"
	"github.com/candb-tools/candb-go/pkg/descriptor"
)

// browser holds the state of one interactive session.
type browser struct {
	db  *descriptor.Database
	out io.Writer
}

// RunBrowse starts the interactive shell on the given database files.
// Multiple files are merged into one database before the prompt opens.
func RunBrowse(paths []string, verbose bool) error {
	db, err := loadDatabases(paths, verboseLogger(verbose))
	if err != nil {
		return err
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "candb> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	b := &browser{db: db, out: rl.Stdout()}
	b.printHelp()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			return nil
		}
		if b.execute(line) {
			return nil
		}
	}
}

// execute runs one shell command. It returns true when the session
// should end.
func (b *browser) execute(line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return false
	}

	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		b.printHelp()

	case "messages", "m":
		b.cmdMessages()

	case "signals", "s":
		b.cmdSignals(args)

	case "decode", "d":
		b.cmdDecode(args)

	case "encode", "e":
		b.cmdEncode(args)

	case "quit", "exit", "q":
		fmt.Fprintln(b.out, "Exiting...")
		return true

	default:
		fmt.Fprintf(b.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (b *browser) printHelp() {
	fmt.Fprintln(b.out, `
candb Browser Commands:
  messages                 - List all messages
  signals <message>        - List the signals of a message
  decode <message> <hex>   - Decode a payload, e.g. decode 0x1F4 10 27 00 00
  encode <message> <s>=<v> - Encode signal values, e.g. encode EngineData EngineSpeed=2500
  help                     - Show this help
  quit                     - Exit

Messages are addressed by name or by frame ID (decimal or 0x-prefixed hex).`)
}

// cmdMessages lists every message in the database.
func (b *browser) cmdMessages() {
	messages := b.db.Messages()
	if len(messages) == 0 {
		fmt.Fprintln(b.out, "No messages")
		return
	}

	fmt.Fprintf(b.out, "%-12s %-32s %5s  %s\n", "ID", "Name", "Len", "Signals")
	for _, m := range messages {
		fmt.Fprintf(b.out, "%-12s %-32s %5d  %d\n", formatFrameID(m), m.Name, m.Length, len(m.Signals))
	}
}

// cmdSignals lists the signals of one message.
func (b *browser) cmdSignals(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(b.out, "Usage: signals <message>")
		return
	}

	m, err := b.message(args[0])
	if err != nil {
		fmt.Fprintf(b.out, "Error: %v\n", err)
		return
	}

	fmt.Fprintf(b.out, "%s %s, %d bytes\n", formatFrameID(m), m.Name, m.Length)
	for _, s := range m.Signals {
		writeSignalLine(b.out, s)
	}
}

// cmdDecode decodes a hex payload against one message.
func (b *browser) cmdDecode(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(b.out, "Usage: decode <message> <hex payload>")
		fmt.Fprintln(b.out, "  Example: decode 0x1F4 10 27 01 00 00 00 00 00")
		return
	}

	m, err := b.message(args[0])
	if err != nil {
		fmt.Fprintf(b.out, "Error: %v\n", err)
		return
	}

	payload, err := hex.DecodeString(strings.Join(args[1:], ""))
	if err != nil {
		fmt.Fprintf(b.out, "Invalid payload: %v\n", err)
		return
	}

	values, err := codec.Decode(m, payload, codec.DefaultDecodeOptions())
	if err != nil {
		fmt.Fprintf(b.out, "Error: %v\n", err)
		return
	}

	frame := decodedFrame{Message: m, Values: values}
	fmt.Fprintln(b.out, formatFrame(frame, true))
}

// cmdEncode packs signal assignments into a payload.
func (b *browser) cmdEncode(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(b.out, "Usage: encode <message> <signal>=<value> ...")
		fmt.Fprintln(b.out, "  Example: encode EngineData EngineSpeed=2500 Gear=first")
		return
	}

	m, err := b.message(args[0])
	if err != nil {
		fmt.Fprintf(b.out, "Error: %v\n", err)
		return
	}

	values := make(map[string]any, len(args)-1)
	for _, arg := range args[1:] {
		name, raw, ok := strings.Cut(arg, "=")
		if !ok {
			fmt.Fprintf(b.out, "Invalid assignment: %s (want signal=value)\n", arg)
			return
		}
		values[name] = parseSignalValue(raw)
	}

	payload, err := codec.Encode(m, values, codec.DefaultEncodeOptions())
	if err != nil {
		fmt.Fprintf(b.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(b.out, formatPayload(payload))
}

// message resolves a message by frame ID (decimal or 0x-prefixed hex)
// or by name.
func (b *browser) message(key string) (*descriptor.Message, error) {
	if id, err := strconv.ParseUint(key, 0, 32); err == nil {
		return b.db.MessageByFrameID(uint32(id))
	}
	return b.db.MessageByName(key)
}

// parseSignalValue parses an encode assignment value: integer, float,
// or choice label.
func parseSignalValue(s string) any {
	if v, err := strconv.ParseInt(s, 0, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	return strings.Trim(s, "\"'")
}

// formatPayload renders payload bytes as spaced uppercase hex.
func formatPayload(data []byte) string {
	parts := make([]string, len(data))
	for i, v := range data {
		parts[i] = fmt.Sprintf("%02X", v)
	}
	return strings.Join(parts, " ")
}
