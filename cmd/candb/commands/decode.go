// Package commands implements the candb CLI commands.
package commands

import (
	"bufio"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/candb-tools/candb-go/pkg/codec"
	"github.com/candb-tools/candb-go/pkg/descriptor"
	"github.com/candb-tools/candb-go/pkg/diag"
)

// Matches candump output, e.g. "vcan0  1F0   [8]  00 00 00 00 00 00 1B C1".
var candumpRe = regexp.MustCompile(`^.*  ([0-9A-F]+)   \[\d+\]\s*([0-9A-F ]*)$`)

// Matches a leading candump timestamp, e.g. "(1378.006329)  can0  0B2 ...".
var timestampRe = regexp.MustCompile(`^\((.*)\)`)

// DecodeOptions controls the decode command.
type DecodeOptions struct {
	// NoChoices prints raw values instead of choice labels.
	NoChoices bool

	// NoScaling prints raw field values without the physical transform.
	NoScaling bool

	// NoUnits leaves signal units out of text output.
	NoUnits bool

	// Minimal implies NoChoices, NoScaling and NoUnits and reduces each
	// matched line to its timestamp.
	Minimal bool

	// Format selects the output renderer: text, jsonl or csv.
	Format string

	// LogPath, when set, appends one CBOR frame event per matched line.
	LogPath string

	// Verbose logs parse diagnostics to stderr.
	Verbose bool
}

// decodedFrame is one matched candump line and its decode outcome.
type decodedFrame struct {
	Line      string
	Timestamp string
	FrameID   uint32
	Data      []byte
	Message   *descriptor.Message // nil when the frame ID is unknown
	Values    map[string]any      // nil when lookup or decode failed
	Err       error
}

// errorText renders a frame's failure for display.
func (f decodedFrame) errorText() string {
	if f.Err == nil {
		return ""
	}
	if f.Message == nil {
		return fmt.Sprintf("Unknown frame id %d", f.FrameID)
	}
	return f.Err.Error()
}

// renderer writes decoded frames in one output format.
type renderer interface {
	// passthrough handles an input line that is not a candump frame.
	passthrough(line string)
	// frame writes one matched frame.
	frame(f decodedFrame) error
}

// RunDecode decodes candump-formatted frames read from input against
// the database file and writes them to output. Input lines that do not
// look like candump frames pass through unchanged in text format and
// are dropped by the other renderers.
func RunDecode(dbPath string, input io.Reader, output io.Writer, opts DecodeOptions) error {
	db, err := loadDatabase(dbPath, verboseLogger(opts.Verbose))
	if err != nil {
		return err
	}

	var render renderer
	switch opts.Format {
	case "", "text":
		render = &textRenderer{
			out:       output,
			minimal:   opts.Minimal,
			showUnits: !opts.NoUnits && !opts.Minimal,
		}
	case "jsonl":
		render = &jsonlRenderer{enc: json.NewEncoder(output)}
	case "csv":
		cr := &csvRenderer{w: csv.NewWriter(output)}
		defer cr.w.Flush()
		render = cr
	default:
		return fmt.Errorf("unknown format: %s (supported: text, jsonl, csv)", opts.Format)
	}

	var logger *diag.FileLogger
	session := ""
	if opts.LogPath != "" {
		logger, err = diag.NewFileLogger(opts.LogPath)
		if err != nil {
			return fmt.Errorf("failed to open event log: %w", err)
		}
		defer logger.Close()
		session = diag.NewSession()
	}

	decOpts := codec.DecodeOptions{
		DecodeChoices: !opts.NoChoices && !opts.Minimal,
		ApplyScaling:  !opts.NoScaling && !opts.Minimal,
	}

	scanner := bufio.NewScanner(input)
	var timestamp string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		if ts := timestampRe.FindStringSubmatch(line); ts != nil {
			timestamp = ts[1]
		}

		mo := candumpRe.FindStringSubmatch(line)
		if mo == nil {
			render.passthrough(line)
			continue
		}

		frameID, data, err := unpackFrame(mo)
		if err != nil {
			render.passthrough(line)
			continue
		}

		frame := decodeFrame(db, frameID, data, decOpts)
		frame.Line = line
		frame.Timestamp = timestamp

		if logger != nil {
			logFrame(logger, session, frame)
		}
		if err := render.frame(frame); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// unpackFrame converts the candump regex captures to a frame ID and
// payload.
func unpackFrame(mo []string) (uint32, []byte, error) {
	frameID, err := strconv.ParseUint(mo[1], 16, 32)
	if err != nil {
		return 0, nil, err
	}
	data, err := hex.DecodeString(strings.ReplaceAll(mo[2], " ", ""))
	if err != nil {
		return 0, nil, err
	}
	return uint32(frameID), data, nil
}

// decodeFrame looks the frame up and decodes its signal values.
func decodeFrame(db *descriptor.Database, frameID uint32, data []byte, opts codec.DecodeOptions) decodedFrame {
	frame := decodedFrame{FrameID: frameID, Data: data}

	msg, err := db.MessageByFrameID(frameID)
	if err != nil {
		frame.Err = err
		return frame
	}
	frame.Message = msg

	values, err := codec.Decode(msg, data, opts)
	if err != nil {
		frame.Err = err
		return frame
	}
	frame.Values = values
	return frame
}

// logFrame appends one frame event to the CBOR event log.
func logFrame(logger diag.Logger, session string, f decodedFrame) {
	frame := &diag.FrameEvent{
		FrameID: f.FrameID,
		Data:    f.Data,
		Values:  f.Values,
		Unknown: f.Message == nil,
	}
	if f.Message != nil {
		frame.Message = f.Message.Name
	}
	logger.Log(diag.Event{
		Timestamp: time.Now(),
		SessionID: session,
		Severity:  diag.SeverityInfo,
		Kind:      diag.KindFrame,
		Frame:     frame,
	})
}

// formatFrame renders a frame for text output: "Name(Sig: value unit,
// ...)", the lookup-miss note, or the decode error text.
func formatFrame(f decodedFrame, showUnits bool) string {
	if f.Err != nil {
		return f.errorText()
	}

	parts := make([]string, 0, len(f.Message.Signals))
	for _, s := range f.Message.Signals {
		value, ok := f.Values[s.Name]
		if !ok {
			continue
		}
		formatted := formatValue(value)
		if showUnits && s.Unit != "" {
			formatted += " " + s.Unit
		}
		parts = append(parts, s.Name+": "+formatted)
	}
	return fmt.Sprintf("%s(%s)", f.Message.Name, strings.Join(parts, ", "))
}

// formatValue renders a decoded signal value; choice labels are quoted.
func formatValue(value any) string {
	if label, ok := value.(string); ok {
		return "'" + label + "'"
	}
	return fmt.Sprintf("%v", value)
}

// textRenderer appends the decoded form to each matched line.
type textRenderer struct {
	out       io.Writer
	minimal   bool
	showUnits bool
}

func (r *textRenderer) passthrough(line string) {
	fmt.Fprintln(r.out, line)
}

func (r *textRenderer) frame(f decodedFrame) error {
	line := f.Line
	if r.minimal {
		line = "(" + f.Timestamp + ")"
	}
	fmt.Fprintf(r.out, "%s :: %s\n", line, formatFrame(f, r.showUnits))
	return nil
}

// frameRecord is the JSONL projection of a decoded frame.
type frameRecord struct {
	Timestamp string         `json:"timestamp,omitempty"`
	FrameID   uint32         `json:"frame_id"`
	Data      string         `json:"data"`
	Message   string         `json:"message,omitempty"`
	Signals   map[string]any `json:"signals,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// jsonlRenderer writes one JSON object per matched frame.
type jsonlRenderer struct {
	enc *json.Encoder
}

func (r *jsonlRenderer) passthrough(string) {}

func (r *jsonlRenderer) frame(f decodedFrame) error {
	rec := frameRecord{
		Timestamp: f.Timestamp,
		FrameID:   f.FrameID,
		Data:      strings.ToUpper(hex.EncodeToString(f.Data)),
		Signals:   f.Values,
		Error:     f.errorText(),
	}
	if f.Message != nil {
		rec.Message = f.Message.Name
	}
	if err := r.enc.Encode(rec); err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}
	return nil
}

// csvRenderer writes one row per decoded signal. Frames that fail to
// decode produce a single row with the error column set.
type csvRenderer struct {
	w           *csv.Writer
	wroteHeader bool
}

func (r *csvRenderer) passthrough(string) {}

func (r *csvRenderer) frame(f decodedFrame) error {
	if !r.wroteHeader {
		header := []string{"timestamp", "frame_id", "message", "signal", "value", "unit", "error"}
		if err := r.w.Write(header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		r.wroteHeader = true
	}

	id := strconv.FormatUint(uint64(f.FrameID), 10)
	name := ""
	if f.Message != nil {
		name = f.Message.Name
	}

	if f.Err != nil {
		row := []string{f.Timestamp, id, name, "", "", "", f.errorText()}
		if err := r.w.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
		return nil
	}

	for _, s := range f.Message.Signals {
		value, ok := f.Values[s.Name]
		if !ok {
			continue
		}
		row := []string{f.Timestamp, id, name, s.Name, fmt.Sprintf("%v", value), s.Unit, ""}
		if err := r.w.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return nil
}
