package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/candb-tools/candb-go/pkg/diag"
)

// RunExport exports the event log to the specified format.
func RunExport(path, format, output string) error {
	reader, err := diag.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open event log: %w", err)
	}
	defer reader.Close()

	// Determine output writer
	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "jsonl":
		return exportJSONL(reader, w)
	case "csv":
		return exportCSV(reader, w)
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}
}

func exportJSONL(reader *diag.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := encoder.Encode(event); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
	return nil
}

func exportCSV(reader *diag.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	// Write header
	header := []string{"timestamp", "session_id", "severity", "kind", "frame_id", "message", "keyword", "line", "previous", "incoming"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		// Kind-specific columns, empty where not applicable
		frameID := ""
		message := ""
		keyword := ""
		line := ""
		previous := ""
		incoming := ""
		switch {
		case event.Collision != nil:
			c := event.Collision
			if c.Table == diag.CollisionByFrameID {
				frameID = strconv.FormatUint(uint64(c.FrameID), 10)
			} else {
				message = c.Name
			}
			previous = c.Previous
			incoming = c.Incoming
		case event.Skip != nil:
			keyword = event.Skip.Keyword
			line = strconv.Itoa(event.Skip.Line)
		case event.Frame != nil:
			frameID = strconv.FormatUint(uint64(event.Frame.FrameID), 10)
			message = event.Frame.Message
		}

		row := []string{
			event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z"),
			event.SessionID,
			event.Severity.String(),
			event.Kind.String(),
			frameID,
			message,
			keyword,
			line,
			previous,
			incoming,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return nil
}
