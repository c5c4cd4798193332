// Package commands implements the canlog CLI commands.
package commands

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/candb-tools/candb-go/pkg/diag"
)

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event diag.Event) {
	// Header line: timestamp [sess:id] SEVERITY KIND
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	fmt.Fprintf(w, "%s [sess:%s] %-7s %s\n",
		ts, shortenSession(event.SessionID), event.Severity.String(), event.Kind.String())

	switch {
	case event.Collision != nil:
		formatCollisionDetails(w, event.Collision)
	case event.Skip != nil:
		formatSkipDetails(w, event.Skip)
	case event.Frame != nil:
		formatFrameDetails(w, event.Frame)
	}

	fmt.Fprintln(w) // Blank line between events
}

// shortenSession returns the first 8 characters of the session ID.
func shortenSession(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

// formatCollisionDetails writes merge collision details.
func formatCollisionDetails(w io.Writer, c *diag.CollisionEvent) {
	fmt.Fprintf(w, "  Table: %s\n", c.Table.String())
	switch c.Table {
	case diag.CollisionByName:
		fmt.Fprintf(w, "  Name: %s\n", c.Name)
	case diag.CollisionByFrameID:
		fmt.Fprintf(w, "  Frame ID: 0x%X\n", c.FrameID)
	}
	fmt.Fprintf(w, "  Previous: %s\n", c.Previous)
	fmt.Fprintf(w, "  Incoming: %s\n", c.Incoming)
}

// formatSkipDetails writes skipped section details.
func formatSkipDetails(w io.Writer, s *diag.SkipEvent) {
	fmt.Fprintf(w, "  Keyword: %s\n", s.Keyword)
	fmt.Fprintf(w, "  Line: %d\n", s.Line)
	if s.Text != "" {
		fmt.Fprintf(w, "  Text: %s\n", s.Text)
	}
}

// formatFrameDetails writes decoded frame details.
func formatFrameDetails(w io.Writer, f *diag.FrameEvent) {
	fmt.Fprintf(w, "  Frame ID: 0x%X\n", f.FrameID)
	if len(f.Data) > 0 {
		fmt.Fprintf(w, "  Data: %s\n", strings.ToUpper(hex.EncodeToString(f.Data)))
	}
	if f.Unknown {
		fmt.Fprintln(w, "  Unknown frame")
		return
	}
	if f.Message != "" {
		fmt.Fprintf(w, "  Message: %s\n", f.Message)
	}
	if f.Values != nil {
		valuesJSON, err := json.Marshal(f.Values)
		if err == nil {
			fmt.Fprintf(w, "  Values: %s\n", string(valuesJSON))
		}
	}
}

// ParseKindFlag parses a kind string from a command-line flag (case-insensitive).
func ParseKindFlag(s string) (diag.Kind, error) {
	return parseKind(s)
}

// parseKind parses a kind string (case-insensitive).
func parseKind(s string) (diag.Kind, error) {
	switch strings.ToLower(s) {
	case "collision":
		return diag.KindCollision, nil
	case "skip":
		return diag.KindSkip, nil
	case "frame":
		return diag.KindFrame, nil
	default:
		return 0, fmt.Errorf("invalid kind: %s (must be collision, skip, or frame)", s)
	}
}

// ParseSeverityFlag parses a severity string from a command-line flag (case-insensitive).
func ParseSeverityFlag(s string) (diag.Severity, error) {
	return parseSeverity(s)
}

// parseSeverity parses a severity string (case-insensitive).
func parseSeverity(s string) (diag.Severity, error) {
	switch strings.ToLower(s) {
	case "info":
		return diag.SeverityInfo, nil
	case "warning":
		return diag.SeverityWarning, nil
	default:
		return 0, fmt.Errorf("invalid severity: %s (must be info or warning)", s)
	}
}

// ParseFrameIDFlag parses an arbitration ID from a command-line flag.
func ParseFrameIDFlag(s string) (uint32, error) {
	id, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid frame id: %s (must be a decimal or 0x-prefixed hex number)", s)
	}
	return uint32(id), nil
}

// RunView executes the view command.
func RunView(path string, filter diag.Filter, output io.Writer) error {
	reader, err := diag.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open event log: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		formatEvent(output, event)
	}

	return nil
}
