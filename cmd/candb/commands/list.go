package commands

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/candb-tools/candb-go/pkg/descriptor"
)

// RunList prints a message and signal summary for each database file.
func RunList(paths []string, w io.Writer, verbose bool) error {
	for i, path := range paths {
		if i > 0 {
			fmt.Fprintln(w)
		}
		db, err := loadDatabase(path, verboseLogger(verbose))
		if err != nil {
			return err
		}
		listDatabase(w, path, db)
	}
	return nil
}

// listDatabase writes the summary table for one database.
func listDatabase(w io.Writer, path string, db *descriptor.Database) {
	messages := db.Messages()

	header := filepath.Base(path)
	if version := db.Version(); version != "" {
		header += " (version " + version + ")"
	}
	fmt.Fprintf(w, "%s: %d messages\n", header, len(messages))

	for _, m := range messages {
		fmt.Fprintf(w, "  %-12s %-32s %d bytes\n", formatFrameID(m), m.Name, m.Length)
		for _, s := range m.Signals {
			writeSignalLine(w, s)
		}
	}
}

// writeSignalLine writes one signal row in DBC-flavored notation.
func writeSignalLine(w io.Writer, s *descriptor.Signal) {
	layout := fmt.Sprintf("%d|%d@%d%s", s.Start, s.Length, orderFlag(s.ByteOrder), signFlag(s.Signed))
	fmt.Fprintf(w, "    %-28s %-10s (%v,%v) [%v|%v]", s.Name, layout, s.Scale, s.Offset, s.Min, s.Max)
	if s.Unit != "" {
		fmt.Fprintf(w, " %q", s.Unit)
	}
	switch s.MuxRole {
	case descriptor.MuxSelector:
		fmt.Fprint(w, " M")
	case descriptor.MuxCase:
		fmt.Fprintf(w, " m%d", s.MuxID)
	}
	fmt.Fprintln(w)
}

// formatFrameID renders a frame ID in hex, wide for extended IDs.
func formatFrameID(m *descriptor.Message) string {
	if m.IsExtended {
		return fmt.Sprintf("0x%08X", m.FrameID)
	}
	return fmt.Sprintf("0x%03X", m.FrameID)
}

func orderFlag(o descriptor.ByteOrder) int {
	if o == descriptor.BigEndian {
		return 0
	}
	return 1
}

func signFlag(signed bool) string {
	if signed {
		return "-"
	}
	return "+"
}
