package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/candb-tools/candb-go/pkg/diag"
)

// Stats holds aggregate statistics about an event log.
type Stats struct {
	TotalEvents      int
	EventsByKind     map[diag.Kind]int
	EventsBySeverity map[diag.Severity]int
	FrameCounts      map[uint32]int
	UnknownFrames    int
	Sessions         map[string]int
	TimeRange        struct {
		Start time.Time
		End   time.Time
	}
}

// RunStats analyzes the event log and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := diag.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open event log: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByKind:     make(map[diag.Kind]int),
		EventsBySeverity: make(map[diag.Severity]int),
		FrameCounts:      make(map[uint32]int),
		Sessions:         make(map[string]int),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		stats.TotalEvents++
		stats.EventsByKind[event.Kind]++
		stats.EventsBySeverity[event.Severity]++
		if event.SessionID != "" {
			stats.Sessions[event.SessionID]++
		}

		// Track time range
		if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
			stats.TimeRange.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.TimeRange.End) {
			stats.TimeRange.End = event.Timestamp
		}

		// Track per-arbitration-ID frame counts
		if event.Frame != nil {
			stats.FrameCounts[event.Frame.FrameID]++
			if event.Frame.Unknown {
				stats.UnknownFrames++
			}
		}
	}

	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== candb Event Log Statistics ===")
	fmt.Fprintln(w)

	// Time range
	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	// Total events
	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	// Events by kind
	fmt.Fprintln(w, "Events by Kind:")
	for _, kind := range []diag.Kind{diag.KindCollision, diag.KindSkip, diag.KindFrame} {
		if count := stats.EventsByKind[kind]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", kind.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	// Events by severity
	fmt.Fprintln(w, "Events by Severity:")
	for _, severity := range []diag.Severity{diag.SeverityInfo, diag.SeverityWarning} {
		if count := stats.EventsBySeverity[severity]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", severity.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	// Sessions
	fmt.Fprintf(w, "Sessions: %d\n", len(stats.Sessions))

	// Frames by arbitration ID
	if len(stats.FrameCounts) > 0 {
		ids := make([]uint32, 0, len(stats.FrameCounts))
		for id := range stats.FrameCounts {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		fmt.Fprintln(w)
		fmt.Fprintln(w, "Frames by ID:")
		for _, id := range ids {
			fmt.Fprintf(w, "  0x%-10X %d\n", id, stats.FrameCounts[id])
		}
		if stats.UnknownFrames > 0 {
			fmt.Fprintln(w)
			fmt.Fprintf(w, "Unknown Frames: %d\n", stats.UnknownFrames)
		}
	}
}
