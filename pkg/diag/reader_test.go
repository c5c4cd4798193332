package diag

import (
	"io"
	"path/filepath"
	"testing"
	"time"
)

func createTestLogFile(t *testing.T, events []Event) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.canlog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create test log: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()

	return path
}

func readAll(t *testing.T, reader *Reader) []Event {
	t.Helper()
	var read []Event
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return read
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		read = append(read, event)
	}
}

func TestReaderIteratesEvents(t *testing.T) {
	events := []Event{
		{Timestamp: time.Now(), SessionID: "s-1", Severity: SeverityInfo, Kind: KindSkip},
		{Timestamp: time.Now(), SessionID: "s-2", Severity: SeverityWarning, Kind: KindCollision},
		{Timestamp: time.Now(), SessionID: "s-3", Severity: SeverityInfo, Kind: KindFrame},
	}

	path := createTestLogFile(t, events)

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	read := readAll(t, reader)
	if len(read) != 3 {
		t.Fatalf("got %d events, want 3", len(read))
	}
	if read[0].SessionID != "s-1" {
		t.Errorf("first event SessionID = %q, want %q", read[0].SessionID, "s-1")
	}
	if read[2].SessionID != "s-3" {
		t.Errorf("last event SessionID = %q, want %q", read[2].SessionID, "s-3")
	}
}

func TestReaderHandlesEmptyFile(t *testing.T) {
	path := createTestLogFile(t, nil)

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	event, err := reader.Next()
	if err != io.EOF {
		t.Errorf("expected io.EOF, got err=%v, event=%+v", err, event)
	}
}

func TestReaderEOFAfterLastEvent(t *testing.T) {
	path := createTestLogFile(t, []Event{
		{Timestamp: time.Now(), Severity: SeverityInfo, Kind: KindSkip},
	})

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	if _, err := reader.Next(); err != nil {
		t.Fatalf("first Next failed: %v", err)
	}
	if _, err := reader.Next(); err != io.EOF {
		t.Errorf("expected io.EOF after all events, got %v", err)
	}
}

func TestReaderFilterBySessionID(t *testing.T) {
	events := []Event{
		{Timestamp: time.Now(), SessionID: "s-A", Severity: SeverityInfo, Kind: KindSkip},
		{Timestamp: time.Now(), SessionID: "s-B", Severity: SeverityInfo, Kind: KindSkip},
		{Timestamp: time.Now(), SessionID: "s-A", Severity: SeverityWarning, Kind: KindCollision},
		{Timestamp: time.Now(), SessionID: "s-C", Severity: SeverityInfo, Kind: KindFrame},
	}

	path := createTestLogFile(t, events)

	reader, err := NewFilteredReader(path, Filter{SessionID: "s-A"})
	if err != nil {
		t.Fatalf("NewFilteredReader failed: %v", err)
	}
	defer reader.Close()

	read := readAll(t, reader)
	if len(read) != 2 {
		t.Fatalf("got %d events, want 2", len(read))
	}
	for _, e := range read {
		if e.SessionID != "s-A" {
			t.Errorf("event has SessionID=%q, want %q", e.SessionID, "s-A")
		}
	}
}

func TestReaderFilterByKind(t *testing.T) {
	events := []Event{
		{Timestamp: time.Now(), Severity: SeverityInfo, Kind: KindSkip},
		{Timestamp: time.Now(), Severity: SeverityWarning, Kind: KindCollision},
		{Timestamp: time.Now(), Severity: SeverityInfo, Kind: KindFrame},
		{Timestamp: time.Now(), Severity: SeverityWarning, Kind: KindCollision},
	}

	path := createTestLogFile(t, events)

	kind := KindCollision
	reader, err := NewFilteredReader(path, Filter{Kind: &kind})
	if err != nil {
		t.Fatalf("NewFilteredReader failed: %v", err)
	}
	defer reader.Close()

	read := readAll(t, reader)
	if len(read) != 2 {
		t.Fatalf("got %d events, want 2", len(read))
	}
	for _, e := range read {
		if e.Kind != KindCollision {
			t.Errorf("event has Kind=%v, want %v", e.Kind, KindCollision)
		}
	}
}

func TestReaderFilterBySeverity(t *testing.T) {
	events := []Event{
		{Timestamp: time.Now(), Severity: SeverityInfo, Kind: KindSkip},
		{Timestamp: time.Now(), Severity: SeverityWarning, Kind: KindCollision},
		{Timestamp: time.Now(), Severity: SeverityInfo, Kind: KindFrame},
	}

	path := createTestLogFile(t, events)

	severity := SeverityWarning
	reader, err := NewFilteredReader(path, Filter{Severity: &severity})
	if err != nil {
		t.Fatalf("NewFilteredReader failed: %v", err)
	}
	defer reader.Close()

	read := readAll(t, reader)
	if len(read) != 1 {
		t.Fatalf("got %d events, want 1", len(read))
	}
	if read[0].Kind != KindCollision {
		t.Errorf("event has Kind=%v, want %v", read[0].Kind, KindCollision)
	}
}

func TestReaderFilterByFrameID(t *testing.T) {
	events := []Event{
		{Timestamp: time.Now(), Severity: SeverityInfo, Kind: KindFrame, Frame: &FrameEvent{FrameID: 0x100}},
		{Timestamp: time.Now(), Severity: SeverityInfo, Kind: KindFrame, Frame: &FrameEvent{FrameID: 0x200}},
		{Timestamp: time.Now(), Severity: SeverityInfo, Kind: KindSkip, Skip: &SkipEvent{Keyword: "NS_"}},
		{Timestamp: time.Now(), Severity: SeverityInfo, Kind: KindFrame, Frame: &FrameEvent{FrameID: 0x100}},
	}

	path := createTestLogFile(t, events)

	frameID := uint32(0x100)
	reader, err := NewFilteredReader(path, Filter{FrameID: &frameID})
	if err != nil {
		t.Fatalf("NewFilteredReader failed: %v", err)
	}
	defer reader.Close()

	read := readAll(t, reader)
	if len(read) != 2 {
		t.Fatalf("got %d events, want 2", len(read))
	}
	for _, e := range read {
		if e.Frame == nil || e.Frame.FrameID != 0x100 {
			t.Errorf("event does not match frame id filter: %+v", e)
		}
	}
}

func TestReaderFilterByTimeRange(t *testing.T) {
	baseTime := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	events := []Event{
		{Timestamp: baseTime.Add(-1 * time.Hour), SessionID: "s-1", Severity: SeverityInfo, Kind: KindSkip},
		{Timestamp: baseTime, SessionID: "s-2", Severity: SeverityInfo, Kind: KindSkip},
		{Timestamp: baseTime.Add(30 * time.Minute), SessionID: "s-3", Severity: SeverityInfo, Kind: KindSkip},
		{Timestamp: baseTime.Add(2 * time.Hour), SessionID: "s-4", Severity: SeverityInfo, Kind: KindSkip},
	}

	path := createTestLogFile(t, events)

	start := baseTime.Add(-5 * time.Minute)
	end := baseTime.Add(1 * time.Hour)
	reader, err := NewFilteredReader(path, Filter{TimeStart: &start, TimeEnd: &end})
	if err != nil {
		t.Fatalf("NewFilteredReader failed: %v", err)
	}
	defer reader.Close()

	read := readAll(t, reader)
	if len(read) != 2 {
		t.Fatalf("got %d events, want 2 (events within time range)", len(read))
	}
	if read[0].SessionID != "s-2" {
		t.Errorf("first event SessionID = %q, want %q", read[0].SessionID, "s-2")
	}
	if read[1].SessionID != "s-3" {
		t.Errorf("second event SessionID = %q, want %q", read[1].SessionID, "s-3")
	}
}

func TestReaderCombinedFilters(t *testing.T) {
	events := []Event{
		{Timestamp: time.Now(), SessionID: "s-A", Severity: SeverityInfo, Kind: KindSkip},
		{Timestamp: time.Now(), SessionID: "s-A", Severity: SeverityWarning, Kind: KindCollision},
		{Timestamp: time.Now(), SessionID: "s-B", Severity: SeverityWarning, Kind: KindCollision},
		{Timestamp: time.Now(), SessionID: "s-A", Severity: SeverityWarning, Kind: KindCollision, Collision: &CollisionEvent{Table: CollisionByName}},
	}

	path := createTestLogFile(t, events)

	severity := SeverityWarning
	kind := KindCollision
	reader, err := NewFilteredReader(path, Filter{
		SessionID: "s-A",
		Severity:  &severity,
		Kind:      &kind,
	})
	if err != nil {
		t.Fatalf("NewFilteredReader failed: %v", err)
	}
	defer reader.Close()

	read := readAll(t, reader)
	if len(read) != 2 {
		t.Fatalf("got %d events, want 2", len(read))
	}
	for _, e := range read {
		if e.SessionID != "s-A" || e.Severity != SeverityWarning || e.Kind != KindCollision {
			t.Error("event doesn't match all filter criteria")
		}
	}
}
