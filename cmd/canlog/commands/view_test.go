package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/candb-tools/candb-go/pkg/diag"
)

func TestFormatCollisionEvent(t *testing.T) {
	event := diag.Event{
		Timestamp: time.Date(2026, 8, 21, 10, 15, 32, 123456000, time.UTC),
		SessionID: "abc12345-6789-4def-8abc-1234567890ab",
		Severity:  diag.SeverityWarning,
		Kind:      diag.KindCollision,
		Collision: &diag.CollisionEvent{
			Table:    diag.CollisionByFrameID,
			FrameID:  496,
			Previous: "EngineData",
			Incoming: "EngineStatus",
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "2026-08-21T10:15:32.123456Z") {
		t.Errorf("expected timestamp in output, got:\n%s", output)
	}
	if !strings.Contains(output, "[sess:abc12345]") {
		t.Errorf("expected shortened session ID in output, got:\n%s", output)
	}
	if !strings.Contains(output, "WARNING") {
		t.Error("expected WARNING severity in output")
	}
	if !strings.Contains(output, "COLLISION") {
		t.Error("expected COLLISION kind in output")
	}
	if !strings.Contains(output, "Table: FRAME_ID") {
		t.Error("expected collision table in output")
	}
	if !strings.Contains(output, "Frame ID: 0x1F0") {
		t.Errorf("expected frame ID in output, got:\n%s", output)
	}
	if !strings.Contains(output, "Previous: EngineData") {
		t.Error("expected previous message name in output")
	}
	if !strings.Contains(output, "Incoming: EngineStatus") {
		t.Error("expected incoming message name in output")
	}
}

func TestFormatCollisionEventByName(t *testing.T) {
	event := diag.Event{
		Timestamp: time.Date(2026, 8, 21, 10, 15, 32, 0, time.UTC),
		SessionID: "abc12345",
		Severity:  diag.SeverityWarning,
		Kind:      diag.KindCollision,
		Collision: &diag.CollisionEvent{
			Table:    diag.CollisionByName,
			Name:     "EngineData",
			Previous: "EngineData",
			Incoming: "EngineData",
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "Table: NAME") {
		t.Errorf("expected NAME table in output, got:\n%s", output)
	}
	if !strings.Contains(output, "Name: EngineData") {
		t.Error("expected colliding name in output")
	}
	if strings.Contains(output, "Frame ID:") {
		t.Error("expected no frame ID for name collision")
	}
}

func TestFormatSkipEvent(t *testing.T) {
	event := diag.Event{
		Timestamp: time.Date(2026, 8, 21, 10, 15, 32, 0, time.UTC),
		SessionID: "abc12345",
		Severity:  diag.SeverityInfo,
		Kind:      diag.KindSkip,
		Skip: &diag.SkipEvent{
			Keyword: "SIG_GROUP_",
			Line:    42,
			Text:    "SIG_GROUP_ 496 EngineGroup 1 : EngineSpeed;",
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "INFO") {
		t.Error("expected INFO severity in output")
	}
	if !strings.Contains(output, "SKIP") {
		t.Error("expected SKIP kind in output")
	}
	if !strings.Contains(output, "Keyword: SIG_GROUP_") {
		t.Errorf("expected keyword in output, got:\n%s", output)
	}
	if !strings.Contains(output, "Line: 42") {
		t.Error("expected line number in output")
	}
	if !strings.Contains(output, "Text: SIG_GROUP_ 496 EngineGroup 1 : EngineSpeed;") {
		t.Error("expected skipped text in output")
	}
}

func TestFormatFrameEvent(t *testing.T) {
	event := diag.Event{
		Timestamp: time.Date(2026, 8, 21, 10, 15, 32, 0, time.UTC),
		SessionID: "abc12345",
		Severity:  diag.SeverityInfo,
		Kind:      diag.KindFrame,
		Frame: &diag.FrameEvent{
			FrameID: 496,
			Data:    []byte{0x10, 0x27},
			Message: "EngineData",
			Values:  map[string]any{"EngineSpeed": 2500.0},
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "FRAME") {
		t.Error("expected FRAME kind in output")
	}
	if !strings.Contains(output, "Frame ID: 0x1F0") {
		t.Errorf("expected frame ID in output, got:\n%s", output)
	}
	if !strings.Contains(output, "Data: 1027") {
		t.Error("expected hex data in output")
	}
	if !strings.Contains(output, "Message: EngineData") {
		t.Error("expected message name in output")
	}
	if !strings.Contains(output, `"EngineSpeed":2500`) {
		t.Errorf("expected decoded values in output, got:\n%s", output)
	}
}

func TestFormatUnknownFrameEvent(t *testing.T) {
	event := diag.Event{
		Timestamp: time.Date(2026, 8, 21, 10, 15, 32, 0, time.UTC),
		SessionID: "abc12345",
		Severity:  diag.SeverityInfo,
		Kind:      diag.KindFrame,
		Frame: &diag.FrameEvent{
			FrameID: 2047,
			Data:    []byte{0x01},
			Unknown: true,
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "Frame ID: 0x7FF") {
		t.Errorf("expected frame ID in output, got:\n%s", output)
	}
	if !strings.Contains(output, "Unknown frame") {
		t.Error("expected unknown frame marker in output")
	}
	if strings.Contains(output, "Message:") {
		t.Error("expected no message name for unknown frame")
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		input   string
		want    diag.Kind
		wantErr bool
	}{
		{"collision", diag.KindCollision, false},
		{"skip", diag.KindSkip, false},
		{"frame", diag.KindFrame, false},
		{"FRAME", diag.KindFrame, false},
		{"bogus", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := parseKind(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseKind(%q): expected error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseKind(%q): unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseKind(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		input   string
		want    diag.Severity
		wantErr bool
	}{
		{"info", diag.SeverityInfo, false},
		{"warning", diag.SeverityWarning, false},
		{"INFO", diag.SeverityInfo, false},
		{"error", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := parseSeverity(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseSeverity(%q): expected error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseSeverity(%q): unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseSeverity(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseFrameIDFlag(t *testing.T) {
	tests := []struct {
		input   string
		want    uint32
		wantErr bool
	}{
		{"496", 496, false},
		{"0x1F0", 496, false},
		{"0", 0, false},
		{"not-a-number", 0, true},
		{"0x1FFFFFFFF", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseFrameIDFlag(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseFrameIDFlag(%q): expected error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseFrameIDFlag(%q): unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFrameIDFlag(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestRunViewFiltersByKind(t *testing.T) {
	ts := time.Date(2026, 8, 21, 10, 0, 0, 0, time.UTC)
	events := []diag.Event{
		{
			Timestamp: ts,
			SessionID: "session-1",
			Severity:  diag.SeverityWarning,
			Kind:      diag.KindCollision,
			Collision: &diag.CollisionEvent{Table: diag.CollisionByName, Name: "Dup", Previous: "Dup", Incoming: "Dup"},
		},
		{
			Timestamp: ts.Add(time.Second),
			SessionID: "session-1",
			Severity:  diag.SeverityInfo,
			Kind:      diag.KindSkip,
			Skip:      &diag.SkipEvent{Keyword: "VAL_TABLE_", Line: 7},
		},
		{
			Timestamp: ts.Add(2 * time.Second),
			SessionID: "session-1",
			Severity:  diag.SeverityInfo,
			Kind:      diag.KindFrame,
			Frame:     &diag.FrameEvent{FrameID: 496, Message: "EngineData"},
		},
	}

	path := createTestLogFile(t, events)

	kind := diag.KindCollision
	var buf bytes.Buffer
	if err := RunView(path, diag.Filter{Kind: &kind}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "COLLISION") {
		t.Errorf("expected collision event in output, got:\n%s", output)
	}
	if strings.Contains(output, "SKIP") {
		t.Error("expected skip event to be filtered out")
	}
	if strings.Contains(output, "FRAME") {
		t.Error("expected frame event to be filtered out")
	}
}

func TestRunViewMissingFile(t *testing.T) {
	var buf bytes.Buffer
	err := RunView("/nonexistent/path.canlog", diag.Filter{}, &buf)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "failed to open event log") {
		t.Errorf("expected open error, got: %v", err)
	}
}
