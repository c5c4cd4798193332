package commands

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/candb-tools/candb-go/pkg/diag"
)

const engineDBC = `VERSION "1.0"

BU_: ECU

BO_ 496 EngineData: 8 ECU
 SG_ EngineSpeed : 0|16@1+ (0.25,0) [0|16383.75] "rpm" Vector__XXX
 SG_ Gear : 16|8@1+ (1,0) [0|0] "" Vector__XXX

VAL_ 496 Gear 0 "neutral" 1 "first" ;
`

// writeTempDBC writes the engine fixture to a temp file and returns its path.
func writeTempDBC(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine.dbc")
	if err := os.WriteFile(path, []byte(engineDBC), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

func TestRunDecodeText(t *testing.T) {
	input := strings.Join([]string{
		"  vcan0  1F0   [8]  10 27 01 00 00 00 00 00",
		"interface vcan0 is down",
		"  vcan0  7FF   [2]  01 02",
	}, "\n")

	var out bytes.Buffer
	if err := RunDecode(writeTempDBC(t), strings.NewReader(input), &out, DecodeOptions{}); err != nil {
		t.Fatalf("RunDecode returned error: %v", err)
	}

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 output lines, got %d: %q", len(lines), out.String())
	}

	want := "  vcan0  1F0   [8]  10 27 01 00 00 00 00 00 :: EngineData(EngineSpeed: 2500 rpm, Gear: 'first')"
	if lines[0] != want {
		t.Errorf("line 0 = %q, want %q", lines[0], want)
	}
	if lines[1] != "interface vcan0 is down" {
		t.Errorf("line 1 = %q, want unchanged passthrough", lines[1])
	}
	if !strings.HasSuffix(lines[2], " :: Unknown frame id 2047") {
		t.Errorf("line 2 = %q, want unknown frame id suffix", lines[2])
	}
}

func TestRunDecodeMinimal(t *testing.T) {
	input := "(1378.006329)  vcan0  1F0   [8]  10 27 01 00 00 00 00 00\n"

	var out bytes.Buffer
	if err := RunDecode(writeTempDBC(t), strings.NewReader(input), &out, DecodeOptions{Minimal: true}); err != nil {
		t.Fatalf("RunDecode returned error: %v", err)
	}

	want := "(1378.006329) :: EngineData(EngineSpeed: 10000, Gear: 1)\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestRunDecodeNoScaling(t *testing.T) {
	input := "  vcan0  1F0   [8]  10 27 01 00 00 00 00 00\n"

	var out bytes.Buffer
	if err := RunDecode(writeTempDBC(t), strings.NewReader(input), &out, DecodeOptions{NoScaling: true}); err != nil {
		t.Fatalf("RunDecode returned error: %v", err)
	}

	// Raw field values, but choices and units still apply.
	if !strings.Contains(out.String(), "EngineData(EngineSpeed: 10000 rpm, Gear: 'first')") {
		t.Errorf("output = %q, want raw values with units and choices", out.String())
	}
}

func TestRunDecodeNoChoices(t *testing.T) {
	input := "  vcan0  1F0   [8]  10 27 01 00 00 00 00 00\n"

	var out bytes.Buffer
	if err := RunDecode(writeTempDBC(t), strings.NewReader(input), &out, DecodeOptions{NoChoices: true}); err != nil {
		t.Fatalf("RunDecode returned error: %v", err)
	}

	if !strings.Contains(out.String(), "Gear: 1)") {
		t.Errorf("output = %q, want numeric Gear value", out.String())
	}
}

func TestRunDecodeJSONL(t *testing.T) {
	input := strings.Join([]string{
		"noise",
		"  vcan0  1F0   [8]  10 27 01 00 00 00 00 00",
		"  vcan0  7FF   [2]  01 02",
	}, "\n")

	var out bytes.Buffer
	if err := RunDecode(writeTempDBC(t), strings.NewReader(input), &out, DecodeOptions{Format: "jsonl"}); err != nil {
		t.Fatalf("RunDecode returned error: %v", err)
	}

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 JSONL records, got %d: %q", len(lines), out.String())
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("failed to parse record: %v", err)
	}
	if got, ok := rec["frame_id"].(float64); !ok || got != 496 {
		t.Errorf("frame_id = %v, want 496", rec["frame_id"])
	}
	if rec["message"] != "EngineData" {
		t.Errorf("message = %v, want EngineData", rec["message"])
	}
	if rec["data"] != "1027010000000000" {
		t.Errorf("data = %v, want 1027010000000000", rec["data"])
	}
	signals, ok := rec["signals"].(map[string]any)
	if !ok {
		t.Fatalf("signals missing from record: %v", rec)
	}
	if got, ok := signals["EngineSpeed"].(float64); !ok || got != 2500 {
		t.Errorf("EngineSpeed = %v, want 2500", signals["EngineSpeed"])
	}
	if signals["Gear"] != "first" {
		t.Errorf("Gear = %v, want first", signals["Gear"])
	}

	var unknown map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &unknown); err != nil {
		t.Fatalf("failed to parse record: %v", err)
	}
	if unknown["error"] != "Unknown frame id 2047" {
		t.Errorf("error = %v, want unknown frame id text", unknown["error"])
	}
	if _, present := unknown["message"]; present {
		t.Errorf("unknown frame record should omit message, got %v", unknown["message"])
	}
}

func TestRunDecodeCSV(t *testing.T) {
	input := "  vcan0  1F0   [8]  10 27 01 00 00 00 00 00\n  vcan0  7FF   [2]  01 02\n"

	var out bytes.Buffer
	if err := RunDecode(writeTempDBC(t), strings.NewReader(input), &out, DecodeOptions{Format: "csv"}); err != nil {
		t.Fatalf("RunDecode returned error: %v", err)
	}

	records, err := csv.NewReader(&out).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse CSV output: %v", err)
	}

	// Header, one row per decoded signal, one error row.
	if len(records) != 4 {
		t.Fatalf("expected 4 CSV records, got %d: %v", len(records), records)
	}

	wantHeader := "timestamp,frame_id,message,signal,value,unit,error"
	if got := strings.Join(records[0], ","); got != wantHeader {
		t.Errorf("header = %q, want %q", got, wantHeader)
	}

	speed := records[1]
	if speed[1] != "496" || speed[2] != "EngineData" || speed[3] != "EngineSpeed" || speed[4] != "2500" || speed[5] != "rpm" {
		t.Errorf("EngineSpeed row = %v", speed)
	}
	gear := records[2]
	if gear[3] != "Gear" || gear[4] != "first" {
		t.Errorf("Gear row = %v", gear)
	}
	if records[3][6] != "Unknown frame id 2047" {
		t.Errorf("error row = %v, want unknown frame id text", records[3])
	}
}

func TestRunDecodeEventLog(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "decode.canlog")
	input := "  vcan0  1F0   [8]  10 27 01 00 00 00 00 00\n  vcan0  7FF   [2]  01 02\n"

	var out bytes.Buffer
	opts := DecodeOptions{LogPath: logPath}
	if err := RunDecode(writeTempDBC(t), strings.NewReader(input), &out, opts); err != nil {
		t.Fatalf("RunDecode returned error: %v", err)
	}

	reader, err := diag.NewReader(logPath)
	if err != nil {
		t.Fatalf("failed to open event log: %v", err)
	}
	defer reader.Close()

	var events []diag.Event
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("failed to read event: %v", err)
		}
		events = append(events, event)
	}

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	first := events[0]
	if first.Kind != diag.KindFrame {
		t.Errorf("first event kind = %v, want FRAME", first.Kind)
	}
	if first.SessionID == "" {
		t.Error("expected a session ID on logged events")
	}
	if first.Frame == nil {
		t.Fatal("first event has no frame payload")
	}
	if first.Frame.Message != "EngineData" {
		t.Errorf("first frame message = %q, want EngineData", first.Frame.Message)
	}
	if first.Frame.Unknown {
		t.Error("first frame should not be unknown")
	}
	if len(first.Frame.Values) != 2 {
		t.Errorf("first frame values = %v, want 2 entries", first.Frame.Values)
	}

	second := events[1]
	if second.Frame == nil || !second.Frame.Unknown {
		t.Errorf("second frame should be flagged unknown: %+v", second.Frame)
	}
	if second.Frame.FrameID != 2047 {
		t.Errorf("second frame ID = %d, want 2047", second.Frame.FrameID)
	}
	if second.SessionID != first.SessionID {
		t.Errorf("events of one run should share a session ID: %q vs %q", first.SessionID, second.SessionID)
	}
}

func TestRunDecodeUnknownFormat(t *testing.T) {
	err := RunDecode(writeTempDBC(t), strings.NewReader(""), io.Discard, DecodeOptions{Format: "yaml"})
	if err == nil {
		t.Fatal("expected error for unknown format")
	}
	if !strings.Contains(err.Error(), "unknown format: yaml") {
		t.Errorf("error = %v, want unknown format text", err)
	}
}

func TestRunDecodeMissingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.dbc")
	err := RunDecode(path, strings.NewReader(""), io.Discard, DecodeOptions{})
	if err == nil {
		t.Fatal("expected error for missing database file")
	}
	if !strings.Contains(err.Error(), "failed to read database file") {
		t.Errorf("error = %v, want read failure text", err)
	}
}
