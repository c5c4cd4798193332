package main

import (
	"strings"
	"testing"

	"github.com/candb-tools/candb-go/pkg/candb"
	"github.com/candb-tools/candb-go/pkg/descriptor"
)

const genDBC = `VERSION "1.0"

BU_: ECU GW

BO_ 496 EngineData: 8 ECU
 SG_ EngineSpeed : 0|16@1+ (0.25,0) [0|16383.75] "rpm" GW
 SG_ Gear : 16|8@1+ (1,0) [0|0] "" GW

BO_ 2566844672 GatewayStatus: 6 GW
 SG_ Counter : 7|8@0- (1,-10) [0|0] "" Vector__XXX

BO_ 1536 DiagReport: 8 GW
 SG_ Mode M : 0|8@1+ (1,0) [0|1] "" Vector__XXX
 SG_ OilPressure m0 : 8|16@1+ (0.01,0) [0|655.35] "bar" Vector__XXX

VAL_ 496 Gear 0 "neutral" 1 "first" ;
`

func genDatabase(t *testing.T) *descriptor.Database {
	t.Helper()
	db, err := candb.Load(genDBC, candb.DialectDBC)
	if err != nil {
		t.Fatalf("failed to load fixture: %v", err)
	}
	return db
}

func generateFixture(t *testing.T) string {
	t.Helper()
	output, err := Generate(genDatabase(t), "vehicledb")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	return output
}

func TestGenerateHeader(t *testing.T) {
	output := generateFixture(t)

	if !strings.HasPrefix(output, "// Code generated by candb-gen. DO NOT EDIT.") {
		t.Errorf("expected generated-code header, got: %s", truncate(output, 80))
	}
	mustContain(t, output, "package vehicledb")
}

func TestGenerateFrameConstants(t *testing.T) {
	output := generateFixture(t)

	mustContain(t, output, "FrameEngineData uint32 = 0x1F0")
	mustContain(t, output, "FrameGatewayStatus uint32 = 0x18FEF100")
	mustContain(t, output, "FrameDiagReport uint32 = 0x600")
}

func TestGenerateSignalNameConstants(t *testing.T) {
	output := generateFixture(t)

	mustContain(t, output, "// EngineData signal names.")
	mustContain(t, output, `EngineDataEngineSpeed = "EngineSpeed"`)
	mustContain(t, output, `EngineDataGear = "Gear"`)
	mustContain(t, output, `DiagReportOilPressure = "OilPressure"`)
}

func TestGenerateMessageDescriptors(t *testing.T) {
	output := generateFixture(t)

	mustContain(t, output, "func Messages() []*descriptor.Message {")
	mustContain(t, output, "newEngineData(),")
	mustContain(t, output, "func newEngineData() *descriptor.Message {")
	mustContain(t, output, "FrameID: FrameEngineData,")
	mustContain(t, output, `Name: "EngineData",`)
	mustContain(t, output, "Length: 8,")
	mustContain(t, output, `SenderNode: "ECU",`)
	mustContain(t, output, "Name: EngineDataEngineSpeed,")
	mustContain(t, output, "ByteOrder: descriptor.LittleEndian,")
	mustContain(t, output, "Scale: 0.25,")
	mustContain(t, output, "Max: 16383.75,")
	mustContain(t, output, `Unit: "rpm",`)
	mustContain(t, output, `Receivers: []string{"GW"},`)
}

func TestGenerateExtendedMessage(t *testing.T) {
	output := generateFixture(t)

	mustContain(t, output, "IsExtended: true,")
	mustContain(t, output, "ByteOrder: descriptor.BigEndian,")
	mustContain(t, output, "Signed: true,")
	mustContain(t, output, "Offset: -10,")
}

func TestGenerateChoices(t *testing.T) {
	output := generateFixture(t)

	mustContain(t, output, "Choices: descriptor.NewChoices([]descriptor.Choice{")
	mustContain(t, output, `{Value: 0, Label: "neutral"},`)
	mustContain(t, output, `{Value: 1, Label: "first"},`)
}

func TestGenerateMultiplexing(t *testing.T) {
	output := generateFixture(t)

	mustContain(t, output, "MuxRole: descriptor.MuxSelector,")
	mustContain(t, output, "MuxRole: descriptor.MuxCase,")
	mustContain(t, output, "MuxID: 0,")
}

func TestGenerateDatabaseFunc(t *testing.T) {
	output := generateFixture(t)

	mustContain(t, output, "func Database() *descriptor.Database {")
	mustContain(t, output, `db.SetVersion("1.0")`)
	mustContain(t, output, `db.AddNode(&descriptor.Node{Name: "ECU"})`)
	mustContain(t, output, `db.AddNode(&descriptor.Node{Name: "GW"})`)
	mustContain(t, output, "db.AddMessage(m)")
}

func TestGenerateWithoutVersion(t *testing.T) {
	db := descriptor.New()
	db.AddMessage(&descriptor.Message{FrameID: 1, Name: "Heartbeat", Length: 1})

	output, err := Generate(db, "plaindb")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	mustContain(t, output, "FrameHeartbeat uint32 = 0x1")
	mustNotContain(t, output, "db.SetVersion")
}

func TestGenerateNameCollision(t *testing.T) {
	db := descriptor.New()
	db.AddMessage(&descriptor.Message{FrameID: 1, Name: "A_B", Length: 1})
	db.AddMessage(&descriptor.Message{FrameID: 2, Name: "AB", Length: 1})

	_, err := Generate(db, "x")
	if err == nil {
		t.Fatal("expected error for colliding generated names")
	}
	if !strings.Contains(err.Error(), "same identifier FrameAB") {
		t.Errorf("expected collision error, got: %v", err)
	}
}

func TestGoName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"EngineData", "EngineData"},
		{"engine_data", "EngineData"},
		{"Engine_Data", "EngineData"},
		{"GW_Status", "GWStatus"},
		{"Motor Control", "MotorControl"},
		{"io.debug", "IoDebug"},
	}

	for _, tt := range tests {
		if got := goName(tt.input); got != tt.want {
			t.Errorf("goName(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

// Helper

func mustContain(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Errorf("output does not contain %q\nOutput (first 3000 chars):\n%s", substr, truncate(output, 3000))
	}
}

func mustNotContain(t *testing.T, output, substr string) {
	t.Helper()
	if strings.Contains(output, substr) {
		t.Errorf("output should not contain %q", substr)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
