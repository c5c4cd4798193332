package dbc

import (
	"strings"
	"testing"

	"github.com/candb-tools/candb-go/pkg/descriptor"
)

func TestDumpEmptyDatabase(t *testing.T) {
	text := Dump(descriptor.New())
	for _, want := range []string{"VERSION \"\"\n", "\nNS_ :\n", "\nBS_:\n", "\nBU_:\n"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected dump to contain %q, got:\n%s", want, text)
		}
	}
	if _, err := Parse(text); err != nil {
		t.Errorf("dump of an empty database does not parse: %v", err)
	}
}

func TestDumpLines(t *testing.T) {
	db, err := Parse(sampleDBC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := Dump(db)

	for _, want := range []string{
		"VERSION \"1.0\"\n",
		"BU_: ECU GATEWAY DASH\n",
		"BO_ 500 EngineData: 8 ECU\n",
		" SG_ EngineSpeed : 7|16@0+ (0.25,0) [0|16383.75] \"rpm\" GATEWAY,DASH\n",
		" SG_ Torque : 24|12@1- (0.5,0) [-1024|1023.5] \"Nm\" GATEWAY\n",
		"BO_ 2566844672 DiagResponse: 8 GATEWAY\n",
		" SG_ Mode M : 0|8@1+ (1,0) [0|0] \"\" Vector__XXX\n",
		" SG_ OilPressure m0 : 8|16@1+ (0.01,0) [0|655.35] \"bar\" Vector__XXX\n",
		"CM_ BU_ ECU \"engine controller\";\n",
		"CM_ BO_ 500 \"broadcast every 10 ms\";\n",
		"CM_ SG_ 500 CoolantTemp \"sensor value, offset binary\";\n",
		"BA_DEF_ BO_ \"GenMsgCycleTime\" INT 0 10000;\n",
		"BA_DEF_ \"BusType\" STRING;\n",
		"BA_DEF_ BU_ \"NodeLayer\" ENUM \"Body\",\"Chassis\",\"Powertrain\";\n",
		"BA_DEF_DEF_ \"GenMsgCycleTime\" 100;\n",
		"BA_DEF_DEF_ \"BusType\" \"CAN\";\n",
		"BA_ \"BusType\" \"CAN FD\";\n",
		"BA_ \"NodeLayer\" BU_ ECU \"Powertrain\";\n",
		"BA_ \"GenMsgCycleTime\" BO_ 500 10;\n",
		"BA_ \"GenSigStartValue\" SG_ 500 CoolantTemp 40;\n",
		"VAL_ 2566844672 Mode 0 \"pressure\" 1 \"fuel\";\n",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected dump to contain %q, got:\n%s", want, text)
		}
	}
}

func TestDumpRoundTrip(t *testing.T) {
	first, err := Parse(sampleDBC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := Dump(first)
	second, err := Parse(text)
	if err != nil {
		t.Fatalf("dump output does not parse: %v\n%s", err, text)
	}
	assertDatabasesEqual(t, first, second)
	if again := Dump(second); again != text {
		t.Errorf("dump is not stable:\n--- first\n%s\n--- second\n%s", text, again)
	}
}

func TestDumpOmitsDisplacedMessages(t *testing.T) {
	older, err := Parse("BO_ 1 Old: 8 N\n SG_ S : 0|8@1+ (1,0) [0|0] \"\" N\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	newer, err := Parse("BO_ 1 New: 8 N\n SG_ S : 0|8@1+ (1,0) [0|0] \"\" N\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	older.Merge(newer)

	text := Dump(older)
	if !strings.Contains(text, "BO_ 1 New: 8 N") {
		t.Errorf("expected the winning message in the dump, got:\n%s", text)
	}
	if strings.Contains(text, "Old") {
		t.Errorf("expected the displaced message to be omitted, got:\n%s", text)
	}
	if _, err := Parse(text); err != nil {
		t.Errorf("dump after a merge collision does not parse: %v", err)
	}
}

func TestDumpSkipsUndefinedAttributes(t *testing.T) {
	db, err := Parse("BU_: A\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	db.SetAttribute("Ghost", "1")

	text := Dump(db)
	if strings.Contains(text, "Ghost") {
		t.Errorf("expected the undefined attribute to be omitted, got:\n%s", text)
	}
	if _, err := Parse(text); err != nil {
		t.Errorf("dump does not parse: %v", err)
	}
}

func TestDumpQuoting(t *testing.T) {
	db, err := Parse("BO_ 1 M: 8 N\nCM_ BO_ 1 \"say \\\"hi\\\" and \\\\ go\";\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Parse(Dump(db))
	if err != nil {
		t.Fatalf("dump output does not parse: %v", err)
	}
	m, err := second.MessageByFrameID(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Comment != `say "hi" and \ go` {
		t.Errorf("unexpected comment %q", m.Comment)
	}
}

func assertDatabasesEqual(t *testing.T, want, got *descriptor.Database) {
	t.Helper()
	if got.Version() != want.Version() {
		t.Errorf("expected version %q, got %q", want.Version(), got.Version())
	}

	wantNodes, gotNodes := want.Nodes(), got.Nodes()
	if len(gotNodes) != len(wantNodes) {
		t.Fatalf("expected %d nodes, got %d", len(wantNodes), len(gotNodes))
	}
	for i, wn := range wantNodes {
		gn := gotNodes[i]
		if gn.Name != wn.Name || gn.Comment != wn.Comment || !stringMapEqual(gn.Attributes, wn.Attributes) {
			t.Errorf("node %q differs: expected %+v, got %+v", wn.Name, wn, gn)
		}
	}

	wantDefs, gotDefs := want.AttributeDefinitions(), got.AttributeDefinitions()
	if len(gotDefs) != len(wantDefs) {
		t.Fatalf("expected %d attribute definitions, got %d", len(wantDefs), len(gotDefs))
	}
	for i, wd := range wantDefs {
		gd := gotDefs[i]
		if gd.Name != wd.Name || gd.Kind != wd.Kind || gd.Type != wd.Type ||
			gd.Min != wd.Min || gd.Max != wd.Max || gd.Default != wd.Default {
			t.Errorf("definition %q differs: expected %+v, got %+v", wd.Name, wd, gd)
		}
		if !stringSliceEqual(gd.EnumValues, wd.EnumValues) {
			t.Errorf("definition %q enum values differ: expected %v, got %v", wd.Name, wd.EnumValues, gd.EnumValues)
		}
	}

	if !stringMapEqual(got.Attributes(), want.Attributes()) {
		t.Errorf("expected database attributes %v, got %v", want.Attributes(), got.Attributes())
	}

	wantMsgs, gotMsgs := want.Messages(), got.Messages()
	if len(gotMsgs) != len(wantMsgs) {
		t.Fatalf("expected %d messages, got %d", len(wantMsgs), len(gotMsgs))
	}
	for i, wm := range wantMsgs {
		gm := gotMsgs[i]
		if gm.FrameID != wm.FrameID || gm.IsExtended != wm.IsExtended || gm.Name != wm.Name ||
			gm.Length != wm.Length || gm.SenderNode != wm.SenderNode || gm.Comment != wm.Comment ||
			!stringMapEqual(gm.Attributes, wm.Attributes) {
			t.Errorf("message %q differs: expected %+v, got %+v", wm.Name, wm, gm)
		}
		if len(gm.Signals) != len(wm.Signals) {
			t.Fatalf("message %q: expected %d signals, got %d", wm.Name, len(wm.Signals), len(gm.Signals))
		}
		for j, ws := range wm.Signals {
			if !signalEqual(gm.Signals[j], ws) {
				t.Errorf("signal %q in message %q differs: expected %+v, got %+v", ws.Name, wm.Name, *ws, *gm.Signals[j])
			}
		}
	}
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
