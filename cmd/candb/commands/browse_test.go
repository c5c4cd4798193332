package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/candb-tools/candb-go/pkg/candb"
)

func newTestBrowser(t *testing.T) (*browser, *bytes.Buffer) {
	t.Helper()
	db, err := candb.Load(engineDBC, candb.DialectDBC)
	if err != nil {
		t.Fatalf("failed to load fixture: %v", err)
	}
	var buf bytes.Buffer
	return &browser{db: db, out: &buf}, &buf
}

func TestBrowseMessages(t *testing.T) {
	b, buf := newTestBrowser(t)

	if b.execute("messages") {
		t.Fatal("messages should not end the session")
	}
	output := buf.String()
	if !strings.Contains(output, "0x1F0") {
		t.Errorf("output missing frame ID:\n%s", output)
	}
	if !strings.Contains(output, "EngineData") {
		t.Errorf("output missing message name:\n%s", output)
	}
}

func TestBrowseSignals(t *testing.T) {
	b, buf := newTestBrowser(t)

	b.execute("signals EngineData")
	output := buf.String()
	if !strings.Contains(output, "EngineSpeed") {
		t.Errorf("output missing signal name:\n%s", output)
	}
	if !strings.Contains(output, "0|16@1+") {
		t.Errorf("output missing signal layout:\n%s", output)
	}

	buf.Reset()
	b.execute("signals")
	if !strings.Contains(buf.String(), "Usage: signals <message>") {
		t.Errorf("output = %q, want usage hint", buf.String())
	}

	buf.Reset()
	b.execute("signals Missing")
	if !strings.Contains(buf.String(), "message Missing not found") {
		t.Errorf("output = %q, want not-found error", buf.String())
	}
}

func TestBrowseDecode(t *testing.T) {
	b, buf := newTestBrowser(t)

	want := "EngineData(EngineSpeed: 2500 rpm, Gear: 'first')"
	for _, key := range []string{"0x1F0", "496", "EngineData"} {
		buf.Reset()
		b.execute("decode " + key + " 10 27 01 00 00 00 00 00")
		if !strings.Contains(buf.String(), want) {
			t.Errorf("decode via %s = %q, want %q", key, buf.String(), want)
		}
	}
}

func TestBrowseDecodeErrors(t *testing.T) {
	b, buf := newTestBrowser(t)

	b.execute("decode EngineData 10")
	if !strings.Contains(buf.String(), "expects a 8 byte payload") {
		t.Errorf("output = %q, want length error", buf.String())
	}

	buf.Reset()
	b.execute("decode EngineData zz")
	if !strings.Contains(buf.String(), "Invalid payload") {
		t.Errorf("output = %q, want invalid payload error", buf.String())
	}

	buf.Reset()
	b.execute("decode")
	if !strings.Contains(buf.String(), "Usage: decode <message> <hex payload>") {
		t.Errorf("output = %q, want usage hint", buf.String())
	}
}

func TestBrowseEncode(t *testing.T) {
	b, buf := newTestBrowser(t)

	b.execute("encode EngineData EngineSpeed=2500 Gear=first")
	if !strings.Contains(buf.String(), "10 27 01 00 00 00 00 00") {
		t.Errorf("output = %q, want encoded payload", buf.String())
	}

	buf.Reset()
	b.execute("encode EngineData EngineSpeed=2500")
	if !strings.Contains(buf.String(), `missing value for signal "Gear"`) {
		t.Errorf("output = %q, want missing signal error", buf.String())
	}

	buf.Reset()
	b.execute("encode EngineData EngineSpeed")
	if !strings.Contains(buf.String(), "Invalid assignment: EngineSpeed") {
		t.Errorf("output = %q, want assignment error", buf.String())
	}
}

func TestBrowseSession(t *testing.T) {
	b, buf := newTestBrowser(t)

	if b.execute("") {
		t.Error("blank line should not end the session")
	}
	if buf.Len() != 0 {
		t.Errorf("blank line produced output: %q", buf.String())
	}

	b.execute("bogus")
	if !strings.Contains(buf.String(), "Unknown command: bogus") {
		t.Errorf("output = %q, want unknown command hint", buf.String())
	}

	buf.Reset()
	b.execute("help")
	if !strings.Contains(buf.String(), "decode <message> <hex>") {
		t.Errorf("output = %q, want help text", buf.String())
	}

	buf.Reset()
	if !b.execute("quit") {
		t.Error("quit should end the session")
	}
	if !strings.Contains(buf.String(), "Exiting...") {
		t.Errorf("output = %q, want exit message", buf.String())
	}
}
