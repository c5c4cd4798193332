package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const gatewayDBC = `VERSION "1.1"

BU_: GW

BO_ 2566844672 GatewayStatus: 6 GW
 SG_ Counter : 7|8@0+ (1,0) [0|255] "" Vector__XXX

BO_ 1536 DiagReport: 8 GW
 SG_ Mode M : 0|8@1+ (1,0) [0|1] "" Vector__XXX
 SG_ OilPressure m0 : 8|16@1+ (0.01,0) [0|655.35] "bar" Vector__XXX
`

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

func TestRunList(t *testing.T) {
	path := writeTempFile(t, "gateway.dbc", gatewayDBC)

	var out bytes.Buffer
	if err := RunList([]string{path}, &out, false); err != nil {
		t.Fatalf("RunList returned error: %v", err)
	}

	output := out.String()
	if !strings.Contains(output, "gateway.dbc (version 1.1): 2 messages") {
		t.Errorf("output missing header:\n%s", output)
	}
	if !strings.Contains(output, "0x18FEF100") {
		t.Errorf("output missing extended frame ID:\n%s", output)
	}
	if !strings.Contains(output, "0x600") {
		t.Errorf("output missing standard frame ID:\n%s", output)
	}
	if !strings.Contains(output, "7|8@0+") {
		t.Errorf("output missing big-endian signal layout:\n%s", output)
	}
	if !strings.Contains(output, "[0|1] M\n") {
		t.Errorf("output missing multiplexor marker:\n%s", output)
	}
	if !strings.Contains(output, "\"bar\" m0\n") {
		t.Errorf("output missing multiplexed signal marker:\n%s", output)
	}
}

func TestRunListMultipleFiles(t *testing.T) {
	engine := writeTempFile(t, "engine.dbc", engineDBC)
	gateway := writeTempFile(t, "gateway.dbc", gatewayDBC)

	var out bytes.Buffer
	if err := RunList([]string{engine, gateway}, &out, false); err != nil {
		t.Fatalf("RunList returned error: %v", err)
	}

	output := out.String()
	if !strings.Contains(output, "engine.dbc (version 1.0): 1 messages") {
		t.Errorf("output missing first file header:\n%s", output)
	}
	if !strings.Contains(output, "gateway.dbc (version 1.1): 2 messages") {
		t.Errorf("output missing second file header:\n%s", output)
	}
}

func TestRunListMissingFile(t *testing.T) {
	var out bytes.Buffer
	err := RunList([]string{filepath.Join(t.TempDir(), "absent.dbc")}, &out, false)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
