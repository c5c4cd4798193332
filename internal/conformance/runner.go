package conformance

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/candb-tools/candb-go/pkg/candb"
	"github.com/candb-tools/candb-go/pkg/codec"
	"github.com/candb-tools/candb-go/pkg/descriptor"
)

// loaded pairs a source database with the dialect it came from.
type loaded struct {
	dialect candb.Dialect
	db      *descriptor.Database
}

// Run loads every source of the case, asserts the databases agree on
// the schema, checks each one survives a DBC round trip, and replays
// the codec vectors against every database.
func Run(t *testing.T, c *Case) {
	t.Helper()

	dbs := loadSources(t, c)

	ref := dbs[0]
	for _, other := range dbs[1:] {
		assertSchemaEqual(t, ref.db, other.db, fmt.Sprintf("%s vs %s", ref.dialect, other.dialect))
	}

	for _, l := range dbs {
		reloaded, err := candb.Load(candb.Marshal(l.db), candb.DialectDBC)
		require.NoErrorf(t, err, "%s: marshalled text does not parse", l.dialect)
		assertSchemaEqual(t, l.db, reloaded, fmt.Sprintf("%s vs its DBC round trip", l.dialect))
	}

	for i, v := range c.Decode {
		payload, err := parsePayload(v.Payload)
		require.NoErrorf(t, err, "decode[%d]: invalid payload", i)

		for _, l := range dbs {
			ctx := fmt.Sprintf("decode[%d] via %s", i, l.dialect)
			values, err := candb.DecodeMessage(l.db, v.Message, payload, codec.DefaultDecodeOptions())
			require.NoErrorf(t, err, ctx)
			assertValuesEqual(t, v.Values, values, ctx)
		}
	}

	for i, v := range c.Encode {
		want, err := parsePayload(v.Payload)
		require.NoErrorf(t, err, "encode[%d]: invalid payload", i)

		for _, l := range dbs {
			ctx := fmt.Sprintf("encode[%d] via %s", i, l.dialect)
			payload, err := candb.EncodeMessage(l.db, v.Message, v.Values, codec.DefaultEncodeOptions())
			require.NoErrorf(t, err, ctx)
			assert.Equalf(t, want, payload, ctx)

			values, err := candb.DecodeMessage(l.db, v.Message, payload, codec.DefaultDecodeOptions())
			require.NoErrorf(t, err, "%s: round trip failed", ctx)
			assertValuesEqual(t, v.Values, values, ctx+": round trip")
		}
	}
}

// loadSources parses every source, in dialect order so failures report
// deterministically.
func loadSources(t *testing.T, c *Case) []loaded {
	t.Helper()

	var dbs []loaded
	for name, text := range c.Sources {
		dialect, err := candb.ParseDialect(name)
		require.NoErrorf(t, err, "source %q", name)
		db, err := candb.Load(text, dialect)
		require.NoErrorf(t, err, "source %q does not parse", name)
		dbs = append(dbs, loaded{dialect: dialect, db: db})
	}
	sort.Slice(dbs, func(i, j int) bool { return dbs[i].dialect < dbs[j].dialect })
	require.NotEmpty(t, dbs, "case has no sources")
	return dbs
}

// assertSchemaEqual compares the schema core every dialect must agree
// on: version, message headers and signal definitions. Nodes, buses,
// comments and attributes stay out of the comparison; not every
// dialect can spell them.
func assertSchemaEqual(t *testing.T, want, got *descriptor.Database, ctx string) {
	t.Helper()

	assert.Equalf(t, want.Version(), got.Version(), "%s: version", ctx)

	wantMsgs := messagesByName(want)
	gotMsgs := messagesByName(got)
	require.Equalf(t, sortedKeys(wantMsgs), sortedKeys(gotMsgs), "%s: message set", ctx)

	for _, name := range sortedKeys(wantMsgs) {
		wm, gm := wantMsgs[name], gotMsgs[name]
		assert.Equalf(t, wm.FrameID, gm.FrameID, "%s: %s frame id", ctx, name)
		assert.Equalf(t, wm.IsExtended, gm.IsExtended, "%s: %s extended flag", ctx, name)
		assert.Equalf(t, wm.Length, gm.Length, "%s: %s length", ctx, name)

		require.Equalf(t, signalNames(wm), signalNames(gm), "%s: %s signal set", ctx, name)
		for _, ws := range wm.Signals {
			assertSignalEqual(t, ws, gm.SignalByName(ws.Name), fmt.Sprintf("%s: %s.%s", ctx, name, ws.Name))
		}
	}
}

func assertSignalEqual(t *testing.T, want, got *descriptor.Signal, ctx string) {
	t.Helper()

	assert.Equalf(t, want.Start, got.Start, "%s: start bit", ctx)
	assert.Equalf(t, want.Length, got.Length, "%s: length", ctx)
	assert.Equalf(t, want.ByteOrder, got.ByteOrder, "%s: byte order", ctx)
	assert.Equalf(t, want.Signed, got.Signed, "%s: signedness", ctx)
	assert.Equalf(t, want.Scale, got.Scale, "%s: scale", ctx)
	assert.Equalf(t, want.Offset, got.Offset, "%s: offset", ctx)
	assert.Equalf(t, want.Min, got.Min, "%s: min", ctx)
	assert.Equalf(t, want.Max, got.Max, "%s: max", ctx)
	assert.Equalf(t, want.Unit, got.Unit, "%s: unit", ctx)
	assert.Equalf(t, want.MuxRole, got.MuxRole, "%s: mux role", ctx)
	assert.Equalf(t, want.MuxID, got.MuxID, "%s: mux id", ctx)
	assert.Equalf(t, sortedChoices(want.Choices), sortedChoices(got.Choices), "%s: choices", ctx)
}

// assertValuesEqual compares a decoded value map against expectations
// from YAML, where whole numbers arrive as int but scaled decode
// results are float64.
func assertValuesEqual(t *testing.T, want, got map[string]any, ctx string) {
	t.Helper()

	assert.Lenf(t, got, len(want), "%s: signal set %v", ctx, got)
	for name, w := range want {
		g, ok := got[name]
		if !ok {
			t.Errorf("%s: signal %s missing", ctx, name)
			continue
		}
		if i, ok := w.(int); ok {
			w = float64(i)
		}
		assert.Equalf(t, w, g, "%s: signal %s", ctx, name)
	}
}

// sortedChoices flattens a value table for comparison, nil-safe and
// order-insensitive.
func sortedChoices(c *descriptor.Choices) []descriptor.Choice {
	if c == nil || c.Len() == 0 {
		return nil
	}
	all := append([]descriptor.Choice(nil), c.All()...)
	sort.Slice(all, func(i, j int) bool { return all[i].Value < all[j].Value })
	return all
}

func messagesByName(db *descriptor.Database) map[string]*descriptor.Message {
	messages := db.Messages()
	byName := make(map[string]*descriptor.Message, len(messages))
	for _, m := range messages {
		byName[m.Name] = m
	}
	return byName
}

func signalNames(m *descriptor.Message) []string {
	names := make([]string, len(m.Signals))
	for i, s := range m.Signals {
		names[i] = s.Name
	}
	sort.Strings(names)
	return names
}

func sortedKeys(m map[string]*descriptor.Message) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// parsePayload reads hex bytes, whitespace tolerated.
func parsePayload(s string) ([]byte, error) {
	return hex.DecodeString(strings.Join(strings.Fields(s), ""))
}
