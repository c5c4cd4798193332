package dbc

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/candb-tools/candb-go/pkg/descriptor"
)

// newSymbols is the canonical NS_ block every dump carries.
var newSymbols = []string{
	"NS_DESC_",
	"CM_",
	"BA_DEF_",
	"BA_",
	"VAL_",
	"CAT_DEF_",
	"CAT_",
	"FILTER",
	"BA_DEF_DEF_",
	"EV_DATA_",
	"ENVVAR_DATA_",
	"SGTYPE_",
	"SGTYPE_VAL_",
	"BA_DEF_SGTYPE_",
	"BA_SGTYPE_",
	"SIG_TYPE_REF_",
	"VAL_TABLE_",
	"SIG_GROUP_",
	"SIG_VALTYPE_",
	"SIGTYPE_VALTYPE_",
	"BO_TX_BU_",
	"BA_DEF_REL_",
	"BA_REL_",
	"BA_DEF_DEF_REL_",
	"BU_SG_REL_",
	"BU_EV_REL_",
	"BU_BO_REL_",
	"SG_MUL_VAL_",
}

// Dump renders the database in the DBC textual form. Parsing the
// output reproduces the database for every construct the parser
// preserves; the exact whitespace of the original input is not.
// Messages displaced from the lookup tables by a merge collision are
// omitted, as are attribute values without a matching definition,
// since either would make the output unparseable.
func Dump(db *descriptor.Database) string {
	var b strings.Builder

	fmt.Fprintf(&b, "VERSION %s\n\n", quote(db.Version()))

	b.WriteString("NS_ :\n")
	for _, kw := range newSymbols {
		b.WriteString("\t" + kw + "\n")
	}
	b.WriteString("\nBS_:\n\n")

	nodes := db.Nodes()
	names := make([]string, len(nodes))
	for i, n := range nodes {
		names[i] = n.Name
	}
	b.WriteString(strings.TrimRight("BU_: "+strings.Join(names, " "), " ") + "\n\n")

	messages := currentMessages(db)
	for _, m := range messages {
		dumpMessage(&b, m)
	}
	dumpComments(&b, nodes, messages)
	dumpAttributeDefinitions(&b, db)
	dumpAttributeDefaults(&b, db)
	dumpAttributes(&b, db, nodes, messages)
	dumpChoices(&b, messages)

	return strings.TrimRight(b.String(), "\n") + "\n"
}

// currentMessages returns the messages still reachable through both
// lookup tables, in list order.
func currentMessages(db *descriptor.Database) []*descriptor.Message {
	var messages []*descriptor.Message
	for _, m := range db.Messages() {
		byID, err := db.MessageByFrameID(m.FrameID)
		if err != nil || byID != m {
			continue
		}
		byName, err := db.MessageByName(m.Name)
		if err != nil || byName != m {
			continue
		}
		messages = append(messages, m)
	}
	return messages
}

func dumpMessage(b *strings.Builder, m *descriptor.Message) {
	sender := m.SenderNode
	if sender == "" {
		sender = placeholderNode
	}
	fmt.Fprintf(b, "BO_ %d %s: %d %s\n", dumpID(m), m.Name, m.Length, sender)
	for _, s := range m.Signals {
		dumpSignal(b, s)
	}
	b.WriteString("\n")
}

func dumpSignal(b *strings.Builder, s *descriptor.Signal) {
	mux := ""
	switch s.MuxRole {
	case descriptor.MuxSelector:
		mux = " M"
	case descriptor.MuxCase:
		mux = fmt.Sprintf(" m%d", s.MuxID)
	}
	order := 1
	if s.ByteOrder == descriptor.BigEndian {
		order = 0
	}
	sign := "+"
	if s.Signed {
		sign = "-"
	}
	receivers := placeholderNode
	if len(s.Receivers) > 0 {
		receivers = strings.Join(s.Receivers, ",")
	}
	fmt.Fprintf(b, " SG_ %s%s : %d|%d@%d%s (%s,%s) [%s|%s] %s %s\n",
		s.Name, mux, s.Start, s.Length, order, sign,
		formatFloat(s.Scale), formatFloat(s.Offset),
		formatFloat(s.Min), formatFloat(s.Max),
		quote(s.Unit), receivers)
}

// dumpID is the textual frame ID, extended flag folded back in.
func dumpID(m *descriptor.Message) uint32 {
	if m.IsExtended {
		return m.FrameID | extendedFlag
	}
	return m.FrameID
}

func dumpComments(b *strings.Builder, nodes []*descriptor.Node, messages []*descriptor.Message) {
	var lines []string
	for _, n := range nodes {
		if n.Comment != "" {
			lines = append(lines, fmt.Sprintf("CM_ BU_ %s %s;", n.Name, quote(n.Comment)))
		}
	}
	for _, m := range messages {
		if m.Comment != "" {
			lines = append(lines, fmt.Sprintf("CM_ BO_ %d %s;", dumpID(m), quote(m.Comment)))
		}
		for _, s := range m.Signals {
			if s.Comment != "" {
				lines = append(lines, fmt.Sprintf("CM_ SG_ %d %s %s;", dumpID(m), s.Name, quote(s.Comment)))
			}
		}
	}
	writeBlock(b, lines)
}

func dumpAttributeDefinitions(b *strings.Builder, db *descriptor.Database) {
	var lines []string
	for _, def := range db.AttributeDefinitions() {
		kind := ""
		switch def.Kind {
		case descriptor.AttributeKindNode:
			kind = "BU_ "
		case descriptor.AttributeKindMessage:
			kind = "BO_ "
		case descriptor.AttributeKindSignal:
			kind = "SG_ "
		}
		spec := ""
		switch def.Type {
		case descriptor.AttributeTypeString:
		case descriptor.AttributeTypeEnum:
			if len(def.EnumValues) > 0 {
				values := make([]string, len(def.EnumValues))
				for i, v := range def.EnumValues {
					values[i] = quote(v)
				}
				spec = " " + strings.Join(values, ",")
			}
		default:
			spec = fmt.Sprintf(" %s %s", formatFloat(def.Min), formatFloat(def.Max))
		}
		lines = append(lines, fmt.Sprintf("BA_DEF_ %s%s %s%s;", kind, quote(def.Name), def.Type, spec))
	}
	writeBlock(b, lines)
}

func dumpAttributeDefaults(b *strings.Builder, db *descriptor.Database) {
	var lines []string
	for _, def := range db.AttributeDefinitions() {
		if def.Default == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("BA_DEF_DEF_ %s %s;", quote(def.Name), attributeLiteral(def, def.Default)))
	}
	writeBlock(b, lines)
}

func dumpAttributes(b *strings.Builder, db *descriptor.Database, nodes []*descriptor.Node, messages []*descriptor.Message) {
	var lines []string

	dbAttrs := db.Attributes()
	for _, name := range sortedKeys(dbAttrs) {
		def := db.AttributeDefinitionByName(name)
		if def == nil {
			continue
		}
		lines = append(lines, fmt.Sprintf("BA_ %s %s;", quote(name), attributeLiteral(def, dbAttrs[name])))
	}
	for _, n := range nodes {
		for _, name := range sortedKeys(n.Attributes) {
			def := db.AttributeDefinitionByName(name)
			if def == nil {
				continue
			}
			lines = append(lines, fmt.Sprintf("BA_ %s BU_ %s %s;", quote(name), n.Name, attributeLiteral(def, n.Attributes[name])))
		}
	}
	for _, m := range messages {
		for _, name := range sortedKeys(m.Attributes) {
			def := db.AttributeDefinitionByName(name)
			if def == nil {
				continue
			}
			lines = append(lines, fmt.Sprintf("BA_ %s BO_ %d %s;", quote(name), dumpID(m), attributeLiteral(def, m.Attributes[name])))
		}
	}
	for _, m := range messages {
		for _, s := range m.Signals {
			for _, name := range sortedKeys(s.Attributes) {
				def := db.AttributeDefinitionByName(name)
				if def == nil {
					continue
				}
				lines = append(lines, fmt.Sprintf("BA_ %s SG_ %d %s %s;", quote(name), dumpID(m), s.Name, attributeLiteral(def, s.Attributes[name])))
			}
		}
	}
	writeBlock(b, lines)
}

func dumpChoices(b *strings.Builder, messages []*descriptor.Message) {
	var lines []string
	for _, m := range messages {
		for _, s := range m.Signals {
			if s.Choices == nil || s.Choices.Len() == 0 {
				continue
			}
			parts := make([]string, 0, s.Choices.Len())
			for _, c := range s.Choices.All() {
				parts = append(parts, fmt.Sprintf("%d %s", c.Value, quote(c.Label)))
			}
			lines = append(lines, fmt.Sprintf("VAL_ %d %s %s;", dumpID(m), s.Name, strings.Join(parts, " ")))
		}
	}
	writeBlock(b, lines)
}

// writeBlock writes the lines followed by a blank line, or nothing
// when the block is empty.
func writeBlock(b *strings.Builder, lines []string) {
	if len(lines) == 0 {
		return
	}
	for _, line := range lines {
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")
}

// attributeLiteral renders an attribute value with the quoting its
// definition requires.
func attributeLiteral(def *descriptor.AttributeDefinition, value string) string {
	switch def.Type {
	case descriptor.AttributeTypeString, descriptor.AttributeTypeEnum:
		return quote(value)
	default:
		return value
	}
}

// quote renders a DBC quoted string, escaping backslashes and quotes.
func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
