package main

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/candb-tools/candb-go/pkg/descriptor"
)

// Generate renders the Go source for the database. The output is
// unformatted; the caller runs it through goimports.
func Generate(db *descriptor.Database, pkg string) (string, error) {
	data, err := buildFileData(db, pkg)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	renderTemplate(&b, "header", data)
	renderTemplate(&b, "frameIDs", data)
	renderTemplate(&b, "signalNames", data)
	renderTemplate(&b, "messages", data)
	renderTemplate(&b, "database", data)
	return b.String(), nil
}

// buildFileData resolves generated identifiers for every message and
// signal up front so name collisions fail the run instead of producing
// code that does not compile.
func buildFileData(db *descriptor.Database, pkg string) (*fileData, error) {
	data := &fileData{
		Package: pkg,
		Version: db.Version(),
	}
	for _, n := range db.Nodes() {
		data.Nodes = append(data.Nodes, n.Name)
	}

	names := make(map[string]string) // generated identifier -> source name
	claim := func(ident, source string) error {
		if prev, ok := names[ident]; ok {
			return fmt.Errorf("%s and %s generate the same identifier %s", prev, source, ident)
		}
		names[ident] = source
		return nil
	}

	for _, m := range db.Messages() {
		msgGo := goName(m.Name)
		md := messageData{
			ConstName:  "Frame" + msgGo,
			FuncName:   "new" + msgGo,
			Name:       m.Name,
			FrameID:    m.FrameID,
			IsExtended: m.IsExtended,
			Length:     m.Length,
			SenderNode: m.SenderNode,
			Comment:    m.Comment,
		}
		if err := claim(md.ConstName, "message "+m.Name); err != nil {
			return nil, err
		}

		for _, s := range m.Signals {
			sd := signalData{
				ConstName:     msgGo + goName(s.Name),
				Name:          s.Name,
				Start:         s.Start,
				Length:        s.Length,
				ByteOrderExpr: byteOrderExpr(s.ByteOrder),
				Signed:        s.Signed,
				Scale:         s.Scale,
				Offset:        s.Offset,
				Min:           s.Min,
				Max:           s.Max,
				Unit:          s.Unit,
				ReceiversExpr: receiversExpr(s.Receivers),
				ChoicesExpr:   choicesExpr(s.Choices),
				Comment:       s.Comment,
			}
			switch s.MuxRole {
			case descriptor.MuxSelector:
				sd.MuxExpr = "descriptor.MuxSelector"
			case descriptor.MuxCase:
				sd.MuxExpr = "descriptor.MuxCase"
				sd.EmitMuxID = true
				sd.MuxID = s.MuxID
			}
			if err := claim(sd.ConstName, fmt.Sprintf("signal %s.%s", m.Name, s.Name)); err != nil {
				return nil, err
			}
			md.Signals = append(md.Signals, sd)
		}

		data.Messages = append(data.Messages, md)
	}

	return data, nil
}

func byteOrderExpr(bo descriptor.ByteOrder) string {
	if bo == descriptor.BigEndian {
		return "descriptor.BigEndian"
	}
	return "descriptor.LittleEndian"
}

func receiversExpr(receivers []string) string {
	if len(receivers) == 0 {
		return ""
	}
	quoted := make([]string, len(receivers))
	for i, r := range receivers {
		quoted[i] = fmt.Sprintf("%q", r)
	}
	return "[]string{" + strings.Join(quoted, ", ") + "}"
}

func choicesExpr(c *descriptor.Choices) string {
	if c == nil || c.Len() == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("descriptor.NewChoices([]descriptor.Choice{\n")
	for _, choice := range c.All() {
		fmt.Fprintf(&b, "{Value: %d, Label: %q},\n", choice.Value, choice.Label)
	}
	b.WriteString("})")
	return b.String()
}

// goName converts a database identifier to an exported Go identifier:
// "engine_data" and "Engine_Data" both become "EngineData". Interior
// capitalization is preserved.
func goName(name string) string {
	var b strings.Builder
	upper := true
	for _, r := range name {
		switch {
		case r == '_' || r == '-' || r == ' ' || r == '.':
			upper = true
		case upper:
			b.WriteRune(unicode.ToUpper(r))
			upper = false
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
