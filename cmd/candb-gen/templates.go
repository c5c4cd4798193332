package main

import (
	"fmt"
	"strings"
	"text/template"
)

// funcMap provides helper functions available to all templates.
var funcMap = template.FuncMap{
	"quote": func(s string) string { return fmt.Sprintf("%q", s) },
	"hexID": func(v uint32) string { return fmt.Sprintf("0x%X", v) },
}

// templates holds all parsed code generation templates.
var templates = template.Must(template.New("").Funcs(funcMap).Parse(
	headerTmpl +
		frameIDsTmpl +
		signalNamesTmpl +
		messagesTmpl +
		databaseTmpl,
))

// renderTemplate executes a named template into the builder.
func renderTemplate(b *strings.Builder, name string, data any) {
	if err := templates.ExecuteTemplate(b, name, data); err != nil {
		panic(fmt.Sprintf("template %s: %v", name, err))
	}
}

// --- Template data types ---

// fileData holds pre-computed data for one generated file.
type fileData struct {
	Package  string
	Version  string
	Nodes    []string
	Messages []messageData
}

type messageData struct {
	ConstName  string // FrameEngineData
	FuncName   string // newEngineData
	Name       string
	FrameID    uint32
	IsExtended bool
	Length     uint8
	SenderNode string
	Comment    string
	Signals    []signalData
}

type signalData struct {
	ConstName     string // EngineDataEngineSpeed
	Name          string
	Start         uint16
	Length        uint8
	ByteOrderExpr string
	Signed        bool
	Scale         float64
	Offset        float64
	Min           float64
	Max           float64
	Unit          string
	ReceiversExpr string // []string literal, empty when no receivers
	MuxExpr       string // MuxRole constant, empty for plain signals
	EmitMuxID     bool
	MuxID         uint32
	ChoicesExpr   string // descriptor.NewChoices literal, empty without a table
	Comment       string
}

// --- Template definitions ---
//
// Templates emit unindented code; goimports reformats the output and
// fills in the import block.

const headerTmpl = `{{define "header"}}// Code generated by candb-gen. DO NOT EDIT.

package {{.Package}}
{{end}}`

const frameIDsTmpl = `{{define "frameIDs"}}
{{- if .Messages}}
// Frame IDs.
const (
{{- range .Messages}}
{{.ConstName}} uint32 = {{hexID .FrameID}}
{{- end}}
)
{{end}}
{{- end}}`

const signalNamesTmpl = `{{define "signalNames"}}
{{- range .Messages}}
{{- if .Signals}}
// {{.Name}} signal names.
const (
{{- range .Signals}}
{{.ConstName}} = {{quote .Name}}
{{- end}}
)
{{end}}
{{- end}}
{{- end}}`

const messagesTmpl = `{{define "messages"}}
// Messages returns descriptors for every message in the database.
// Each call builds fresh values the caller may mutate freely.
func Messages() []*descriptor.Message {
return []*descriptor.Message{
{{- range .Messages}}
{{.FuncName}}(),
{{- end}}
}
}

{{range .Messages -}}
// {{.FuncName}} builds the {{.Name}} message descriptor.
func {{.FuncName}}() *descriptor.Message {
return &descriptor.Message{
FrameID: {{.ConstName}},
{{- if .IsExtended}}
IsExtended: true,
{{- end}}
Name: {{quote .Name}},
Length: {{.Length}},
{{- if .SenderNode}}
SenderNode: {{quote .SenderNode}},
{{- end}}
{{- if .Comment}}
Comment: {{quote .Comment}},
{{- end}}
Signals: []*descriptor.Signal{
{{- range .Signals}}
{
Name: {{.ConstName}},
Start: {{.Start}},
Length: {{.Length}},
ByteOrder: {{.ByteOrderExpr}},
{{- if .Signed}}
Signed: true,
{{- end}}
Scale: {{.Scale}},
Offset: {{.Offset}},
Min: {{.Min}},
Max: {{.Max}},
{{- if .Unit}}
Unit: {{quote .Unit}},
{{- end}}
{{- if .ChoicesExpr}}
Choices: {{.ChoicesExpr}},
{{- end}}
{{- if .MuxExpr}}
MuxRole: {{.MuxExpr}},
{{- end}}
{{- if .EmitMuxID}}
MuxID: {{.MuxID}},
{{- end}}
{{- if .ReceiversExpr}}
Receivers: {{.ReceiversExpr}},
{{- end}}
{{- if .Comment}}
Comment: {{quote .Comment}},
{{- end}}
},
{{- end}}
},
}
}

{{end -}}
{{end}}`

const databaseTmpl = `{{define "database"}}
// Database assembles the embedded database.
func Database() *descriptor.Database {
db := descriptor.New()
{{- if .Version}}
db.SetVersion({{quote .Version}})
{{- end}}
{{- range .Nodes}}
db.AddNode(&descriptor.Node{Name: {{quote .}}})
{{- end}}
for _, m := range Messages() {
db.AddMessage(m)
}
return db
}
{{end}}`
