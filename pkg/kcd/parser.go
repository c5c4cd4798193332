package kcd

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/candb-tools/candb-go/pkg/descriptor"
	"github.com/candb-tools/candb-go/pkg/diag"
)

// defaultBaudRate applies to Bus elements without a baudrate attribute.
const defaultBaudRate uint32 = 500000

// Option configures a parse run.
type Option func(*parser)

// WithDiagnostics directs skip events for tolerated but unsupported
// constructs to the given logger. The returned database inherits the
// logger for merge warnings.
func WithDiagnostics(logger diag.Logger) Option {
	return func(p *parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Parse reads a KCD document into a database.
//
// Malformed XML fails with a *descriptor.SyntaxError carrying the line
// reported by the decoder. Well-formed documents that violate a schema
// invariant, such as a reference to an undeclared node or a duplicate
// frame ID, fail with a *descriptor.SemanticError. Either way no
// partially populated database is returned.
func Parse(text string, opts ...Option) (*descriptor.Database, error) {
	p := &parser{
		logger:    diag.NoopLogger{},
		session:   diag.NewSession(),
		byID:      make(map[uint32]*descriptor.Message),
		byName:    make(map[string]*descriptor.Message),
		nodeByID:  make(map[string]string),
		nodeNames: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	var root xmlNetworkDefinition
	if err := xml.Unmarshal([]byte(text), &root); err != nil {
		return nil, wrapXMLError(err)
	}
	if err := p.run(&root); err != nil {
		return nil, err
	}
	return p.build(), nil
}

func wrapXMLError(err error) *descriptor.SyntaxError {
	var xmlErr *xml.SyntaxError
	if errors.As(err, &xmlErr) {
		return &descriptor.SyntaxError{Line: xmlErr.Line, Message: xmlErr.Msg}
	}
	if errors.Is(err, io.EOF) {
		return &descriptor.SyntaxError{Line: 1, Message: "empty document"}
	}
	return &descriptor.SyntaxError{Line: 1, Message: err.Error()}
}

// The XML mapping follows the KCD schema: a NetworkDefinition holds a
// Document header, Node declarations and one or more Bus elements whose
// Message children carry the signals.

type xmlNetworkDefinition struct {
	XMLName  xml.Name    `xml:"NetworkDefinition"`
	Document xmlDocument `xml:"Document"`
	Nodes    []xmlNode   `xml:"Node"`
	Buses    []xmlBus    `xml:"Bus"`
}

type xmlDocument struct {
	Name    string `xml:"name,attr"`
	Version string `xml:"version,attr"`
}

type xmlNode struct {
	ID   string `xml:"id,attr"`
	Name string `xml:"name,attr"`
}

type xmlBus struct {
	Name     string       `xml:"name,attr"`
	Baudrate string       `xml:"baudrate,attr"`
	Messages []xmlMessage `xml:"Message"`
}

type xmlMessage struct {
	ID        string         `xml:"id,attr"`
	Name      string         `xml:"name,attr"`
	Length    string         `xml:"length,attr"`
	Format    string         `xml:"format,attr"`
	Notes     string         `xml:"Notes"`
	Producer  *xmlProducer   `xml:"Producer"`
	Signals   []xmlSignal    `xml:"Signal"`
	Multiplex []xmlMultiplex `xml:"Multiplex"`
}

type xmlProducer struct {
	NodeRefs []xmlNodeRef `xml:"NodeRef"`
}

type xmlConsumer struct {
	NodeRefs []xmlNodeRef `xml:"NodeRef"`
}

type xmlNodeRef struct {
	ID string `xml:"id,attr"`
}

type xmlSignal struct {
	Name      string       `xml:"name,attr"`
	Offset    string       `xml:"offset,attr"`
	Length    string       `xml:"length,attr"`
	Endianess string       `xml:"endianess,attr"`
	Notes     string       `xml:"Notes"`
	Consumer  *xmlConsumer `xml:"Consumer"`
	Value     *xmlValue    `xml:"Value"`
	LabelSet  *xmlLabelSet `xml:"LabelSet"`
}

type xmlValue struct {
	Type      string `xml:"type,attr"`
	Slope     string `xml:"slope,attr"`
	Intercept string `xml:"intercept,attr"`
	Unit      string `xml:"unit,attr"`
	Min       string `xml:"min,attr"`
	Max       string `xml:"max,attr"`
}

type xmlLabelSet struct {
	Labels      []xmlLabel      `xml:"Label"`
	LabelGroups []xmlLabelGroup `xml:"LabelGroup"`
}

type xmlLabel struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
	Type  string `xml:"type,attr"`
}

type xmlLabelGroup struct {
	Name string `xml:"name,attr"`
}

type xmlMultiplex struct {
	Name      string        `xml:"name,attr"`
	Offset    string        `xml:"offset,attr"`
	Length    string        `xml:"length,attr"`
	Endianess string        `xml:"endianess,attr"`
	Notes     string        `xml:"Notes"`
	Consumer  *xmlConsumer  `xml:"Consumer"`
	Value     *xmlValue     `xml:"Value"`
	LabelSet  *xmlLabelSet  `xml:"LabelSet"`
	Groups    []xmlMuxGroup `xml:"MuxGroup"`
}

// signal returns the multiplexor's attributes as a plain signal element.
func (m *xmlMultiplex) signal() xmlSignal {
	return xmlSignal{
		Name:      m.Name,
		Offset:    m.Offset,
		Length:    m.Length,
		Endianess: m.Endianess,
		Notes:     m.Notes,
		Consumer:  m.Consumer,
		Value:     m.Value,
		LabelSet:  m.LabelSet,
	}
}

type xmlMuxGroup struct {
	Count   string      `xml:"count,attr"`
	Signals []xmlSignal `xml:"Signal"`
}

type parser struct {
	logger  diag.Logger
	session string

	version   string
	nodes     []*descriptor.Node
	buses     []*descriptor.Bus
	messages  []*descriptor.Message
	byID      map[uint32]*descriptor.Message
	byName    map[string]*descriptor.Message
	nodeByID  map[string]string
	nodeNames map[string]struct{}
}

func (p *parser) run(root *xmlNetworkDefinition) error {
	p.version = root.Document.Version

	for _, n := range root.Nodes {
		if err := p.loadNode(n); err != nil {
			return err
		}
	}
	for _, b := range root.Buses {
		if err := p.loadBus(b); err != nil {
			return err
		}
	}

	for _, m := range p.messages {
		if err := m.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) build() *descriptor.Database {
	db := descriptor.New(descriptor.WithDiagnostics(p.logger))
	db.SetVersion(p.version)
	for _, n := range p.nodes {
		db.AddNode(n)
	}
	for _, b := range p.buses {
		db.AddBus(b)
	}
	for _, m := range p.messages {
		db.AddMessage(m)
	}
	return db
}

func (p *parser) loadNode(n xmlNode) error {
	if n.ID == "" {
		return semantic("node %q has no id", n.Name)
	}
	if _, dup := p.nodeByID[n.ID]; dup {
		return semantic("duplicate node id %q", n.ID)
	}
	if _, dup := p.nodeNames[n.Name]; dup {
		return semantic("duplicate node %q", n.Name)
	}
	p.nodeByID[n.ID] = n.Name
	p.nodeNames[n.Name] = struct{}{}
	p.nodes = append(p.nodes, &descriptor.Node{Name: n.Name})
	return nil
}

func (p *parser) loadBus(b xmlBus) error {
	baudRate := defaultBaudRate
	if b.Baudrate != "" {
		v, err := strconv.ParseUint(b.Baudrate, 10, 32)
		if err != nil {
			return semantic("bus %q has invalid baudrate %q", b.Name, b.Baudrate)
		}
		baudRate = uint32(v)
	}
	p.buses = append(p.buses, &descriptor.Bus{Name: b.Name, BaudRate: baudRate})

	for _, m := range b.Messages {
		if err := p.loadMessage(m); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) loadMessage(xm xmlMessage) error {
	if xm.ID == "" {
		return semantic("message %q has no id", xm.Name)
	}
	rawID, err := strconv.ParseUint(xm.ID, 0, 32)
	if err != nil {
		return semantic("message %q has invalid id %q", xm.Name, xm.ID)
	}

	m := &descriptor.Message{
		FrameID:    uint32(rawID),
		IsExtended: xm.Format == "extended",
		Name:       xm.Name,
		Comment:    xm.Notes,
	}

	if xm.Producer != nil && len(xm.Producer.NodeRefs) > 0 {
		sender, err := p.resolveNodeRef(xm.Producer.NodeRefs[0])
		if err != nil {
			return err
		}
		m.SenderNode = sender
	}

	// Track the highest MSB-first bit end so "auto" sizing covers
	// every signal.
	maxEnd := 0
	addSignal := func(xs xmlSignal, role descriptor.MuxRole, muxID uint32) error {
		s, end, err := p.loadSignal(xm.Name, xs)
		if err != nil {
			return err
		}
		s.MuxRole = role
		s.MuxID = muxID
		if end > maxEnd {
			maxEnd = end
		}
		m.Signals = append(m.Signals, s)
		return nil
	}

	for _, xs := range xm.Signals {
		if err := addSignal(xs, descriptor.MuxNone, 0); err != nil {
			return err
		}
	}
	for _, mux := range xm.Multiplex {
		if err := addSignal(mux.signal(), descriptor.MuxSelector, 0); err != nil {
			return err
		}
		for _, group := range mux.Groups {
			count, err := strconv.ParseUint(group.Count, 10, 32)
			if err != nil {
				return semantic("multiplex group in message %q has invalid count %q", xm.Name, group.Count)
			}
			for _, xs := range group.Signals {
				if err := addSignal(xs, descriptor.MuxCase, uint32(count)); err != nil {
					return err
				}
			}
		}
	}

	switch xm.Length {
	case "", "auto":
		m.Length = uint8((maxEnd + 7) / 8)
	default:
		length, err := strconv.ParseUint(xm.Length, 10, 8)
		if err != nil {
			return semantic("message %q has invalid length %q", xm.Name, xm.Length)
		}
		m.Length = uint8(length)
	}

	if prev, dup := p.byID[m.FrameID]; dup {
		return semantic("messages %q and %q share frame id %d", prev.Name, m.Name, m.FrameID)
	}
	if _, dup := p.byName[m.Name]; dup {
		return semantic("duplicate message name %q", m.Name)
	}
	p.messages = append(p.messages, m)
	p.byID[m.FrameID] = m
	p.byName[m.Name] = m
	return nil
}

// loadSignal converts one Signal element. The returned end is the
// exclusive MSB-first bit end used for "auto" message sizing.
func (p *parser) loadSignal(msgName string, xs xmlSignal) (*descriptor.Signal, int, error) {
	if xs.Offset == "" {
		return nil, 0, semantic("signal %q in message %q has no offset", xs.Name, msgName)
	}
	offset, err := strconv.ParseUint(xs.Offset, 10, 16)
	if err != nil {
		return nil, 0, semantic("signal %q in message %q has invalid offset %q", xs.Name, msgName, xs.Offset)
	}

	length := uint64(1)
	if xs.Length != "" {
		length, err = strconv.ParseUint(xs.Length, 10, 8)
		if err != nil {
			return nil, 0, semantic("signal %q in message %q has invalid length %q", xs.Name, msgName, xs.Length)
		}
	}
	if length == 0 || length > 64 {
		return nil, 0, semantic("signal %q in message %q has invalid length %d", xs.Name, msgName, length)
	}

	s := &descriptor.Signal{
		Name:    xs.Name,
		Length:  uint8(length),
		Scale:   1,
		Comment: xs.Notes,
	}

	// Big-endian offsets count bits MSB-first within the payload; the
	// schema stores the sawtooth position of the most significant bit.
	switch xs.Endianess {
	case "", "little":
		s.ByteOrder = descriptor.LittleEndian
		s.Start = uint16(offset)
	case "big":
		s.ByteOrder = descriptor.BigEndian
		s.Start = uint16(8*(offset/8) + 7 - offset%8)
	default:
		return nil, 0, semantic("signal %q in message %q has invalid endianess %q", xs.Name, msgName, xs.Endianess)
	}

	if xs.Value != nil {
		if err := p.applyValue(s, msgName, xs.Value); err != nil {
			return nil, 0, err
		}
	}
	if xs.LabelSet != nil {
		if err := p.applyLabels(s, msgName, xs.LabelSet); err != nil {
			return nil, 0, err
		}
	}
	if xs.Consumer != nil {
		for _, ref := range xs.Consumer.NodeRefs {
			name, err := p.resolveNodeRef(ref)
			if err != nil {
				return nil, 0, err
			}
			s.Receivers = append(s.Receivers, name)
		}
	}

	return s, int(offset) + int(length), nil
}

func (p *parser) applyValue(s *descriptor.Signal, msgName string, v *xmlValue) error {
	switch v.Type {
	case "", "unsigned":
	case "signed":
		s.Signed = true
	case "single", "double":
		return semantic("signal %q in message %q has unsupported value type %q", s.Name, msgName, v.Type)
	default:
		return semantic("signal %q in message %q has invalid value type %q", s.Name, msgName, v.Type)
	}

	var err error
	if v.Slope != "" {
		if s.Scale, err = strconv.ParseFloat(v.Slope, 64); err != nil {
			return semantic("signal %q in message %q has invalid slope %q", s.Name, msgName, v.Slope)
		}
		if s.Scale == 0 {
			return semantic("signal %q in message %q has zero slope", s.Name, msgName)
		}
	}
	if v.Intercept != "" {
		if s.Offset, err = strconv.ParseFloat(v.Intercept, 64); err != nil {
			return semantic("signal %q in message %q has invalid intercept %q", s.Name, msgName, v.Intercept)
		}
	}
	if v.Min != "" {
		if s.Min, err = strconv.ParseFloat(v.Min, 64); err != nil {
			return semantic("signal %q in message %q has invalid min %q", s.Name, msgName, v.Min)
		}
	}
	if v.Max != "" {
		if s.Max, err = strconv.ParseFloat(v.Max, 64); err != nil {
			return semantic("signal %q in message %q has invalid max %q", s.Name, msgName, v.Max)
		}
	}
	s.Unit = v.Unit
	return nil
}

func (p *parser) applyLabels(s *descriptor.Signal, msgName string, set *xmlLabelSet) error {
	var choices []descriptor.Choice
	for _, label := range set.Labels {
		// Only plain value labels map to choices; invalid and error
		// markers have no model counterpart.
		if label.Type != "" && label.Type != "value" {
			p.skip("Label", fmt.Sprintf("label %q type %q", label.Name, label.Type))
			continue
		}
		if label.Value == "" {
			return semantic("label %q of signal %q in message %q has no value", label.Name, s.Name, msgName)
		}
		value, err := strconv.ParseInt(label.Value, 10, 64)
		if err != nil {
			return semantic("label %q of signal %q in message %q has invalid value %q", label.Name, s.Name, msgName, label.Value)
		}
		choices = append(choices, descriptor.Choice{Value: value, Label: label.Name})
	}
	for _, group := range set.LabelGroups {
		p.skip("LabelGroup", fmt.Sprintf("label group %q", group.Name))
	}
	if len(choices) > 0 {
		s.Choices = descriptor.NewChoices(choices)
	}
	return nil
}

func (p *parser) resolveNodeRef(ref xmlNodeRef) (string, error) {
	name, ok := p.nodeByID[ref.ID]
	if !ok {
		return "", semantic("reference to undeclared node id %q", ref.ID)
	}
	return name, nil
}

// skip reports a tolerated construct the parser ignored.
func (p *parser) skip(keyword, text string) {
	p.logger.Log(diag.Event{
		Timestamp: time.Now(),
		SessionID: p.session,
		Severity:  diag.SeverityInfo,
		Kind:      diag.KindSkip,
		Skip: &diag.SkipEvent{
			Keyword: keyword,
			Text:    text,
		},
	})
}

func semantic(format string, args ...any) *descriptor.SemanticError {
	return &descriptor.SemanticError{Message: fmt.Sprintf(format, args...)}
}
