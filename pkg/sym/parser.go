package sym

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/candb-tools/candb-go/pkg/descriptor"
	"github.com/candb-tools/candb-go/pkg/diag"
)

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

// Parse reads PCAN symbol file text into a database.
//
// Malformed lines fail with a *descriptor.SyntaxError naming the line.
// Text that tokenizes but violates a schema invariant, a signal
// reference without a {SIGNALS} definition say, fails with a
// *descriptor.SemanticError. No partially populated database is
// returned on failure.
func Parse(text string, opts ...Option) (*descriptor.Database, error) {
	p := &parser{
		logger:    diag.NoopLogger{},
		session:   diag.NewSession(),
		enums:     make(map[string]*descriptor.Choices),
		templates: make(map[string]*sigTemplate),
		states:    make(map[string]*messageState),
		byID:      make(map[uint32]*messageState),
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := p.run(text); err != nil {
		return nil, err
	}
	return p.build(), nil
}

// sigTemplate is a {SIGNALS} entry. Message blocks instantiate it at a
// start bit, so one definition can appear in several messages.
type sigTemplate struct {
	byteOrder descriptor.ByteOrder
	signed    bool
	length    uint8
	scale     float64
	offset    float64
	min       float64
	max       float64
	unit      string
	choices   *descriptor.Choices
}

func (t *sigTemplate) instantiate(name string, rawStart uint16) *descriptor.Signal {
	return &descriptor.Signal{
		Name:      name,
		Start:     convertStart(rawStart, t.byteOrder),
		Length:    t.length,
		ByteOrder: t.byteOrder,
		Signed:    t.signed,
		Scale:     t.scale,
		Offset:    t.offset,
		Min:       t.min,
		Max:       t.max,
		Unit:      t.unit,
		Choices:   t.choices,
	}
}

// convertStart turns a symbol file start bit into the sawtooth start
// position. Big-endian start bits count MSB-first like KCD offsets;
// little-endian start bits are starts verbatim.
func convertStart(start uint16, order descriptor.ByteOrder) uint16 {
	if order == descriptor.BigEndian {
		return 8*(start/8) + 7 - start%8
	}
	return start
}

// messageState accumulates one message across its blocks. PCAN symbol
// files repeat a [Name] block once per multiplexor value, so ID and
// Len may be restated and must agree.
type messageState struct {
	msg      *descriptor.Message
	maxEnd   int
	hasID    bool
	hasLen   bool
	hasType  bool
	selStart uint16
	selLen   uint8
	selOrder descriptor.ByteOrder
}

// blockCtx is the [Name] block being read. A Mux= line switches the
// block's Sig= assignments into the named multiplex group.
type blockCtx struct {
	state  *messageState
	hasMux bool
	muxID  uint32
}

type section int

const (
	secNone section = iota
	secEnums
	secSignals
	secMessages
	secSkipped
)

type parser struct {
	logger  diag.Logger
	session string

	version   string
	enums     map[string]*descriptor.Choices
	templates map[string]*sigTemplate
	order     []*messageState
	states    map[string]*messageState
	byID      map[uint32]*messageState

	section section
	block   *blockCtx
}

func (p *parser) run(text string) error {
	lines := strings.Split(text, "\n")
	if len(lines) > 0 {
		lines[0] = strings.TrimPrefix(lines[0], string(rune(0xFEFF)))
	}

	seenHeader := false
	for i := 0; i < len(lines); i++ {
		lineNo := i + 1
		s := strings.TrimSpace(stripComment(lines[i]))
		if s == "" {
			continue
		}

		if !seenHeader {
			if !strings.HasPrefix(s, "FormatVersion=") {
				return syntax(lineNo, "expected FormatVersion header")
			}
			version := strings.TrimSpace(strings.TrimPrefix(s, "FormatVersion="))
			if !strings.HasPrefix(version, "5.") {
				return semantic("unsupported format version %q", version)
			}
			seenHeader = true
			continue
		}

		if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
			p.block = nil
			name := s[1 : len(s)-1]
			switch name {
			case "ENUMS":
				p.section = secEnums
			case "SIGNALS":
				p.section = secSignals
			case "SEND", "RECEIVE", "SENDRECEIVE":
				p.section = secMessages
			default:
				p.skip(name, lineNo, s)
				p.section = secSkipped
			}
			continue
		}
		if p.section == secSkipped {
			continue
		}

		if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
			if p.section != secMessages {
				return syntax(lineNo, "message block outside a message section")
			}
			name := strings.TrimSpace(s[1 : len(s)-1])
			if name == "" {
				return syntax(lineNo, "expected a message name")
			}
			state := p.states[name]
			if state == nil {
				state = &messageState{msg: &descriptor.Message{Name: name}}
				p.states[name] = state
				p.order = append(p.order, state)
			}
			p.block = &blockCtx{state: state}
			continue
		}

		var err error
		switch p.section {
		case secNone:
			if strings.HasPrefix(s, "Title=") {
				p.version = unquote(strings.TrimSpace(strings.TrimPrefix(s, "Title=")))
			} else {
				err = syntax(lineNo, "expected a section")
			}
		case secEnums:
			if strings.HasPrefix(s, "Enum=") {
				i, err = p.parseEnum(lines, i)
			} else {
				err = syntax(lineNo, "expected an enum definition")
			}
		case secSignals:
			if strings.HasPrefix(s, "Sig=") {
				err = p.parseTemplate(s, lineNo)
			} else {
				err = syntax(lineNo, "expected a signal definition")
			}
		case secMessages:
			err = p.parseBlockLine(s, lineNo)
		}
		if err != nil {
			return err
		}
	}
	if !seenHeader {
		return syntax(1, "expected FormatVersion header")
	}

	return p.finish()
}

func (p *parser) build() *descriptor.Database {
	db := descriptor.New(descriptor.WithDiagnostics(p.logger))
	db.SetVersion(p.version)
	for _, state := range p.order {
		db.AddMessage(state.msg)
	}
	return db
}

func (p *parser) finish() error {
	for _, state := range p.order {
		if !state.hasID {
			return semantic("message %q has no id", state.msg.Name)
		}
		if !state.hasLen {
			state.msg.Length = uint8((state.maxEnd + 7) / 8)
		}
		if err := state.msg.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// parseEnum reads Enum=Name(raw="label", …), consuming continuation
// lines until the closing parenthesis. It returns the index of the
// last line consumed.
func (p *parser) parseEnum(lines []string, i int) (int, error) {
	lineNo := i + 1
	s := strings.TrimSpace(stripComment(lines[i]))
	body := strings.TrimPrefix(s, "Enum=")
	open := strings.IndexByte(body, '(')
	if open < 0 {
		return i, syntax(lineNo, "expected '(' in enum definition")
	}
	name := strings.TrimSpace(body[:open])
	if name == "" {
		return i, syntax(lineNo, "expected an enum name")
	}
	if _, dup := p.enums[name]; dup {
		return i, semantic("duplicate enum %q", name)
	}

	content := body[open+1:]
	end := unquotedIndex(content, ')')
	for end < 0 {
		i++
		if i >= len(lines) {
			return i - 1, syntax(lineNo, "unterminated enum definition")
		}
		content += " " + strings.TrimSpace(stripComment(lines[i]))
		end = unquotedIndex(content, ')')
	}
	if rest := strings.TrimSpace(content[end+1:]); rest != "" {
		return i, syntax(lineNo, "unexpected characters after enum definition")
	}
	content = content[:end]

	var choices []descriptor.Choice
	for _, pair := range splitUnquoted(content, ',') {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		eq := strings.IndexByte(pair, '=')
		if eq < 0 {
			return i, syntax(lineNo, "expected raw=\"label\" in enum %q", name)
		}
		raw, err := strconv.ParseInt(strings.TrimSpace(pair[:eq]), 0, 64)
		if err != nil {
			return i, syntax(lineNo, "invalid enum value %q", strings.TrimSpace(pair[:eq]))
		}
		label := unquote(strings.TrimSpace(pair[eq+1:]))
		choices = append(choices, descriptor.Choice{Value: raw, Label: label})
	}
	p.enums[name] = descriptor.NewChoices(choices)
	return i, nil
}

// parseTemplate reads a {SIGNALS} definition:
// Sig=Name type [length] [-m] [/u:unit] [/f:factor] [/o:offset]
// [/min:min] [/max:max] [/e:Enum]
func (p *parser) parseTemplate(s string, lineNo int) error {
	fields, err := splitFields(s)
	if err != nil {
		return syntax(lineNo, "%s", err)
	}
	name := strings.TrimPrefix(fields[0], "Sig=")
	if name == "" {
		return syntax(lineNo, "expected a signal name")
	}
	if len(fields) < 2 {
		return syntax(lineNo, "signal %q has no type", name)
	}

	tmpl := &sigTemplate{scale: 1}
	idx := 2
	switch typ := fields[1]; typ {
	case "unsigned", "signed":
		tmpl.signed = typ == "signed"
		if len(fields) < 3 {
			return syntax(lineNo, "signal %q has no length", name)
		}
		length, err := strconv.ParseUint(fields[2], 10, 8)
		if err != nil {
			return syntax(lineNo, "invalid signal length %q", fields[2])
		}
		tmpl.length = uint8(length)
		idx = 3
	case "bit":
		tmpl.length = 1
	case "char":
		tmpl.length = 8
	case "float", "double":
		return semantic("signal %q has unsupported type %q", name, typ)
	default:
		return syntax(lineNo, "invalid signal type %q", typ)
	}

	// bit and char take an optional explicit length.
	if idx == 2 && len(fields) > 2 && isDigits(fields[2]) {
		length, err := strconv.ParseUint(fields[2], 10, 8)
		if err != nil {
			return syntax(lineNo, "invalid signal length %q", fields[2])
		}
		tmpl.length = uint8(length)
		idx = 3
	}

	for _, f := range fields[idx:] {
		if err := p.applyModifier(tmpl, f, name, lineNo); err != nil {
			return err
		}
	}

	if _, dup := p.templates[name]; dup {
		return semantic("duplicate signal definition %q", name)
	}
	p.templates[name] = tmpl
	return nil
}

func (p *parser) applyModifier(tmpl *sigTemplate, field, name string, lineNo int) error {
	if field == "-m" {
		tmpl.byteOrder = descriptor.BigEndian
		return nil
	}
	colon := strings.IndexByte(field, ':')
	if !strings.HasPrefix(field, "/") || colon < 0 {
		return syntax(lineNo, "unexpected token %q", field)
	}
	value := field[colon+1:]
	var err error
	switch field[:colon+1] {
	case "/u:":
		tmpl.unit = unquote(value)
	case "/f:":
		if tmpl.scale, err = strconv.ParseFloat(value, 64); err != nil {
			return syntax(lineNo, "invalid factor %q", value)
		}
		if tmpl.scale == 0 {
			return semantic("signal %q has zero factor", name)
		}
	case "/o:":
		if tmpl.offset, err = strconv.ParseFloat(value, 64); err != nil {
			return syntax(lineNo, "invalid offset %q", value)
		}
	case "/min:":
		if tmpl.min, err = strconv.ParseFloat(value, 64); err != nil {
			return syntax(lineNo, "invalid minimum %q", value)
		}
	case "/max:":
		if tmpl.max, err = strconv.ParseFloat(value, 64); err != nil {
			return syntax(lineNo, "invalid maximum %q", value)
		}
	case "/e:":
		choices, ok := p.enums[value]
		if !ok {
			return semantic("reference to undefined enum %q", value)
		}
		tmpl.choices = choices
	default:
		p.skip(field[:colon+1], lineNo, field)
	}
	return nil
}

// parseBlockLine handles one line inside a [Name] message block.
func (p *parser) parseBlockLine(s string, lineNo int) error {
	if p.block == nil {
		return syntax(lineNo, "assignment outside a message block")
	}
	state := p.block.state
	m := state.msg

	switch {
	case strings.HasPrefix(s, "ID="):
		value := strings.TrimSpace(strings.TrimPrefix(s, "ID="))
		if len(value) < 2 || (value[len(value)-1] != 'h' && value[len(value)-1] != 'H') {
			return syntax(lineNo, "invalid frame id %q", value)
		}
		raw, err := strconv.ParseUint(value[:len(value)-1], 16, 32)
		if err != nil {
			return syntax(lineNo, "invalid frame id %q", value)
		}
		id := uint32(raw)
		if state.hasID {
			if m.FrameID != id {
				return semantic("conflicting id for message %q", m.Name)
			}
			return nil
		}
		if prev, taken := p.byID[id]; taken {
			return semantic("messages %q and %q share frame id %d", prev.msg.Name, m.Name, id)
		}
		state.hasID = true
		m.FrameID = id
		p.byID[id] = state
		if !state.hasType {
			m.IsExtended = id > 0x7FF
		}
		return nil

	case strings.HasPrefix(s, "Len="):
		value := strings.TrimSpace(strings.TrimPrefix(s, "Len="))
		length, err := strconv.ParseUint(value, 10, 8)
		if err != nil {
			return syntax(lineNo, "invalid length %q", value)
		}
		if state.hasLen {
			if m.Length != uint8(length) {
				return semantic("conflicting length for message %q", m.Name)
			}
			return nil
		}
		state.hasLen = true
		m.Length = uint8(length)
		return nil

	case strings.HasPrefix(s, "Type="):
		value := strings.TrimSpace(strings.TrimPrefix(s, "Type="))
		var extended bool
		switch value {
		case "Extended":
			extended = true
		case "Standard":
			extended = false
		default:
			return syntax(lineNo, "invalid frame type %q", value)
		}
		if state.hasType {
			if m.IsExtended != extended {
				return semantic("conflicting type for message %q", m.Name)
			}
			return nil
		}
		state.hasType = true
		m.IsExtended = extended
		return nil

	case strings.HasPrefix(s, "Mux="):
		return p.parseMux(s, lineNo)

	case strings.HasPrefix(s, "Sig="):
		fields, err := splitFields(s)
		if err != nil {
			return syntax(lineNo, "%s", err)
		}
		name := strings.TrimPrefix(fields[0], "Sig=")
		if name == "" {
			return syntax(lineNo, "expected a signal name")
		}
		if len(fields) != 2 {
			return syntax(lineNo, "expected a signal name and start bit")
		}
		start, err := strconv.ParseUint(fields[1], 10, 16)
		if err != nil {
			return syntax(lineNo, "invalid start bit %q", fields[1])
		}
		tmpl, ok := p.templates[name]
		if !ok {
			return semantic("reference to undeclared signal %q in message %q", name, m.Name)
		}
		sig := tmpl.instantiate(name, uint16(start))
		if p.block.hasMux {
			sig.MuxRole = descriptor.MuxCase
			sig.MuxID = p.block.muxID
		}
		m.Signals = append(m.Signals, sig)
		if end := int(start) + int(tmpl.length); end > state.maxEnd {
			state.maxEnd = end
		}
		return nil
	}

	// Key=Value lines this dialect does not model, CycleTime= say, are
	// tolerated and reported.
	if eq := strings.IndexByte(s, '='); eq > 0 && !strings.ContainsAny(s[:eq], " \t") {
		p.skip(s[:eq], lineNo, s)
		return nil
	}
	return syntax(lineNo, "unexpected characters")
}

// parseMux reads Mux=Name start,len value [-m] [modifiers]. The first
// occurrence defines the selector signal; repeated blocks restate it
// with their own selector value and must agree on the layout.
func (p *parser) parseMux(s string, lineNo int) error {
	state := p.block.state
	m := state.msg

	fields, err := splitFields(s)
	if err != nil {
		return syntax(lineNo, "%s", err)
	}
	name := strings.TrimPrefix(fields[0], "Mux=")
	if name == "" {
		return syntax(lineNo, "expected a multiplexor name")
	}
	if len(fields) < 3 {
		return syntax(lineNo, "expected multiplexor start, length and value")
	}
	startLen := strings.SplitN(fields[1], ",", 2)
	if len(startLen) != 2 {
		return syntax(lineNo, "expected start,length for multiplexor %q", name)
	}
	start, err := strconv.ParseUint(startLen[0], 10, 16)
	if err != nil {
		return syntax(lineNo, "invalid start bit %q", startLen[0])
	}
	length, err := strconv.ParseUint(startLen[1], 10, 8)
	if err != nil {
		return syntax(lineNo, "invalid signal length %q", startLen[1])
	}
	value, err := strconv.ParseUint(fields[2], 0, 32)
	if err != nil {
		return syntax(lineNo, "invalid multiplexor value %q", fields[2])
	}

	tmpl := &sigTemplate{scale: 1, length: uint8(length)}
	for _, f := range fields[3:] {
		if err := p.applyModifier(tmpl, f, name, lineNo); err != nil {
			return err
		}
	}

	selector := m.Multiplexor()
	if selector == nil {
		sig := tmpl.instantiate(name, uint16(start))
		sig.MuxRole = descriptor.MuxSelector
		m.Signals = append(m.Signals, sig)
		state.selStart = uint16(start)
		state.selLen = uint8(length)
		state.selOrder = tmpl.byteOrder
		if end := int(start) + int(length); end > state.maxEnd {
			state.maxEnd = end
		}
	} else if selector.Name != name || state.selStart != uint16(start) ||
		state.selLen != uint8(length) || state.selOrder != tmpl.byteOrder {
		return semantic("conflicting multiplexor definition in message %q", m.Name)
	}

	p.block.hasMux = true
	p.block.muxID = uint32(value)
	return nil
}

// skip reports a tolerated construct the parser ignored.
func (p *parser) skip(keyword string, line int, text string) {
	p.logger.Log(diag.Event{
		Timestamp: time.Now(),
		SessionID: p.session,
		Severity:  diag.SeverityInfo,
		Kind:      diag.KindSkip,
		Skip: &diag.SkipEvent{
			Keyword: keyword,
			Line:    line,
			Text:    text,
		},
	})
}

// stripComment cuts a // comment, leaving quoted spans intact.
func stripComment(s string) string {
	inQuote := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			inQuote = !inQuote
		case '/':
			if !inQuote && i+1 < len(s) && s[i+1] == '/' {
				return s[:i]
			}
		}
	}
	return s
}

// splitFields splits on whitespace, keeping quoted spans together.
func splitFields(s string) ([]string, error) {
	var fields []string
	var cur strings.Builder
	inQuote := false
	flush := func() {
		if cur.Len() > 0 {
			fields = append(fields, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
			cur.WriteRune(r)
		case !inQuote && (r == ' ' || r == '\t'):
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	if inQuote {
		return nil, fmt.Errorf("unterminated string")
	}
	flush()
	return fields, nil
}

// unquotedIndex returns the index of the first c outside quotes, or -1.
func unquotedIndex(s string, c byte) int {
	inQuote := false
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '"':
			inQuote = !inQuote
		case s[i] == c && !inQuote:
			return i
		}
	}
	return -1
}

// splitUnquoted splits on c outside quotes.
func splitUnquoted(s string, c byte) []string {
	var parts []string
	start := 0
	inQuote := false
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '"':
			inQuote = !inQuote
		case s[i] == c && !inQuote:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func syntax(line int, format string, args ...any) *descriptor.SyntaxError {
	return &descriptor.SyntaxError{Line: line, Message: fmt.Sprintf(format, args...)}
}

func semantic(format string, args ...any) *descriptor.SemanticError {
	return &descriptor.SemanticError{Message: fmt.Sprintf(format, args...)}
}
