package dbc

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/candb-tools/candb-go/pkg/descriptor"
	"github.com/candb-tools/candb-go/pkg/diag"
)

// extendedFlag marks 29-bit identifiers in the textual frame ID.
const extendedFlag uint32 = 0x80000000

// placeholderNode is the name DBC uses where no real node is set.
const placeholderNode = "Vector__XXX"

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

// Parse reads DBC text into a database.
//
// Malformed constructs fail with a *descriptor.SyntaxError carrying
// the line and column. Constructs that parse but violate a schema
// invariant, such as a duplicate frame ID or a signal extending past
// its message's payload, fail with a *descriptor.SemanticError. Either
// way no partially populated database is returned. Sections outside
// the grammar are skipped, never rejected.
func Parse(text string, opts ...Option) (*descriptor.Database, error) {
	p := &parser{
		lx:        newLexer(text),
		logger:    diag.NoopLogger{},
		session:   diag.NewSession(),
		byID:      make(map[uint32]*descriptor.Message),
		byName:    make(map[string]*descriptor.Message),
		defByName: make(map[string]*descriptor.AttributeDefinition),
		dbAttrs:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := p.run(); err != nil {
		return nil, err
	}
	return p.build(), nil
}

// parser accumulates entities while walking the statement stream. The
// database is assembled only after the whole input parsed, so a
// failure never leaks partial state.
type parser struct {
	lx      *lexer
	peeked  *token
	logger  diag.Logger
	session string

	version   string
	nodes     []*descriptor.Node
	messages  []*descriptor.Message
	byID      map[uint32]*descriptor.Message
	byName    map[string]*descriptor.Message
	defs      []*descriptor.AttributeDefinition
	defByName map[string]*descriptor.AttributeDefinition
	dbAttrs   map[string]string

	// current is the message whose SG_ lines are being read, nil
	// outside a BO_ block.
	current *descriptor.Message
}

func (p *parser) run() error {
	for {
		tok, err := p.next()
		if err != nil {
			return err
		}
		if tok.kind == tokenEOF {
			break
		}
		if tok.kind != tokenIdent {
			return syntaxAt(tok, "expected a section keyword, got %s", describe(tok))
		}
		if tok.text != "SG_" {
			p.current = nil
		}

		switch tok.text {
		case "VERSION":
			err = p.parseVersion()
		case "NS_":
			err = p.parseNS(tok)
		case "BS_":
			err = p.parseBS(tok)
		case "BU_":
			err = p.parseNodes(tok)
		case "BO_":
			err = p.parseMessage()
		case "SG_":
			err = p.parseSignal(tok)
		case "CM_":
			err = p.parseComment(tok)
		case "BA_DEF_":
			err = p.parseAttributeDefinition(tok)
		case "BA_DEF_DEF_":
			err = p.parseAttributeDefault()
		case "BA_":
			err = p.parseAttribute(tok)
		case "VAL_":
			err = p.parseChoices(tok)
		default:
			p.skipStatement(tok)
		}
		if err != nil {
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
	for _, def := range p.defs {
		db.AddAttributeDefinition(def)
	}
	for name, value := range p.dbAttrs {
		db.SetAttribute(name, value)
	}
	for _, m := range p.messages {
		db.AddMessage(m)
	}
	return db
}

func (p *parser) next() (token, error) {
	if p.peeked != nil {
		tok := *p.peeked
		p.peeked = nil
		return tok, nil
	}
	return p.lx.next()
}

func (p *parser) peek() (token, error) {
	if p.peeked == nil {
		tok, err := p.lx.next()
		if err != nil {
			return token{}, err
		}
		p.peeked = &tok
	}
	return *p.peeked, nil
}

// consume drops the peeked token. Valid only directly after a
// successful peek.
func (p *parser) consume() {
	p.peeked = nil
}

func (p *parser) expect(kind tokenKind) (token, error) {
	tok, err := p.next()
	if err != nil {
		return token{}, err
	}
	if tok.kind != kind {
		return token{}, syntaxAt(tok, "expected %s, got %s", kind, describe(tok))
	}
	return tok, nil
}

func (p *parser) number(what string) (token, error) {
	tok, err := p.next()
	if err != nil {
		return token{}, err
	}
	if tok.kind != tokenNumber {
		return token{}, syntaxAt(tok, "expected %s, got %s", what, describe(tok))
	}
	return tok, nil
}

func (p *parser) parseVersion() error {
	tok, err := p.expect(tokenString)
	if err != nil {
		return err
	}
	p.version = tok.text
	return nil
}

// parseNS skips the new-symbols block: the header line plus every
// following indented line.
func (p *parser) parseNS(keyword token) error {
	if _, err := p.expect(tokenColon); err != nil {
		return err
	}
	p.lx.restOfLine()
	p.lx.skipIndented()
	p.skip(keyword, "NS_ :")
	return nil
}

// parseBS accepts the obsolete bit-timing section. Content after the
// colon is skipped; no bus is constructed, the section names none.
func (p *parser) parseBS(keyword token) error {
	if _, err := p.expect(tokenColon); err != nil {
		return err
	}
	rest := strings.TrimSpace(p.lx.restOfLine())
	if rest != "" {
		p.skip(keyword, "BS_: "+rest)
	}
	return nil
}

func (p *parser) parseNodes(keyword token) error {
	if _, err := p.expect(tokenColon); err != nil {
		return err
	}
	for {
		tok, err := p.peek()
		if err != nil {
			return err
		}
		if tok.kind != tokenIdent || tok.line != keyword.line {
			return nil
		}
		p.consume()
		if p.nodeByName(tok.text) != nil {
			return semantic("duplicate node %q", tok.text)
		}
		p.nodes = append(p.nodes, &descriptor.Node{Name: tok.text})
	}
}

func (p *parser) nodeByName(name string) *descriptor.Node {
	for _, n := range p.nodes {
		if n.Name == name {
			return n
		}
	}
	return nil
}

func (p *parser) parseMessage() error {
	idTok, err := p.number("frame id")
	if err != nil {
		return err
	}
	rawID, err := parseUintTok(idTok, 32, "frame id")
	if err != nil {
		return err
	}
	nameTok, err := p.expect(tokenIdent)
	if err != nil {
		return err
	}
	if _, err := p.expect(tokenColon); err != nil {
		return err
	}
	lenTok, err := p.number("message length")
	if err != nil {
		return err
	}
	length, err := parseUintTok(lenTok, 8, "message length")
	if err != nil {
		return err
	}
	senderTok, err := p.expect(tokenIdent)
	if err != nil {
		return err
	}
	sender := senderTok.text
	if sender == placeholderNode {
		sender = ""
	}

	m := &descriptor.Message{
		FrameID:    uint32(rawID) &^ extendedFlag,
		IsExtended: uint32(rawID)&extendedFlag != 0,
		Name:       nameTok.text,
		Length:     uint8(length),
		SenderNode: sender,
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
	p.current = m
	return nil
}

func (p *parser) parseSignal(keyword token) error {
	if p.current == nil {
		return syntaxAt(keyword, "signal definition outside a message definition")
	}

	nameTok, err := p.expect(tokenIdent)
	if err != nil {
		return err
	}
	s := &descriptor.Signal{Name: nameTok.text}

	tok, err := p.next()
	if err != nil {
		return err
	}
	if tok.kind == tokenIdent {
		if err := applyMuxMarker(s, tok); err != nil {
			return err
		}
		if tok, err = p.next(); err != nil {
			return err
		}
	}
	if tok.kind != tokenColon {
		return syntaxAt(tok, "expected ':', got %s", describe(tok))
	}

	startTok, err := p.number("start bit")
	if err != nil {
		return err
	}
	start, err := parseUintTok(startTok, 16, "start bit")
	if err != nil {
		return err
	}
	s.Start = uint16(start)

	if _, err := p.expect(tokenPipe); err != nil {
		return err
	}
	lenTok, err := p.number("signal length")
	if err != nil {
		return err
	}
	length, err := parseUintTok(lenTok, 16, "signal length")
	if err != nil {
		return err
	}
	if length == 0 || length > 64 {
		return semantic("signal %q in message %q has invalid length %d", s.Name, p.current.Name, length)
	}
	s.Length = uint8(length)

	if _, err := p.expect(tokenAt); err != nil {
		return err
	}
	orderTok, err := p.number("byte order")
	if err != nil {
		return err
	}
	switch orderTok.text {
	case "0":
		s.ByteOrder = descriptor.BigEndian
	case "1":
		s.ByteOrder = descriptor.LittleEndian
	default:
		return syntaxAt(orderTok, "invalid byte order %q", orderTok.text)
	}

	signTok, err := p.next()
	if err != nil {
		return err
	}
	switch signTok.kind {
	case tokenPlus:
	case tokenMinus:
		s.Signed = true
	default:
		return syntaxAt(signTok, "expected '+' or '-', got %s", describe(signTok))
	}

	if _, err := p.expect(tokenLParen); err != nil {
		return err
	}
	scaleTok, err := p.number("scale")
	if err != nil {
		return err
	}
	if s.Scale, err = parseFloatTok(scaleTok, "scale"); err != nil {
		return err
	}
	if s.Scale == 0 {
		return semantic("signal %q in message %q has zero scale", s.Name, p.current.Name)
	}
	if _, err := p.expect(tokenComma); err != nil {
		return err
	}
	offsetTok, err := p.number("offset")
	if err != nil {
		return err
	}
	if s.Offset, err = parseFloatTok(offsetTok, "offset"); err != nil {
		return err
	}
	if _, err := p.expect(tokenRParen); err != nil {
		return err
	}

	if _, err := p.expect(tokenLBracket); err != nil {
		return err
	}
	minTok, err := p.number("minimum")
	if err != nil {
		return err
	}
	if s.Min, err = parseFloatTok(minTok, "minimum"); err != nil {
		return err
	}
	if _, err := p.expect(tokenPipe); err != nil {
		return err
	}
	maxTok, err := p.number("maximum")
	if err != nil {
		return err
	}
	if s.Max, err = parseFloatTok(maxTok, "maximum"); err != nil {
		return err
	}
	if _, err := p.expect(tokenRBracket); err != nil {
		return err
	}

	unitTok, err := p.expect(tokenString)
	if err != nil {
		return err
	}
	s.Unit = unitTok.text

	if s.Receivers, err = p.receiverList(unitTok.line); err != nil {
		return err
	}

	p.current.Signals = append(p.current.Signals, s)
	return nil
}

// applyMuxMarker decodes the multiplex marker between signal name and
// colon: M is the multiplexor, m<id> a multiplexed signal.
func applyMuxMarker(s *descriptor.Signal, tok token) error {
	if tok.text == "M" {
		s.MuxRole = descriptor.MuxSelector
		return nil
	}
	if len(tok.text) >= 2 && tok.text[0] == 'm' {
		if id, err := strconv.ParseUint(tok.text[1:], 10, 32); err == nil {
			s.MuxRole = descriptor.MuxCase
			s.MuxID = uint32(id)
			return nil
		}
	}
	return syntaxAt(tok, "invalid multiplex marker %q", tok.text)
}

// receiverList reads the comma-separated receiver names ending a
// signal line. The list may be empty; the placeholder node is dropped.
func (p *parser) receiverList(line int) ([]string, error) {
	first, err := p.peek()
	if err != nil {
		return nil, err
	}
	if first.kind != tokenIdent || first.line != line {
		return nil, nil
	}
	p.consume()

	var receivers []string
	if first.text != placeholderNode {
		receivers = append(receivers, first.text)
	}
	for {
		sep, err := p.peek()
		if err != nil {
			return nil, err
		}
		if sep.kind != tokenComma {
			return receivers, nil
		}
		p.consume()
		nameTok, err := p.expect(tokenIdent)
		if err != nil {
			return nil, err
		}
		if nameTok.text != placeholderNode {
			receivers = append(receivers, nameTok.text)
		}
	}
}

func (p *parser) parseComment(keyword token) error {
	tok, err := p.next()
	if err != nil {
		return err
	}

	if tok.kind == tokenString {
		// Database-level comment; the schema has no home for it.
		if _, err := p.expect(tokenSemicolon); err != nil {
			return err
		}
		p.skip(keyword, "CM_ "+strconv.Quote(tok.text))
		return nil
	}
	if tok.kind != tokenIdent {
		return syntaxAt(tok, "expected BU_, BO_, SG_ or a string, got %s", describe(tok))
	}

	switch tok.text {
	case "BU_":
		nameTok, err := p.expect(tokenIdent)
		if err != nil {
			return err
		}
		textTok, err := p.expect(tokenString)
		if err != nil {
			return err
		}
		n := p.nodeByName(nameTok.text)
		if n == nil {
			return semantic("comment for undeclared node %q", nameTok.text)
		}
		n.Comment = textTok.text
	case "BO_":
		m, err := p.messageRef()
		if err != nil {
			return err
		}
		textTok, err := p.expect(tokenString)
		if err != nil {
			return err
		}
		m.Comment = textTok.text
	case "SG_":
		m, err := p.messageRef()
		if err != nil {
			return err
		}
		sigTok, err := p.expect(tokenIdent)
		if err != nil {
			return err
		}
		s := m.SignalByName(sigTok.text)
		if s == nil {
			return semantic("comment for undeclared signal %q in message %q", sigTok.text, m.Name)
		}
		textTok, err := p.expect(tokenString)
		if err != nil {
			return err
		}
		s.Comment = textTok.text
	case "EV_":
		p.skipStatement(keyword)
		return nil
	default:
		return syntaxAt(tok, "expected BU_, BO_, SG_ or a string, got %s", describe(tok))
	}

	_, err = p.expect(tokenSemicolon)
	return err
}

// messageRef reads a frame ID token and resolves it against the
// messages parsed so far.
func (p *parser) messageRef() (*descriptor.Message, error) {
	idTok, err := p.number("frame id")
	if err != nil {
		return nil, err
	}
	rawID, err := parseUintTok(idTok, 32, "frame id")
	if err != nil {
		return nil, err
	}
	m, ok := p.byID[uint32(rawID)&^extendedFlag]
	if !ok {
		return nil, semantic("reference to undeclared frame id %d", rawID)
	}
	return m, nil
}

func (p *parser) parseAttributeDefinition(keyword token) error {
	def := &descriptor.AttributeDefinition{Kind: descriptor.AttributeKindDatabase}

	tok, err := p.next()
	if err != nil {
		return err
	}
	if tok.kind == tokenIdent {
		switch tok.text {
		case "BU_":
			def.Kind = descriptor.AttributeKindNode
		case "BO_":
			def.Kind = descriptor.AttributeKindMessage
		case "SG_":
			def.Kind = descriptor.AttributeKindSignal
		case "EV_":
			// Environment variables are not modeled.
			p.skipStatement(keyword)
			return nil
		default:
			return syntaxAt(tok, "invalid attribute kind %q", tok.text)
		}
		if tok, err = p.next(); err != nil {
			return err
		}
	}
	if tok.kind != tokenString {
		return syntaxAt(tok, "expected attribute name string, got %s", describe(tok))
	}
	def.Name = tok.text

	typeTok, err := p.expect(tokenIdent)
	if err != nil {
		return err
	}
	switch typeTok.text {
	case "INT":
		def.Type = descriptor.AttributeTypeInt
	case "HEX":
		def.Type = descriptor.AttributeTypeHex
	case "FLOAT":
		def.Type = descriptor.AttributeTypeFloat
	case "STRING":
		def.Type = descriptor.AttributeTypeString
	case "ENUM":
		def.Type = descriptor.AttributeTypeEnum
	default:
		return syntaxAt(typeTok, "invalid attribute type %q", typeTok.text)
	}

	switch def.Type {
	case descriptor.AttributeTypeInt, descriptor.AttributeTypeHex, descriptor.AttributeTypeFloat:
		minTok, err := p.number("attribute minimum")
		if err != nil {
			return err
		}
		if def.Min, err = parseFloatTok(minTok, "attribute minimum"); err != nil {
			return err
		}
		maxTok, err := p.number("attribute maximum")
		if err != nil {
			return err
		}
		if def.Max, err = parseFloatTok(maxTok, "attribute maximum"); err != nil {
			return err
		}
	case descriptor.AttributeTypeEnum:
		for {
			tok, err := p.peek()
			if err != nil {
				return err
			}
			if tok.kind != tokenString {
				break
			}
			p.consume()
			def.EnumValues = append(def.EnumValues, tok.text)
			sep, err := p.peek()
			if err != nil {
				return err
			}
			if sep.kind != tokenComma {
				break
			}
			p.consume()
		}
	}

	if _, err := p.expect(tokenSemicolon); err != nil {
		return err
	}
	if _, dup := p.defByName[def.Name]; dup {
		return semantic("duplicate attribute definition %q", def.Name)
	}
	p.defs = append(p.defs, def)
	p.defByName[def.Name] = def
	return nil
}

func (p *parser) parseAttributeDefault() error {
	nameTok, err := p.expect(tokenString)
	if err != nil {
		return err
	}
	def, ok := p.defByName[nameTok.text]
	if !ok {
		return semantic("default for undefined attribute %q", nameTok.text)
	}
	if def.Default, err = p.attributeValue(def); err != nil {
		return err
	}
	_, err = p.expect(tokenSemicolon)
	return err
}

func (p *parser) parseAttribute(keyword token) error {
	nameTok, err := p.expect(tokenString)
	if err != nil {
		return err
	}
	name := nameTok.text
	def, ok := p.defByName[name]
	if !ok {
		return semantic("value for undefined attribute %q", name)
	}

	tok, err := p.peek()
	if err != nil {
		return err
	}
	if tok.kind != tokenIdent {
		// Database-level value.
		value, err := p.attributeValue(def)
		if err != nil {
			return err
		}
		p.dbAttrs[name] = value
		_, err = p.expect(tokenSemicolon)
		return err
	}
	p.consume()

	switch tok.text {
	case "BU_":
		nodeTok, err := p.expect(tokenIdent)
		if err != nil {
			return err
		}
		n := p.nodeByName(nodeTok.text)
		if n == nil {
			return semantic("attribute %q for undeclared node %q", name, nodeTok.text)
		}
		value, err := p.attributeValue(def)
		if err != nil {
			return err
		}
		if n.Attributes == nil {
			n.Attributes = make(map[string]string)
		}
		n.Attributes[name] = value
	case "BO_":
		m, err := p.messageRef()
		if err != nil {
			return err
		}
		value, err := p.attributeValue(def)
		if err != nil {
			return err
		}
		if m.Attributes == nil {
			m.Attributes = make(map[string]string)
		}
		m.Attributes[name] = value
	case "SG_":
		m, err := p.messageRef()
		if err != nil {
			return err
		}
		sigTok, err := p.expect(tokenIdent)
		if err != nil {
			return err
		}
		s := m.SignalByName(sigTok.text)
		if s == nil {
			return semantic("attribute %q for undeclared signal %q in message %q", name, sigTok.text, m.Name)
		}
		value, err := p.attributeValue(def)
		if err != nil {
			return err
		}
		if s.Attributes == nil {
			s.Attributes = make(map[string]string)
		}
		s.Attributes[name] = value
	case "EV_":
		p.skipStatement(keyword)
		return nil
	default:
		return syntaxAt(tok, "invalid attribute target %q", tok.text)
	}

	_, err = p.expect(tokenSemicolon)
	return err
}

// attributeValue reads an attribute value of the kind the definition's
// type demands, preserving the source spelling. Enum values appear both
// as index numbers and as label strings in the wild, so both pass.
func (p *parser) attributeValue(def *descriptor.AttributeDefinition) (string, error) {
	tok, err := p.next()
	if err != nil {
		return "", err
	}
	switch def.Type {
	case descriptor.AttributeTypeString:
		if tok.kind != tokenString {
			return "", syntaxAt(tok, "expected string value for attribute %q, got %s", def.Name, describe(tok))
		}
	case descriptor.AttributeTypeEnum:
		if tok.kind != tokenString && tok.kind != tokenNumber {
			return "", syntaxAt(tok, "expected value for attribute %q, got %s", def.Name, describe(tok))
		}
	default:
		if tok.kind != tokenNumber {
			return "", syntaxAt(tok, "expected numeric value for attribute %q, got %s", def.Name, describe(tok))
		}
	}
	return tok.text, nil
}

func (p *parser) parseChoices(keyword token) error {
	first, err := p.peek()
	if err != nil {
		return err
	}
	if first.kind == tokenIdent {
		// Environment variable value table.
		p.consume()
		p.skipStatement(keyword)
		return nil
	}

	m, err := p.messageRef()
	if err != nil {
		return err
	}
	sigTok, err := p.expect(tokenIdent)
	if err != nil {
		return err
	}
	s := m.SignalByName(sigTok.text)
	if s == nil {
		return semantic("value table for undeclared signal %q in message %q", sigTok.text, m.Name)
	}

	var choices []descriptor.Choice
	for {
		tok, err := p.next()
		if err != nil {
			return err
		}
		if tok.kind == tokenSemicolon {
			break
		}
		if tok.kind != tokenNumber {
			return syntaxAt(tok, "expected choice value, got %s", describe(tok))
		}
		value, err := strconv.ParseInt(tok.text, 10, 64)
		if err != nil {
			return syntaxAt(tok, "invalid choice value %q", tok.text)
		}
		labelTok, err := p.expect(tokenString)
		if err != nil {
			return err
		}
		choices = append(choices, descriptor.Choice{Value: value, Label: labelTok.text})
	}
	s.Choices = descriptor.NewChoices(choices)
	return nil
}

// skipStatement discards the rest of the statement's line and reports
// it. Quoted strings, multi-line ones included, do not end the line.
func (p *parser) skipStatement(keyword token) {
	rest := p.lx.restOfLine()
	p.skip(keyword, strings.TrimSpace(keyword.text+rest))
}

// skip reports a tolerated construct the parser ignored.
func (p *parser) skip(keyword token, text string) {
	const maxText = 200
	if len(text) > maxText {
		text = text[:maxText]
	}
	p.logger.Log(diag.Event{
		Timestamp: time.Now(),
		SessionID: p.session,
		Severity:  diag.SeverityInfo,
		Kind:      diag.KindSkip,
		Skip: &diag.SkipEvent{
			Keyword: keyword.text,
			Line:    keyword.line,
			Text:    text,
		},
	})
}

func describe(tok token) string {
	switch tok.kind {
	case tokenIdent, tokenNumber:
		return fmt.Sprintf("%s %q", tok.kind, tok.text)
	default:
		return tok.kind.String()
	}
}

func syntaxAt(tok token, format string, args ...any) *descriptor.SyntaxError {
	return &descriptor.SyntaxError{
		Line:    tok.line,
		Column:  tok.col,
		Message: fmt.Sprintf(format, args...),
	}
}

func semantic(format string, args ...any) *descriptor.SemanticError {
	return &descriptor.SemanticError{Message: fmt.Sprintf(format, args...)}
}

func parseUintTok(tok token, bits int, what string) (uint64, error) {
	v, err := strconv.ParseUint(tok.text, 10, bits)
	if err != nil {
		return 0, syntaxAt(tok, "invalid %s %q", what, tok.text)
	}
	return v, nil
}

func parseFloatTok(tok token, what string) (float64, error) {
	v, err := strconv.ParseFloat(tok.text, 64)
	if err != nil {
		return 0, syntaxAt(tok, "invalid %s %q", what, tok.text)
	}
	return v, nil
}
