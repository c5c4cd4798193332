package descriptor

import (
	"fmt"
	"sync"
	"time"

	"github.com/candb-tools/candb-go/pkg/diag"
)

// Database holds all messages, signals, nodes and buses of a CAN
// network.
//
// Lookups are safe for concurrent use. AddMessage and Merge take the
// write lock; callers that mix merging with decoding must serialize at
// a higher level or accept that lookups observe merge boundaries.
type Database struct {
	mu sync.RWMutex

	version string

	// Entity lists in source order.
	messages []*Message
	nodes    []*Node
	buses    []*Bus

	attributeDefs []*AttributeDefinition

	// Database-level attribute values keyed by definition name.
	attributes map[string]string

	// Lookup tables. On a collision the later message wins.
	byName    map[string]*Message
	byFrameID map[uint32]*Message

	logger  diag.Logger
	session string
}

// Option configures a Database.
type Option func(*Database)

// WithDiagnostics directs merge collision warnings and other
// observations to the given logger. The default is NoopLogger.
func WithDiagnostics(logger diag.Logger) Option {
	return func(db *Database) {
		if logger != nil {
			db.logger = logger
		}
	}
}

// New creates an empty database.
func New(opts ...Option) *Database {
	db := &Database{
		attributes: make(map[string]string),
		byName:     make(map[string]*Message),
		byFrameID:  make(map[uint32]*Message),
		logger:     diag.NoopLogger{},
		session:    diag.NewSession(),
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// AddMessage appends a message to the database. A name or frame ID
// already present in a lookup table is overwritten by the new message;
// each overwrite emits a warning event on the diagnostics logger. The
// displaced message stays in the message list.
func (db *Database) AddMessage(m *Message) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.addMessageLocked(m)
}

func (db *Database) addMessageLocked(m *Message) {
	db.messages = append(db.messages, m)

	if prev, exists := db.byName[m.Name]; exists {
		db.logger.Log(diag.Event{
			Timestamp: time.Now(),
			SessionID: db.session,
			Severity:  diag.SeverityWarning,
			Kind:      diag.KindCollision,
			Collision: &diag.CollisionEvent{
				Table:    diag.CollisionByName,
				Name:     m.Name,
				Previous: prev.Name,
				Incoming: m.Name,
			},
		})
	}

	if prev, exists := db.byFrameID[m.FrameID]; exists {
		db.logger.Log(diag.Event{
			Timestamp: time.Now(),
			SessionID: db.session,
			Severity:  diag.SeverityWarning,
			Kind:      diag.KindCollision,
			Collision: &diag.CollisionEvent{
				Table:    diag.CollisionByFrameID,
				FrameID:  m.FrameID,
				Previous: prev.Name,
				Incoming: m.Name,
			},
		})
	}

	db.byName[m.Name] = m
	db.byFrameID[m.FrameID] = m
}

// Merge folds another database into this one. Messages are added one
// by one with AddMessage collision semantics; nodes, buses, version,
// attribute definitions and database attributes are replaced by the
// newcomer's.
func (db *Database) Merge(other *Database) {
	other.mu.RLock()
	messages := other.messages
	nodes := make([]*Node, len(other.nodes))
	copy(nodes, other.nodes)
	buses := make([]*Bus, len(other.buses))
	copy(buses, other.buses)
	version := other.version
	attributeDefs := make([]*AttributeDefinition, len(other.attributeDefs))
	copy(attributeDefs, other.attributeDefs)
	attributes := make(map[string]string, len(other.attributes))
	for k, v := range other.attributes {
		attributes[k] = v
	}
	other.mu.RUnlock()

	db.mu.Lock()
	defer db.mu.Unlock()

	for _, m := range messages {
		db.addMessageLocked(m)
	}
	db.nodes = nodes
	db.buses = buses
	db.version = version
	db.attributeDefs = attributeDefs
	db.attributes = attributes
}

// MessageByName returns the message with the given name.
func (db *Database) MessageByName(name string) (*Message, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	m, exists := db.byName[name]
	if !exists {
		return nil, &NotFoundError{Entity: "message", Key: name}
	}
	return m, nil
}

// MessageByFrameID returns the message with the given frame ID.
func (db *Database) MessageByFrameID(frameID uint32) (*Message, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	m, exists := db.byFrameID[frameID]
	if !exists {
		return nil, &NotFoundError{Entity: "message", Key: fmt.Sprintf("0x%x", frameID)}
	}
	return m, nil
}

// NodeByName returns the node with the given name.
func (db *Database) NodeByName(name string) (*Node, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, n := range db.nodes {
		if n.Name == name {
			return n, nil
		}
	}
	return nil, &NotFoundError{Entity: "node", Key: name}
}

// BusByName returns the bus with the given name.
func (db *Database) BusByName(name string) (*Bus, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, b := range db.buses {
		if b.Name == name {
			return b, nil
		}
	}
	return nil, &NotFoundError{Entity: "bus", Key: name}
}

// Messages returns all messages in source order.
func (db *Database) Messages() []*Message {
	db.mu.RLock()
	defer db.mu.RUnlock()

	result := make([]*Message, len(db.messages))
	copy(result, db.messages)
	return result
}

// Nodes returns all nodes in source order.
func (db *Database) Nodes() []*Node {
	db.mu.RLock()
	defer db.mu.RUnlock()

	result := make([]*Node, len(db.nodes))
	copy(result, db.nodes)
	return result
}

// Buses returns all buses in source order.
func (db *Database) Buses() []*Bus {
	db.mu.RLock()
	defer db.mu.RUnlock()

	result := make([]*Bus, len(db.buses))
	copy(result, db.buses)
	return result
}

// Version returns the database version string, empty if unset.
func (db *Database) Version() string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.version
}

// SetVersion sets the database version string.
func (db *Database) SetVersion(version string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.version = version
}

// AddNode appends a node.
func (db *Database) AddNode(n *Node) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.nodes = append(db.nodes, n)
}

// AddBus appends a bus.
func (db *Database) AddBus(b *Bus) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.buses = append(db.buses, b)
}

// AddAttributeDefinition appends an attribute definition.
func (db *Database) AddAttributeDefinition(def *AttributeDefinition) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.attributeDefs = append(db.attributeDefs, def)
}

// AttributeDefinitions returns all attribute definitions in source order.
func (db *Database) AttributeDefinitions() []*AttributeDefinition {
	db.mu.RLock()
	defer db.mu.RUnlock()

	result := make([]*AttributeDefinition, len(db.attributeDefs))
	copy(result, db.attributeDefs)
	return result
}

// AttributeDefinitionByName returns the named attribute definition, or nil.
func (db *Database) AttributeDefinitionByName(name string) *AttributeDefinition {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, def := range db.attributeDefs {
		if def.Name == name {
			return def
		}
	}
	return nil
}

// SetAttribute sets a database-level attribute value.
func (db *Database) SetAttribute(name, value string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.attributes[name] = value
}

// Attributes returns the database-level attribute values.
func (db *Database) Attributes() map[string]string {
	db.mu.RLock()
	defer db.mu.RUnlock()

	result := make(map[string]string, len(db.attributes))
	for k, v := range db.attributes {
		result[k] = v
	}
	return result
}
