package command

import "fmt"

// NodeID addresses a command inside its Sequence.
type NodeID int

// NoNode is the empty link.
const NoNode NodeID = -1

// Command is one executable step of a mission sequence.
//
// Execute returns the command's success flag. Whether the driver should
// call Execute again or move on to Next is signalled by Running, not by the
// return value.
type Command interface {
	ID() NodeID
	Kind() Kind
	Line() int
	Label() string
	// Name is the label when one was given, otherwise Kind@line.
	Name() string
	// Text renders the command as one script line.
	Text() string
	Next() NodeID
	Append(seq *Sequence, id NodeID) error
	Execute(rt *Runtime) (bool, error)
	Running() bool
	Complete() bool
	// Reset clears run state so the command can start a fresh pass.
	Reset()

	node() *Base
}

// Closer is implemented by terminators and alternate-openers. The owner is
// a non-owning reference back to the branch command they close.
type Closer interface {
	Command
	BindOwner(id NodeID)
	Owner() NodeID
}

// Base carries the state every command shares.
type Base struct {
	id       NodeID
	kind     Kind
	next     NodeID
	line     int
	label    string
	complete bool
	running  bool
}

func newBase(kind Kind) Base {
	return Base{id: NoNode, kind: kind, next: NoNode}
}

func (b *Base) node() *Base    { return b }
func (b *Base) ID() NodeID     { return b.id }
func (b *Base) Kind() Kind     { return b.kind }
func (b *Base) Line() int      { return b.line }
func (b *Base) Label() string  { return b.label }
func (b *Base) Next() NodeID   { return b.next }
func (b *Base) Running() bool  { return b.running }
func (b *Base) Complete() bool { return b.complete }

func (b *Base) Name() string {
	if b.label != "" {
		return b.label
	}
	return fmt.Sprintf("%s@%d", b.kind, b.line)
}

// SetSource records where the command came from in the script.
func (b *Base) SetSource(line int, label string) {
	b.line = line
	b.label = label
}

// SetSource records where c came from in the script.
func SetSource(c Command, line int, label string) {
	c.node().SetSource(line, label)
}

func (b *Base) Reset() {
	b.complete = false
	b.running = false
}

// Append threads id onto the end of the chain that starts here. The call
// travels through Next with dynamic dispatch so that a branch command
// further down can route it into its open branch.
func (b *Base) Append(seq *Sequence, id NodeID) error {
	if id == b.id {
		return fmt.Errorf("%w: %s at line %d", ErrSelfAppend, b.kind, b.line)
	}
	if b.next == NoNode {
		b.next = id
		return nil
	}
	return seq.Node(b.next).Append(seq, id)
}

// keyword renders the leading keyword and optional label of a script line.
func (b *Base) keyword() string {
	if b.label == "" {
		return b.kind.String()
	}
	return fmt.Sprintf("%s '%s'", b.kind, b.label)
}

// Marker is a terminator or unconditional alternate: EndIf, Else, EndWhile,
// EndFor. Executing it does nothing.
type Marker struct {
	Base
	owner NodeID
}

// NewMarker creates a terminator or Else.
func NewMarker(kind Kind) *Marker {
	return &Marker{Base: newBase(kind), owner: NoNode}
}

func (m *Marker) BindOwner(id NodeID) { m.owner = id }
func (m *Marker) Owner() NodeID       { return m.owner }
func (m *Marker) Text() string        { return m.keyword() }

func (m *Marker) Execute(rt *Runtime) (bool, error) {
	m.complete = true
	m.running = false
	return true, nil
}

// ElseIf is a conditional alternate-opener of an If.
type ElseIf struct {
	Marker
	Predicate
}

// NewElseIf creates an ElseIf guarded by p.
func NewElseIf(p Predicate) *ElseIf {
	return &ElseIf{Marker: Marker{Base: newBase(KindElseIf), owner: NoNode}, Predicate: p}
}

func (e *ElseIf) Text() string {
	return e.keyword() + " " + e.Predicate.String()
}
