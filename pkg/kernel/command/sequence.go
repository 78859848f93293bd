package command

import "fmt"

// Sequence is the arena that owns every command of one mission sequence.
// Links between commands are NodeIDs into the arena.
type Sequence struct {
	nodes []Command
	head  NodeID
	epoch uint64
}

// NewSequence returns an empty sequence.
func NewSequence() *Sequence {
	return &Sequence{head: NoNode}
}

// Add places c in the arena without linking it.
func (s *Sequence) Add(c Command) NodeID {
	b := c.node()
	b.id = NodeID(len(s.nodes))
	s.nodes = append(s.nodes, c)
	return b.id
}

// Node returns the command for id, or nil.
func (s *Sequence) Node(id NodeID) Command {
	if id < 0 || int(id) >= len(s.nodes) {
		return nil
	}
	return s.nodes[id]
}

// Head is the first command of the trunk.
func (s *Sequence) Head() NodeID { return s.head }

// Len is the number of commands in the arena.
func (s *Sequence) Len() int { return len(s.nodes) }

// Append adds c at the current insertion point: the end of the trunk, or
// the open branch of whichever branch command is still being assembled.
func (s *Sequence) Append(c Command) error {
	id := s.Add(c)
	if s.head == NoNode {
		s.head = id
	} else if err := s.nodes[s.head].Append(s, id); err != nil {
		return err
	}
	if cl, ok := c.(Closer); ok && cl.Owner() == NoNode {
		return fmt.Errorf("%w: %s at line %d", ErrUnmatchedTerminator, c.Kind(), c.Line())
	}
	return nil
}

// Finish checks that every branch command was closed.
func (s *Sequence) Finish() error {
	if len(s.nodes) == 0 {
		return ErrEmptySequence
	}
	for _, c := range s.nodes {
		if ct, ok := c.(Container); ok && ct.Open() {
			return &UnclosedError{Node: c}
		}
	}
	return nil
}

// BeginRun starts a new run epoch. Branch commands remember the epoch in
// which they started a branch and refuse to resume one from another epoch.
func (s *Sequence) BeginRun() uint64 {
	s.epoch++
	return s.epoch
}

// Epoch is the current run epoch.
func (s *Sequence) Epoch() uint64 { return s.epoch }

// Reset clears the run state of every command. Drivers that abandon a run
// part way through must call it before running the sequence again.
func (s *Sequence) Reset() {
	for _, c := range s.nodes {
		c.Reset()
	}
}

// Walk visits every command reachable from the head, depth first, in
// script order. depth is the branch nesting level.
func (s *Sequence) Walk(fn func(c Command, depth int)) {
	s.walk(s.head, 0, fn)
}

// WalkFrom is Walk over the chain that starts at id, such as a branch.
func (s *Sequence) WalkFrom(id NodeID, fn func(c Command, depth int)) {
	s.walk(id, 0, fn)
}

func (s *Sequence) walk(id NodeID, depth int, fn func(Command, int)) {
	for ; id != NoNode; id = s.nodes[id].Next() {
		c := s.nodes[id]
		fn(c, depth)
		if ct, ok := c.(Container); ok {
			for _, head := range ct.Branches() {
				s.walk(head, depth+1, fn)
			}
		}
	}
}
