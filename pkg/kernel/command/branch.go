package command

import (
	"fmt"
	"slices"
)

// NoBranch marks a branch container whose branches are all closed, so
// appends go to the trunk after it.
const NoBranch = -1

// Container is a command that owns branches.
type Container interface {
	Command
	Branches() []NodeID
	Open() bool
	ActiveBranch() int
	BranchRunning() bool
	// Cursor is the node the active branch will execute next.
	Cursor() NodeID
}

// BranchContainer is a command with an ordered set of owned branches.
type BranchContainer struct {
	Base
	branches      []NodeID
	openBranch    int
	activeBranch  int
	branchRunning bool

	cursor NodeID
	epoch  uint64
}

func newBranchContainer(kind Kind) BranchContainer {
	return BranchContainer{
		Base:       newBase(kind),
		branches:   []NodeID{NoNode},
		openBranch: 0,
		cursor:     NoNode,
	}
}

func (bc *BranchContainer) Branches() []NodeID  { return slices.Clone(bc.branches) }
func (bc *BranchContainer) Open() bool          { return bc.openBranch != NoBranch }
func (bc *BranchContainer) OpenBranch() int     { return bc.openBranch }
func (bc *BranchContainer) ActiveBranch() int   { return bc.activeBranch }
func (bc *BranchContainer) BranchRunning() bool { return bc.branchRunning }
func (bc *BranchContainer) Cursor() NodeID      { return bc.cursor }

// Append delegates to the open branch, or to the trunk once every branch
// is closed.
func (bc *BranchContainer) Append(seq *Sequence, id NodeID) error {
	if bc.openBranch == NoBranch {
		return bc.Base.Append(seq, id)
	}
	return bc.appendBranch(seq, id, bc.openBranch)
}

func (bc *BranchContainer) appendBranch(seq *Sequence, id NodeID, which int) error {
	if id == bc.id {
		return fmt.Errorf("%w: %s at line %d", ErrSelfAppend, bc.kind, bc.line)
	}
	head := bc.branches[which]
	if head == NoNode {
		bc.branches[which] = id
		return nil
	}
	return seq.Node(head).Append(seq, id)
}

func (bc *BranchContainer) openNextBranch() {
	bc.branches = append(bc.branches, NoNode)
	bc.openBranch = len(bc.branches) - 1
}

func (bc *BranchContainer) closeBranches() {
	bc.openBranch = NoBranch
}

// openDescendant returns a still-open container sitting directly on the
// open branch, if any.
func (bc *BranchContainer) openDescendant(seq *Sequence) Command {
	for id := bc.branches[bc.openBranch]; id != NoNode; id = seq.Node(id).Next() {
		if ct, ok := seq.Node(id).(Container); ok && ct.Open() {
			return ct
		}
	}
	return nil
}

func (bc *BranchContainer) startBranch(which int, epoch uint64) {
	bc.activeBranch = which
	bc.branchRunning = true
	bc.running = true
	bc.complete = false
	bc.cursor = bc.branches[which]
	bc.epoch = epoch
}

func (bc *BranchContainer) skip() {
	bc.activeBranch = 0
	bc.complete = true
	bc.running = false
	bc.branchRunning = false
	bc.cursor = NoNode
}

// checkResume guards against resuming a branch that an earlier, abandoned
// run left running.
func (bc *BranchContainer) checkResume(rt *Runtime) error {
	if bc.epoch != rt.Seq.Epoch() {
		return fmt.Errorf("%w: %s at line %d (started in run %d, now %d)",
			ErrStaleBranch, bc.kind, bc.line, bc.epoch, rt.Seq.Epoch())
	}
	return nil
}

// ExecuteBranch runs one tick of the active branch. Once the branch has
// run off its end the call clears branchRunning, so a branch whose
// commands need N ticks is done on the N+1-th call.
func (bc *BranchContainer) ExecuteBranch(rt *Runtime, which int) (bool, error) {
	if which < 0 || which >= len(bc.branches) {
		return false, fmt.Errorf("%w: %d of %d", ErrNoSuchBranch, which, len(bc.branches))
	}
	if bc.cursor == NoNode {
		bc.branchRunning = false
		return true, nil
	}
	cmd := rt.Seq.Node(bc.cursor)
	rt.Enter(cmd)
	ok, err := cmd.Execute(rt)
	if err != nil {
		return false, fmt.Errorf("line %d: %s: %w", cmd.Line(), cmd.Kind(), err)
	}
	if !cmd.Running() {
		bc.cursor = cmd.Next()
	}
	return ok, nil
}

func (bc *BranchContainer) Reset() {
	bc.Base.Reset()
	bc.activeBranch = 0
	bc.branchRunning = false
	bc.cursor = NoNode
}

// assembly is what structure.track did with an appended command.
type assembly int

const (
	asmNone assembly = iota
	asmClosed
	asmAlternate
	asmNestedOpen
	asmNestedClose
)

// structure tracks same-family nesting while a branch command is being
// assembled, so that it can tell its own terminator from the terminator of
// a nested instance of the same family.
type structure struct {
	family    Family
	nestDepth int
}

// NestDepth is the number of same-family commands opened inside the open
// branch and not yet closed.
func (s *structure) NestDepth() int { return s.nestDepth }

// track runs after the base append of cmd. wasOpen is whether bc had an
// open branch before the append; a closed container only passes appends
// through to its trunk.
func (s *structure) track(seq *Sequence, bc *BranchContainer, wasOpen bool, cmd Command) (assembly, error) {
	if !wasOpen {
		return asmNone, nil
	}
	kind := cmd.Kind()
	result := asmNone
	if s.family.Closes(kind) {
		if s.nestDepth == 0 && bc.openBranch != NoBranch {
			if inner := bc.openDescendant(seq); inner != nil {
				return asmNone, fmt.Errorf("%w: %s at line %d inside %s at line %d",
					ErrInterleaved, kind, cmd.Line(), inner.Kind(), inner.Line())
			}
			closer, ok := cmd.(Closer)
			if !ok {
				return asmNone, fmt.Errorf("%w: %s at line %d", ErrUnmatchedTerminator, kind, cmd.Line())
			}
			closer.BindOwner(bc.id)
			if kind == s.family.End {
				bc.closeBranches()
				result = asmClosed
			} else {
				bc.openNextBranch()
				result = asmAlternate
			}
		} else if kind == s.family.End {
			s.nestDepth--
			result = asmNestedClose
		}
	}
	if kind == s.family.Opener {
		s.nestDepth++
		result = asmNestedOpen
	}
	return result, nil
}
