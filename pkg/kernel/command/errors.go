package command

import (
	"errors"
	"fmt"
)

// Structural errors abort compilation of a sequence.
var (
	ErrSelfAppend          = errors.New("command appended to itself")
	ErrUnmatchedTerminator = errors.New("terminator has no open branch")
	ErrUnclosedBranch      = errors.New("branch command never closed")
	ErrInterleaved         = errors.New("terminator closes a branch while an inner branch command is still open")
	ErrAlternateAfterElse  = errors.New("alternate branch after Else")
	ErrElseIfDisabled      = errors.New("ElseIf chains are disabled")
	ErrEmptySequence       = errors.New("sequence has no commands")
)

// Run errors end the current run.
var (
	ErrStaleBranch   = errors.New("branch resumed from an abandoned run; reset the sequence first")
	ErrNoSuchBranch  = errors.New("branch index out of range")
	ErrNoConditions  = errors.New("predicate has no conditions")
	ErrLoopLimit     = errors.New("loop iteration limit exceeded")
	ErrZeroStep      = errors.New("For step is zero")
	ErrNotAssignable = errors.New("assignment target is not a map")
)

// UnclosedError names the branch command that Finish found still open.
type UnclosedError struct {
	Node Command
}

func (e *UnclosedError) Error() string {
	end := "its terminator"
	if f, ok := FamilyOf(e.Node.Kind()); ok {
		end = f.End.String()
	}
	return fmt.Sprintf("%v: %s at line %d has no %s", ErrUnclosedBranch, e.Node.Kind(), e.Node.Line(), end)
}

func (e *UnclosedError) Unwrap() error { return ErrUnclosedBranch }
