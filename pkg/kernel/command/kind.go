// Package command implements the executable command graph of a mission
// sequence: leaf commands, branch containers and the branch-command
// families (If, While, For) that are assembled while a script is parsed and
// resumed tick by tick while the mission runs.
package command

import "fmt"

// Kind is the type tag of a command.
type Kind uint8

const (
	KindNoOp Kind = iota
	KindSet
	KindWait
	KindReport
	KindStop
	KindIf
	KindElseIf
	KindElse
	KindEndIf
	KindWhile
	KindEndWhile
	KindFor
	KindEndFor
)

var kindNames = [...]string{
	KindNoOp:     "NoOp",
	KindSet:      "Set",
	KindWait:     "Wait",
	KindReport:   "Report",
	KindStop:     "Stop",
	KindIf:       "If",
	KindElseIf:   "ElseIf",
	KindElse:     "Else",
	KindEndIf:    "EndIf",
	KindWhile:    "While",
	KindEndWhile: "EndWhile",
	KindFor:      "For",
	KindEndFor:   "EndFor",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// ParseKind maps a script keyword to its Kind.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return 0, false
}

// Role classifies a kind by the part it plays in branch structure.
type Role uint8

const (
	RoleLeaf Role = iota
	RoleOpener
	RoleAlternate
	RoleTerminator
)

func (r Role) String() string {
	switch r {
	case RoleLeaf:
		return "leaf"
	case RoleOpener:
		return "opener"
	case RoleAlternate:
		return "alternate"
	case RoleTerminator:
		return "terminator"
	default:
		return fmt.Sprintf("Role(%d)", uint8(r))
	}
}

// Role reports the structural role of k.
func (k Kind) Role() Role {
	switch k {
	case KindNoOp, KindSet, KindWait, KindReport, KindStop:
		return RoleLeaf
	case KindIf, KindWhile, KindFor:
		return RoleOpener
	case KindElse, KindElseIf:
		return RoleAlternate
	case KindEndIf, KindEndWhile, KindEndFor:
		return RoleTerminator
	default:
		panic(fmt.Sprintf("command: unknown kind %d", uint8(k)))
	}
}

// Family groups the kinds that open, split and close one branch command.
type Family struct {
	Name       string
	Opener     Kind
	End        Kind
	Alternates []Kind
}

var (
	IfFamily    = Family{Name: "If", Opener: KindIf, End: KindEndIf, Alternates: []Kind{KindElse, KindElseIf}}
	WhileFamily = Family{Name: "While", Opener: KindWhile, End: KindEndWhile}
	ForFamily   = Family{Name: "For", Opener: KindFor, End: KindEndFor}
)

// Families lists every branch-command family.
var Families = []Family{IfFamily, WhileFamily, ForFamily}

// IsAlternate reports whether k splits a branch of this family.
func (f Family) IsAlternate(k Kind) bool {
	for _, a := range f.Alternates {
		if a == k {
			return true
		}
	}
	return false
}

// Closes reports whether k is this family's terminator or one of its
// alternate-openers.
func (f Family) Closes(k Kind) bool {
	return k == f.End || f.IsAlternate(k)
}

// FamilyOf returns the family a non-leaf kind belongs to.
func FamilyOf(k Kind) (Family, bool) {
	for _, f := range Families {
		if k == f.Opener || f.Closes(k) {
			return f, true
		}
	}
	return Family{}, false
}
