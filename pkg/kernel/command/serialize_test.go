package command

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSerialize(t *testing.T) {
	seq := build(t,
		NewIf(pred(t, "a")),
		NewNoOp(),
		NewMarker(KindElse),
		NewWhile(pred(t, "b")),
		labeled(NewWait(2), "hold"),
		NewMarker(KindEndWhile),
		NewMarker(KindEndIf),
		NewStop(),
	)
	want := "If a == true\n" +
		"   NoOp\n" +
		"Else\n" +
		"   While b == true\n" +
		"      Wait 'hold' 2\n" +
		"   EndWhile\n" +
		"EndIf\n" +
		"Stop\n"
	if diff := cmp.Diff(want, Serialize(seq)); diff != "" {
		t.Errorf("Serialize mismatch (-want +got):\n%s", diff)
	}
}

func TestSequence_WalkDepth(t *testing.T) {
	seq := build(t,
		NewIf(pred(t, "a")),
		NewWhile(pred(t, "b")),
		NewNoOp(),
		NewMarker(KindEndWhile),
		NewMarker(KindEndIf),
	)
	var got []string
	seq.Walk(func(c Command, depth int) {
		got = append(got, c.Kind().String()+":"+string(rune('0'+depth)))
	})
	want := []string{"If:0", "While:1", "NoOp:2", "EndWhile:2", "EndIf:1"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Walk mismatch (-want +got):\n%s", diff)
	}
}

func TestKind_Roles(t *testing.T) {
	tests := []struct {
		kind Kind
		role Role
	}{
		{KindNoOp, RoleLeaf},
		{KindIf, RoleOpener},
		{KindElseIf, RoleAlternate},
		{KindElse, RoleAlternate},
		{KindEndWhile, RoleTerminator},
		{KindFor, RoleOpener},
	}
	for _, tt := range tests {
		if got := tt.kind.Role(); got != tt.role {
			t.Errorf("%s.Role() = %s, want %s", tt.kind, got, tt.role)
		}
		k, ok := ParseKind(tt.kind.String())
		if !ok || k != tt.kind {
			t.Errorf("ParseKind(%q) = %v, %v", tt.kind.String(), k, ok)
		}
	}
}
