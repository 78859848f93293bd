package command

import "strings"

const indent = "   "

// Serialize reconstructs the script text of seq. Branch bodies are
// indented one level below their command; terminators and alternates are
// written at the level of the command they point back to.
func Serialize(seq *Sequence) string {
	var b strings.Builder
	writeChain(&b, seq, seq.Head(), 0, NoNode)
	return b.String()
}

func writeChain(b *strings.Builder, seq *Sequence, id NodeID, depth int, owner NodeID) {
	for ; id != NoNode; id = seq.Node(id).Next() {
		c := seq.Node(id)
		d := depth
		if cl, ok := c.(Closer); ok && owner != NoNode && cl.Owner() == owner {
			d--
		}
		b.WriteString(strings.Repeat(indent, d))
		b.WriteString(c.Text())
		b.WriteByte('\n')
		if ct, ok := c.(Container); ok {
			for _, head := range ct.Branches() {
				writeChain(b, seq, head, d+1, c.ID())
			}
		}
	}
}
