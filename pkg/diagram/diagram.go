// Package diagram renders a compiled mission sequence as a Mermaid
// flowchart, an ASCII outline or an indented tree.
package diagram

import (
	"fmt"
	"strings"

	"github.com/disiqueira/gotree"
	"github.com/mattn/go-runewidth"

	"github.com/ormasoftchile/missionseq/pkg/kernel/command"
)

// Format represents the output diagram format.
type Format string

const (
	FormatMermaid Format = "mermaid"
	FormatASCII   Format = "ascii"
	FormatTree    Format = "tree"
)

// Formats lists the supported formats.
var Formats = []Format{FormatMermaid, FormatASCII, FormatTree}

// Generate produces a diagram of seq. name titles the diagram.
func Generate(seq *command.Sequence, name string, format Format) (string, error) {
	if seq == nil {
		return "", fmt.Errorf("nil sequence")
	}
	if name == "" {
		name = "Mission"
	}
	blocks := build(seq, seq.Head(), command.NoNode)
	switch format {
	case FormatMermaid:
		return generateMermaid(blocks), nil
	case FormatASCII:
		return generateASCII(name, Outline(seq)), nil
	case FormatTree:
		return generateTree(name, blocks), nil
	default:
		return "", fmt.Errorf("unsupported diagram format: %s", format)
	}
}

// --- sequence model ---

// block is a command together with the bodies of its branches. Closers
// owned by the command are folded into arm labels.
type block struct {
	cmd  command.Command
	arms []arm
}

type arm struct {
	label string
	body  []block
}

func build(seq *command.Sequence, id, owner command.NodeID) []block {
	var out []block
	for ; id != command.NoNode; id = seq.Node(id).Next() {
		c := seq.Node(id)
		if cl, ok := c.(command.Closer); ok && owner != command.NoNode && cl.Owner() == owner {
			continue
		}
		b := block{cmd: c}
		if ct, ok := c.(command.Container); ok {
			for i, head := range ct.Branches() {
				b.arms = append(b.arms, arm{
					label: armLabel(seq, ct, i),
					body:  build(seq, head, c.ID()),
				})
			}
		}
		out = append(out, b)
	}
	return out
}

// armLabel names branch i of ct. An If's later branches are named by the
// alternate that closed the branch before them.
func armLabel(seq *command.Sequence, ct command.Container, i int) string {
	switch ct.Kind() {
	case command.KindWhile, command.KindFor:
		return "loop"
	}
	if i == 0 {
		return "then"
	}
	prev := ct.Branches()[i-1]
	var closer command.Command
	for id := prev; id != command.NoNode; id = seq.Node(id).Next() {
		closer = seq.Node(id)
	}
	if closer == nil {
		return "else"
	}
	if closer.Kind() == command.KindElseIf {
		return closer.Text()
	}
	return "else"
}

// --- Mermaid flowchart ---

func generateMermaid(blocks []block) string {
	var b strings.Builder
	b.WriteString("flowchart TD\n")
	b.WriteString("    START([Start]) --> " + first(blocks, "END") + "\n")
	writeMermaidChain(&b, blocks, "END")
	b.WriteString("    END([End])\n")
	return b.String()
}

func nodeID(c command.Command) string { return fmt.Sprintf("n%d", c.ID()) }

func first(blocks []block, exit string) string {
	if len(blocks) == 0 {
		return exit
	}
	return nodeID(blocks[0].cmd)
}

func writeMermaidChain(b *strings.Builder, blocks []block, exit string) {
	for i, blk := range blocks {
		succ := exit
		if i < len(blocks)-1 {
			succ = nodeID(blocks[i+1].cmd)
		}
		writeMermaidBlock(b, blk, succ)
	}
}

func writeMermaidBlock(b *strings.Builder, blk block, succ string) {
	c := blk.cmd
	id := nodeID(c)
	b.WriteString("    " + nodeDefinition(c) + "\n")

	switch c.Kind() {
	case command.KindStop:
		b.WriteString(fmt.Sprintf("    %s --> END\n", id))
		b.WriteString(fmt.Sprintf("    style %s fill:#a22,stroke:#800,color:#fff\n", id))
	case command.KindIf:
		elseArm := false
		for _, a := range blk.arms {
			b.WriteString(fmt.Sprintf("    %s -->|%q| %s\n", id, escMermaid(truncate(a.label, 30)), first(a.body, succ)))
			writeMermaidChain(b, a.body, succ)
			elseArm = elseArm || a.label == "else"
		}
		if !elseArm {
			b.WriteString(fmt.Sprintf("    %s -->|\"otherwise\"| %s\n", id, succ))
		}
	case command.KindWhile, command.KindFor:
		for _, a := range blk.arms {
			b.WriteString(fmt.Sprintf("    %s -->|%q| %s\n", id, a.label, first(a.body, id)))
			writeMermaidChain(b, a.body, id)
		}
		b.WriteString(fmt.Sprintf("    %s -->|\"done\"| %s\n", id, succ))
	default:
		b.WriteString(fmt.Sprintf("    %s --> %s\n", id, succ))
	}
}

func nodeDefinition(c command.Command) string {
	id := nodeID(c)
	text := escMermaid(c.Text())
	switch c.Kind() {
	case command.KindIf:
		return fmt.Sprintf(`%s{"%s"}`, id, text)
	case command.KindWhile, command.KindFor:
		return fmt.Sprintf(`%s{{"%s"}}`, id, text)
	case command.KindWait:
		return fmt.Sprintf(`%s(["%s"])`, id, text)
	case command.KindReport:
		return fmt.Sprintf(`%s[/"%s"/]`, id, text)
	default:
		return fmt.Sprintf(`%s["%s"]`, id, text)
	}
}

// --- ASCII ---

// Row is one line of a sequence outline.
type Row struct {
	Node  command.NodeID // NoNode for arm headings
	Depth int
	Text  string
	Line  int
}

// Outline flattens seq into display rows: one per command, plus a heading
// row per branch arm.
func Outline(seq *command.Sequence) []Row {
	var rows []Row
	var walk func(blocks []block, depth int)
	walk = func(blocks []block, depth int) {
		for _, blk := range blocks {
			c := blk.cmd
			rows = append(rows, Row{Node: c.ID(), Depth: depth, Text: icon(c.Kind()) + " " + c.Text(), Line: c.Line()})
			for _, a := range blk.arms {
				if blk.cmd.Kind() == command.KindIf {
					rows = append(rows, Row{Node: command.NoNode, Depth: depth + 1, Text: "▸ " + a.label})
					walk(a.body, depth+2)
					continue
				}
				walk(a.body, depth+1)
			}
		}
	}
	walk(build(seq, seq.Head(), command.NoNode), 0)
	return rows
}

func generateASCII(name string, rows []Row) string {
	var b strings.Builder

	const indent = "  "
	width := runewidth.StringWidth(name) + 4
	for _, r := range rows {
		if w := runewidth.StringWidth(strings.Repeat(indent, r.Depth) + r.Text); w > width {
			width = w
		}
	}

	b.WriteString("╔" + strings.Repeat("═", width) + "╗\n")
	b.WriteString("║" + centerPad(name, width) + "║\n")
	b.WriteString("╚" + strings.Repeat("═", width) + "╝\n")
	if len(rows) == 0 {
		b.WriteString(centerPad("(empty)", width+2) + "\n")
		return b.String()
	}
	for _, r := range rows {
		text := strings.Repeat(indent, r.Depth) + r.Text
		if r.Line == 0 {
			b.WriteString(" " + text + "\n")
			continue
		}
		pad := width - runewidth.StringWidth(text)
		b.WriteString(fmt.Sprintf(" %s%s  :%d\n", text, strings.Repeat(" ", pad), r.Line))
	}
	return b.String()
}

// centerPad centers s within width using spaces, based on display width.
func centerPad(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	total := width - sw
	left := total / 2
	right := total - left
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", right)
}

func icon(k command.Kind) string {
	switch k {
	case command.KindIf:
		return "◇"
	case command.KindWhile, command.KindFor:
		return "↻"
	case command.KindWait:
		return "⧗"
	case command.KindStop:
		return "■"
	case command.KindElse, command.KindElseIf, command.KindEndIf, command.KindEndWhile, command.KindEndFor:
		return "·"
	default:
		return "○"
	}
}

// --- tree ---

func generateTree(name string, blocks []block) string {
	root := gotree.New(name)
	addTree(root, blocks)
	return root.Print()
}

func addTree(parent gotree.Tree, blocks []block) {
	for _, blk := range blocks {
		node := parent.Add(blk.cmd.Text())
		for _, a := range blk.arms {
			if blk.cmd.Kind() == command.KindIf {
				addTree(node.Add(a.label), a.body)
				continue
			}
			addTree(node, a.body)
		}
	}
}

// --- string helpers ---

func escMermaid(s string) string {
	s = strings.ReplaceAll(s, `"`, "#quot;")
	s = strings.ReplaceAll(s, `'`, "#apos;")
	return s
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
