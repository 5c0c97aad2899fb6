package main

import (
	"os"
	"strconv"

	"github.com/xyproto/structio"
)

// magicNode writes only the literal "STIO" tag -- the link to the block
// table is a separate node (headerLinkNode) so that node's own begin lines
// up exactly with its one and only field, which is what BeginOf names.
type magicNode struct{}

func (magicNode) ID() string { return "magic" }
func (magicNode) Restriction() structio.LinkingRestriction {
	return structio.LinkingRestriction{Leaf: true}
}
func (magicNode) Children() []structio.Node { return nil }
func (magicNode) Write(w *structio.Writer) error {
	structio.Write[uint32](w, magicSTIO, false)
	return nil
}

// headerLinkNode writes nothing but a link to the block table; its begin is
// exactly the link field's stream position.
type headerLinkNode struct{}

func (headerLinkNode) ID() string { return "header" }
func (headerLinkNode) Restriction() structio.LinkingRestriction {
	return structio.LinkingRestriction{Leaf: true}
}
func (headerLinkNode) Children() []structio.Node { return nil }
func (headerLinkNode) Write(w *structio.Writer) error {
	structio.WriteLink[uint32](w, structio.Link{
		From: structio.BeginOf("header"),
		To:   structio.BeginOf("table"),
	})
	return nil
}

type tableNode struct {
	blocks []block
}

func (tableNode) ID() string { return "table" }
func (tableNode) Restriction() structio.LinkingRestriction {
	return structio.LinkingRestriction{}
}
func (t tableNode) Children() []structio.Node {
	children := make([]structio.Node, 0, len(t.blocks)+1)
	children = append(children, countNode{n: len(t.blocks)})
	for i, b := range t.blocks {
		children = append(children, entryNode{index: i, block: b})
	}
	return children
}
func (tableNode) Write(*structio.Writer) error { return nil }

type countNode struct{ n int }

func (countNode) ID() string { return "count" }
func (countNode) Restriction() structio.LinkingRestriction {
	return structio.LinkingRestriction{Leaf: true}
}
func (countNode) Children() []structio.Node { return nil }
func (c countNode) Write(w *structio.Writer) error {
	structio.Write[uint32](w, uint32(c.n), false)
	return nil
}

// entryNode writes a link to its name blob as its first and only pointer
// field, followed by the block's inline value. Its begin is the link
// field's own position, exactly like headerLinkNode.
type entryNode struct {
	index int
	block block
}

func (e entryNode) ID() string { return entryID(e.index) }
func (entryNode) Restriction() structio.LinkingRestriction {
	return structio.LinkingRestriction{Leaf: true}
}
func (entryNode) Children() []structio.Node { return nil }
func (e entryNode) Write(w *structio.Writer) error {
	structio.WriteLink[uint32](w, structio.Link{
		From: structio.BeginOf(entryID(e.index)),
		To:   structio.BeginOf(nameID(e.index)),
	})
	structio.Write[uint32](w, e.block.value, false)
	return nil
}

type nameNode struct {
	index int
	name  string
}

func (n nameNode) ID() string { return nameID(n.index) }
func (nameNode) Restriction() structio.LinkingRestriction {
	return structio.LinkingRestriction{Leaf: true}
}
func (nameNode) Children() []structio.Node { return nil }
func (n nameNode) Write(w *structio.Writer) error {
	for i := 0; i < len(n.name); i++ {
		structio.Write[uint8](w, n.name[i], false)
	}
	structio.Write[uint8](w, 0, false)
	return nil
}

type rootNode struct {
	blocks []block
}

func (rootNode) ID() string { return "root" }
func (rootNode) Restriction() structio.LinkingRestriction {
	return structio.LinkingRestriction{}
}
func (r rootNode) Children() []structio.Node {
	children := []structio.Node{magicNode{}, headerLinkNode{}, tableNode{blocks: r.blocks}}
	for i, b := range r.blocks {
		children = append(children, nameNode{index: i, name: b.name})
	}
	return children
}
func (rootNode) Write(*structio.Writer) error { return nil }

func entryID(i int) string { return "entry" + strconv.Itoa(i) }
func nameID(i int) string  { return "name" + strconv.Itoa(i) }

func writeArchive(path string, blocks []block) error {
	l := structio.NewLinker(warnSink)
	l.Gather(rootNode{blocks: blocks}, "")

	w := structio.NewWriter(64)
	w.SetEndian(true)
	if err := l.Write(w, false); err != nil {
		return err
	}

	if verbose {
		for _, e := range l.SymbolMap() {
			os.Stderr.WriteString("symbol " + e.Symbol + "\n")
		}
	}

	return os.WriteFile(path, w.Bytes(), 0o644)
}
