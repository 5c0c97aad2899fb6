package structio

import "fmt"

// LayoutEntry pairs a gathered node with the namespace path of its parent
// (empty for the root).
type LayoutEntry struct {
	Namespace string
	Node      Node
}

// SymbolMapEntry records where one gathered node actually landed once
// Linker.Write ran.
type SymbolMapEntry struct {
	Symbol      string
	Begin, End  uint32
	Restriction LinkingRestriction
}

// Linker performs the two-pass layout described in spec §4.6: Gather
// flattens a node tree in pre-order (inserting EndOfChildren markers),
// Write emits every node's bytes while recording where each one landed,
// and then patches every link reservation the writer collected using
// that symbol map.
type Linker struct {
	layout    []LayoutEntry
	symbolMap []SymbolMapEntry
	sink      Sink
}

// NewLinker creates an empty Linker. sink receives UnresolvedLink warnings
// from the resolve step at the end of Write; nil discards them.
func NewLinker(sink Sink) *Linker {
	if sink == nil {
		sink = DiscardSink
	}
	return &Linker{sink: sink}
}

func symbolOf(namespace, id string) string {
	if namespace == "" {
		return id
	}
	return namespace + "::" + id
}

// Gather walks root in pre-order, recording it and its descendants into
// the flat layout, under namespace (empty for the root). Non-Leaf nodes
// get a synthetic EndOfChildrenMarker appended after their children, in
// the namespace formed by their own symbol -- giving every node's "end of
// children" a concrete, addressable anchor.
func (l *Linker) Gather(root Node, namespace string) {
	l.layout = append(l.layout, LayoutEntry{Namespace: namespace, Node: root})

	childNamespace := symbolOf(namespace, root.ID())
	for _, child := range root.Children() {
		l.Gather(child, childNamespace)
	}

	if !root.Restriction().Leaf {
		l.layout = append(l.layout, LayoutEntry{
			Namespace: childNamespace,
			Node:      EndOfChildrenMarker{},
		})
	}
}

// Shuffle is an optional reordering pass over non-Static nodes. The
// design leaves it unspecified (spec §4.6, §9); this implementation
// keeps it a no-op, which trivially preserves symbol identity and
// Static/alignment constraints -- the layout order Gather produced is
// exactly the order Write emits.
func (l *Linker) Shuffle() {}

// EnforceRestrictions re-checks alignment/ordering constraints after a
// Shuffle pass. No-op alongside the no-op Shuffle above.
func (l *Linker) EnforceRestrictions() {}

// Write emits every gathered node's bytes into w in layout order, padding
// to each node's alignment first and recording its begin/end in the
// symbol map, then resolves every link reservation w collected. Passing
// doShuffle runs Shuffle/EnforceRestrictions first; it's a no-op today
// but kept as the seam a future reordering pass would hook into.
func (l *Linker) Write(w *Writer, doShuffle bool) error {
	if doShuffle {
		l.Shuffle()
		l.EnforceRestrictions()
	}

	l.symbolMap = l.symbolMap[:0]
	for _, entry := range l.layout {
		restriction := entry.Node.Restriction()
		if restriction.Alignment > 0 {
			for w.Tell()%restriction.Alignment != 0 {
				Write[uint8](w, 0, false)
			}
		}

		idx := len(l.symbolMap)
		l.symbolMap = append(l.symbolMap, SymbolMapEntry{
			Symbol:      symbolOf(entry.Namespace, entry.Node.ID()),
			Begin:       w.Tell(),
			Restriction: restriction,
		})

		w.Namespace = entry.Namespace
		w.BlockName = entry.Node.ID()
		if err := entry.Node.Write(w); err != nil {
			return fmt.Errorf("structio: writing node %q: %w", symbolOf(entry.Namespace, entry.Node.ID()), err)
		}

		l.symbolMap[idx].End = w.Tell()
	}

	return l.resolve(w)
}

// SymbolMap returns the begin/end table Write produced, for inspection
// (e.g. a demo CLI printing a layout table).
func (l *Linker) SymbolMap() []SymbolMapEntry {
	return l.symbolMap
}

func (l *Linker) symbolForNode(n Node) (string, bool) {
	for _, e := range l.layout {
		if e.Node == n {
			return symbolOf(e.Namespace, e.Node.ID()), true
		}
	}
	return "", false
}

// findSymbol resolves a bare id to a fully namespaced symbol, trying
// three scopes in order: the same namespace as the reference, the child
// namespace of the block containing the reference, and finally global --
// any gathered node whose own id equals the bare name, scanned in
// insertion order. That last rule is this implementation's resolution of
// the source's ambiguous "entry.namespace == symbol" fallback (spec §9):
// matching the node's own id, not its namespace string, is the only
// reading that lets every written node be reached globally by name.
func (l *Linker) findSymbol(id, namespace, blockName string) (string, bool) {
	local := symbolOf(namespace, id)
	for _, e := range l.layout {
		if symbolOf(e.Namespace, e.Node.ID()) == local {
			return local, true
		}
	}

	prefix := ""
	if namespace != "" {
		prefix = namespace + "::"
	}
	if blockName != "" {
		prefix += blockName + "::"
	}
	child := prefix + id
	for _, e := range l.layout {
		if symbolOf(e.Namespace, e.Node.ID()) == child {
			return child, true
		}
	}

	for _, e := range l.layout {
		if e.Node.ID() == id {
			return symbolOf(e.Namespace, e.Node.ID()), true
		}
	}

	return "", false
}

func (l *Linker) resolveHookSymbol(h Hook, namespace, blockName string) (string, bool) {
	if h.Block != nil {
		return l.symbolForNode(h.Block)
	}
	return l.findSymbol(h.ID, namespace, blockName)
}

func (l *Linker) resolvePosition(symbol string, relation RelativePosition, offset int32) (uint32, bool) {
	lookup := symbol
	if relation == RelEndOfChildren {
		lookup = symbolOf(symbol, "EndOfChildren")
	}
	for _, e := range l.symbolMap {
		if e.Symbol != lookup {
			continue
		}
		var base uint32
		switch relation {
		case RelEnd:
			base = e.End
		default: // Begin, EndOfChildren (marker's own Begin)
			base = e.Begin
		}
		return uint32(int64(base) + int64(offset)), true
	}
	return 0, false
}

// resolve patches every reservation w collected during Write. A
// reservation whose endpoints can't both be resolved is left with its
// sentinel bytes in place and reported through l.sink.
func (l *Linker) resolve(w *Writer) error {
	for _, reserve := range w.Reservations {
		failed := reserve.Link.From
		fromSym, ok := l.resolveHookSymbol(reserve.Link.From, reserve.Namespace, reserve.BlockName)
		var fromAddr, toAddr uint32
		resolved := ok
		if ok {
			fromAddr, resolved = l.resolvePosition(fromSym, reserve.Link.From.Relation, reserve.Link.From.Offset)
		}

		var toSym string
		if resolved {
			failed = reserve.Link.To
			toSym, ok = l.resolveHookSymbol(reserve.Link.To, reserve.Namespace, reserve.BlockName)
			resolved = ok
			if ok {
				toAddr, resolved = l.resolvePosition(toSym, reserve.Link.To.Relation, reserve.Link.To.Offset)
			}
		}

		if !resolved {
			name := failed.ID
			if failed.Block != nil {
				name = failed.Block.ID()
			}
			l.sink(Warning{
				Kind:    WarningUnresolvedLink,
				Message: fmt.Sprintf("cannot resolve symbol %q (%s) for link at 0x%x in block %q", name, failed.Relation, reserve.Addr, symbolOf(reserve.Namespace, reserve.BlockName)),
				Begin:   reserve.Addr,
				End:     reserve.Addr + reserve.Width,
				Fatal:   false,
			})
			continue
		}

		w.SeekSet(reserve.Addr)
		w.WriteN(reserve.Width, toAddr-fromAddr)
	}
	return nil
}
