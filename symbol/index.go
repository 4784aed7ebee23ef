package symbol

import (
	"sort"
	"strings"
	"sync"

	"github.com/latticeforge/kernel/hash"
)

// trieNode is one segment-level node of the radix trie. children is keyed by
// path segment (not by shared-byte-prefix splitting — segments are already
// the atomic unit the index reasons about, so a segment-keyed trie gives the
// same prefix-walk properties the spec needs without String-splitting
// overhead on every lookup).
type trieNode struct {
	children map[string]*trieNode
	entry    *Entry // non-nil if a symbol is indexed exactly at this node
}

func newTrieNode() *trieNode {
	return &trieNode{children: make(map[string]*trieNode)}
}

// Index is a concurrent radix-trie-indexed symbol namespace. Many readers
// may operate concurrently; writes (Insert, RemoveByParent) take an
// exclusive lock, the same reader/writer shape as the teacher's TTL cache.
type Index struct {
	mu       sync.RWMutex
	root     *trieNode
	byParent map[hash.Hash][]Ref
}

// New creates an empty Index.
func New() *Index {
	return &Index{
		root:     newTrieNode(),
		byParent: make(map[hash.Hash][]Ref),
	}
}

// DuplicateSymbolError is returned by Insert when the exact path is already indexed.
type DuplicateSymbolError struct{ Path Path }

func (e *DuplicateSymbolError) Error() string {
	return "symbol: duplicate symbol at " + quote(e.Path.String())
}

// OverlappingClaimsError is returned by Insert when the new path is an
// ancestor or descendant of an already-indexed path.
type OverlappingClaimsError struct {
	New      Path
	Existing Path
}

func (e *OverlappingClaimsError) Error() string {
	return "symbol: " + quote(e.New.String()) + " overlaps existing claim " + quote(e.Existing.String())
}

// Insert adds sym with metadata meta. It fails without modifying the index
// if the exact path already exists (DuplicateSymbolError) or if the path
// overlaps an existing entry (OverlappingClaimsError) — i.e. an existing
// entry is a proper prefix of sym.Path or vice versa.
func (idx *Index) Insert(sym Ref, meta Metadata) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if node := idx.lookupLocked(sym.Path); node != nil && node.entry != nil {
		return &DuplicateSymbolError{Path: sym.Path}
	}
	if existing, ok := idx.firstOverlapLocked(sym.Path); ok {
		return &OverlappingClaimsError{New: sym.Path, Existing: existing}
	}

	node := idx.root
	for _, seg := range sym.Path.Segments() {
		child, ok := node.children[seg]
		if !ok {
			child = newTrieNode()
			node.children[seg] = child
		}
		node = child
	}
	node.entry = &Entry{Ref: sym, Metadata: meta}
	idx.byParent[sym.ParentHash] = append(idx.byParent[sym.ParentHash], sym)
	return nil
}

func (idx *Index) lookupLocked(p Path) *trieNode {
	node := idx.root
	for _, seg := range p.Segments() {
		child, ok := node.children[seg]
		if !ok {
			return nil
		}
		node = child
	}
	return node
}

// firstOverlapLocked reports whether any existing indexed path is an
// ancestor or descendant of p, returning the first one found.
func (idx *Index) firstOverlapLocked(p Path) (Path, bool) {
	// Ancestors: walk down the trie along p's segments, checking each prefix node.
	node := idx.root
	if node.entry != nil {
		return Root, true
	}
	for _, seg := range p.Segments() {
		child, ok := node.children[seg]
		if !ok {
			break
		}
		node = child
		if node.entry != nil {
			return node.entry.Ref.Path, true
		}
	}
	// Descendants: if p itself is present, walk its subtree for any entry.
	sub := idx.lookupLocked(p)
	if sub != nil {
		if found, ok := firstEntryInSubtree(sub); ok {
			return found.Ref.Path, true
		}
	}
	return Path{}, false
}

func firstEntryInSubtree(node *trieNode) (*Entry, bool) {
	if node.entry != nil {
		return node.entry, true
	}
	for _, child := range node.children {
		if e, ok := firstEntryInSubtree(child); ok {
			return e, true
		}
	}
	return nil, false
}

// GetExact returns the entry at the exact path, if present.
func (idx *Index) GetExact(p Path) (Entry, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	node := idx.lookupLocked(p)
	if node == nil || node.entry == nil {
		return Entry{}, false
	}
	return *node.entry, true
}

// GetByPath parses text and looks it up exactly.
func (idx *Index) GetByPath(text string) (Entry, bool, error) {
	p, err := Parse(text)
	if err != nil {
		return Entry{}, false, err
	}
	e, ok := idx.GetExact(p)
	return e, ok, nil
}

// Contains reports whether p is indexed exactly.
func (idx *Index) Contains(p Path) bool {
	_, ok := idx.GetExact(p)
	return ok
}

// GetDescendants returns all entries whose path is a descendant of prefix
// (or equal to it), sorted by path text for determinism.
func (idx *Index) GetDescendants(prefix Path) []Entry {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	node := idx.lookupLocked(prefix)
	if node == nil {
		return nil
	}
	var out []Entry
	collectSubtree(node, &out)
	sortEntries(out)
	return out
}

func collectSubtree(node *trieNode, out *[]Entry) {
	if node.entry != nil {
		*out = append(*out, *node.entry)
	}
	for _, child := range node.children {
		collectSubtree(child, out)
	}
}

// GetChildren returns descendants whose depth is exactly depth(prefix)+1.
func (idx *Index) GetChildren(prefix Path) []Entry {
	all := idx.GetDescendants(prefix)
	want := prefix.Len() + 1
	out := make([]Entry, 0, len(all))
	for _, e := range all {
		if e.Ref.Path.Len() == want {
			out = append(out, e)
		}
	}
	return out
}

// FindByName linearly scans the index for entries whose last path segment equals name.
func (idx *Index) FindByName(name string) []Entry {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	var all []Entry
	collectSubtree(idx.root, &all)
	out := make([]Entry, 0)
	for _, e := range all {
		if e.Ref.Path.Last() == name {
			out = append(out, e)
		}
	}
	sortEntries(out)
	return out
}

// GetByParent returns all symbol refs currently recorded under parentHash.
func (idx *Index) GetByParent(parentHash hash.Hash) []Ref {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return append([]Ref(nil), idx.byParent[parentHash]...)
}

// RemoveByParent removes every entry whose ParentHash equals parentHash,
// returning the count removed. This is the invalidation pathway used when a
// containing artifact is rehashed.
func (idx *Index) RemoveByParent(parentHash hash.Hash) int {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	refs := idx.byParent[parentHash]
	for _, ref := range refs {
		idx.removeExactLocked(ref.Path)
	}
	delete(idx.byParent, parentHash)
	return len(refs)
}

func (idx *Index) removeExactLocked(p Path) {
	segs := p.Segments()
	idx.removeRecursive(idx.root, segs)
}

// removeRecursive clears the entry at the path denoted by segs; it does not
// prune now-empty intermediate nodes, which is harmless since lookups only
// report success when entry != nil.
func (idx *Index) removeRecursive(node *trieNode, segs []string) bool {
	if len(segs) == 0 {
		node.entry = nil
		return true
	}
	child, ok := node.children[segs[0]]
	if !ok {
		return false
	}
	return idx.removeRecursive(child, segs[1:])
}

// Len returns the number of indexed entries.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	var all []Entry
	collectSubtree(idx.root, &all)
	return len(all)
}

// IsEmpty reports whether the index has no entries.
func (idx *Index) IsEmpty() bool {
	return idx.Len() == 0
}

// HasAnyOverlap reports whether p overlaps any existing entry (ancestor or descendant).
func (idx *Index) HasAnyOverlap(p Path) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if node := idx.lookupLocked(p); node != nil && node.entry != nil {
		return true
	}
	_, ok := idx.firstOverlapLocked(p)
	return ok
}

// FindConflicts returns every indexed entry that is an ancestor of p, plus
// every indexed entry that is a descendant of p — used for diagnostics.
func (idx *Index) FindConflicts(p Path) []Entry {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var out []Entry
	// Ancestors: walk down along p's segments.
	node := idx.root
	if node.entry != nil {
		out = append(out, *node.entry)
	}
	for _, seg := range p.Segments() {
		child, ok := node.children[seg]
		if !ok {
			break
		}
		node = child
		if node.entry != nil {
			out = append(out, *node.entry)
		}
	}
	// Descendants: entries strictly below p.
	if sub := idx.lookupLocked(p); sub != nil {
		var descendants []Entry
		for _, child := range sub.children {
			collectSubtree(child, &descendants)
		}
		out = append(out, descendants...)
	}
	sortEntries(out)
	return out
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return strings.Compare(entries[i].Ref.Path.String(), entries[j].Ref.Path.String()) < 0
	})
}
