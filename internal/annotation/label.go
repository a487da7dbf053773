package annotation

import "fmt"

// Label identifies a cluster of tracks. It is either a known name or an
// anonymous identifier drawn from a per-run Allocator; the zero Label is the
// known empty name. Labels are comparable values and safe as map keys.
type Label struct {
	name string
	anon uint64
}

// Known returns the label with the given name.
func Known(name string) Label {
	return Label{name: name}
}

// IsAnonymous reports whether the label was produced by an Allocator.
func (l Label) IsAnonymous() bool { return l.anon != 0 }

// Name returns the label name; anonymous labels have none.
func (l Label) Name() string { return l.name }

// Less orders labels deterministically: known labels first,
// lexicographically by name, then anonymous labels by identifier.
func (l Label) Less(other Label) bool {
	if l.IsAnonymous() != other.IsAnonymous() {
		return !l.IsAnonymous()
	}
	if l.IsAnonymous() {
		return l.anon < other.anon
	}
	return l.name < other.name
}

func (l Label) String() string {
	if l.IsAnonymous() {
		return fmt.Sprintf("?%d", l.anon)
	}
	return l.name
}

// Allocator hands out anonymous labels. Each clustering run (or caller)
// owns its own allocator, so anonymous identifiers never leak across runs.
type Allocator struct {
	next uint64
}

// NewAllocator returns an allocator starting at identifier 1.
func NewAllocator() *Allocator { return &Allocator{} }

// Next returns a fresh anonymous label.
func (a *Allocator) Next() Label {
	a.next++
	return Label{anon: a.next}
}
