package filter

import "github.com/jcdickinson/doclink/internal/catalog"

// Apply returns the entries of idx whose name matches p, in index order.
// The result is empty, not nil, when nothing matches. Apply only reads idx.
func Apply(idx *catalog.Index, p *Pattern) []catalog.Entry {
	matched := []catalog.Entry{}
	for e := range idx.All {
		if p.MatchString(e.Name()) {
			matched = append(matched, e)
		}
	}
	return matched
}

// Select lists the whole catalog when no criterion is supplied and the
// matching entries otherwise. The returned pattern is nil when the whole
// catalog was listed.
func Select(idx *catalog.Index, c Criteria) ([]catalog.Entry, *Pattern) {
	if !c.Defined() {
		return idx.Entries(), nil
	}
	p := Compile(c)
	return Apply(idx, p), p
}
