package catalog

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strings"
)

// Index is a catalog of entries kept sorted by name. Names are unique: an
// entry whose name is already present is not inserted, so the first entry
// for a name wins.
//
// An Index is not safe for concurrent mutation, but once loaded any number
// of goroutines may read it.
type Index struct {
	entries []Entry
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{}
}

// Insert adds e unless an entry with the same name exists. It reports
// whether e was inserted.
func (idx *Index) Insert(e Entry) bool {
	i, found := slices.BinarySearchFunc(idx.entries, e.name, func(have Entry, name string) int {
		return strings.Compare(have.name, name)
	})
	if found {
		return false
	}
	idx.entries = slices.Insert(idx.entries, i, e)
	return true
}

// Entries returns the entries in name order.
func (idx *Index) Entries() []Entry {
	return slices.Clone(idx.entries)
}

// All yields the entries in name order without copying.
func (idx *Index) All(yield func(Entry) bool) {
	for _, e := range idx.entries {
		if !yield(e) {
			return
		}
	}
}

// FindByURL returns the first entry, in name order, whose URL equals url.
func (idx *Index) FindByURL(url string) (Entry, bool) {
	for _, e := range idx.entries {
		if e.url == url {
			return e, true
		}
	}
	return Entry{}, false
}

// Len returns the number of entries.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Load reads a catalog, one entry per line, into a new Index. Malformed
// lines become sentinel entries; only read errors are returned.
func Load(r io.Reader) (*Index, error) {
	idx := NewIndex()
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
			idx.Insert(Parse(line))
		}
		if err == io.EOF {
			return idx, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading catalog: %w", err)
		}
	}
}
