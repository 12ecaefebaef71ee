// Package filter compiles search criteria into an anchored, case-insensitive
// pattern over catalog definitions and applies it to a catalog index.
package filter

// Kinds with a dedicated grammar.
const (
	KindAPI         = "Api"
	KindClass       = "Class"
	KindStruct      = "Struct"
	KindInterface   = "Interface"
	KindEnumeration = "Enumeration"
	KindConstructor = "Constructor"
	KindDelegate    = "Delegate"
)

// Criteria holds the optional free-text filters. A nil field is "not
// supplied"; an empty string is supplied and matches as an empty substring.
// The text is inserted into the pattern as regular expression syntax.
type Criteria struct {
	Type      *string `json:"type,omitempty"`
	Namespace *string `json:"namespace,omitempty"`
	Parent    *string `json:"parent,omitempty"`
	Name      *string `json:"name,omitempty"`
}

// Text returns a pointer to s, for building Criteria literals.
func Text(s string) *string {
	return &s
}

// Defined reports whether any criterion is supplied.
func (c Criteria) Defined() bool {
	return c.Type != nil || c.Namespace != nil || c.Parent != nil || c.Name != nil
}
