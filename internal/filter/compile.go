package filter

import (
	"fmt"
	"time"

	"github.com/dlclark/regexp2"
)

// Character classes of the definition grammar.
const (
	parentChars   = `[\w<>, ]`    // identifiers and generic arguments
	nameChars     = `[\w<>(), ]`  // plus argument lists
	delegateChars = `[\w<>(), .]` // delegate names may be nested-type qualified
)

// apiPages selects the special library pages.
const apiPages = `Class Library Reference|index`

// matchTimeout bounds a single match, since criteria are regex syntax.
const matchTimeout = time.Second

// Pattern is a compiled filter. It matches whole definitions, ignoring case.
// \w and the other shorthand classes are ASCII-only, like the display-name
// grammar of the catalog.
type Pattern struct {
	source string
	re     *regexp2.Regexp
	err    error
}

// Compile builds the pattern for c. Compile never fails: when the criteria
// text is not valid pattern syntax the returned Pattern matches nothing and
// Err reports why.
func Compile(c Criteria) *Pattern {
	p := &Pattern{source: source(c)}
	re, err := regexp2.Compile(`\A(?:`+p.source+`)\z`, regexp2.IgnoreCase|regexp2.RE2)
	if err != nil {
		p.err = fmt.Errorf("compiling filter %q: %w", p.source, err)
		return p
	}
	re.MatchTimeout = matchTimeout
	p.re = re
	return p
}

// Source returns the unanchored pattern text.
func (p *Pattern) Source() string { return p.source }

// Err returns the compilation error, if any.
func (p *Pattern) Err() error { return p.err }

// MatchString reports whether name matches the pattern in its entirety.
func (p *Pattern) MatchString(name string) bool {
	if p.re == nil {
		return false
	}
	ok, err := p.re.MatchString(name)
	return err == nil && ok
}

func source(c Criteria) string {
	namespace := namespaceFragment(c.Namespace)

	if c.Type == nil {
		return member(parentFragment(c.Parent), nameFragment(c.Name, nameChars), `\w+`, namespace)
	}

	switch kind := *c.Type; kind {
	case KindAPI:
		return apiPages
	case KindClass, KindStruct, KindInterface, KindEnumeration:
		return fmt.Sprintf(`%s %s \(%s\)`, nameFragment(c.Name, nameChars), kind, namespace)
	case KindConstructor:
		return fmt.Sprintf(`(?<parent>%s)\.\k<parent>\(%s*\) Method \(%s\)`, constructorParent(c.Parent), parentChars, namespace)
	case KindDelegate:
		return member(parentFragment(c.Parent), nameFragment(c.Name, delegateChars), kind, namespace)
	default:
		return member(parentFragment(c.Parent), nameFragment(c.Name, nameChars), kind, namespace)
	}
}

// member is the general "<parent><name> <kind> (<namespace>)" form.
func member(parent, name, kind, namespace string) string {
	return fmt.Sprintf(`%s%s %s \(%s\)`, parent, name, kind, namespace)
}

func namespaceFragment(text *string) string {
	if text == nil {
		return `\w+`
	}
	return `\w*` + *text + `\w*`
}

// parentFragment makes the separating dot mandatory only when a parent
// criterion is given.
func parentFragment(text *string) string {
	if text == nil {
		return parentChars + `*\.?`
	}
	return parentChars + `*` + *text + parentChars + `*\.`
}

// constructorParent is the parent fragment without its separator, captured
// so the member name can be required to repeat it.
func constructorParent(text *string) string {
	if text == nil {
		return parentChars + `*`
	}
	return parentChars + `*` + *text + parentChars + `*`
}

func nameFragment(text *string, chars string) string {
	if text == nil {
		return chars + `+`
	}
	return chars + `*` + *text + chars + `*`
}
