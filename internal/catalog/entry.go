package catalog

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/gomarkdown/markdown/html"
)

// definitionPattern matches the canonical definition shape
// "<parent.>name Kind (Namespace)".
var definitionPattern = regexp.MustCompile(`^([\w<>(), .]+) (\w+) \((\w+)\)$`)

// Entry is one documentation page of a catalog. Entries are values and are
// never modified once parsed.
type Entry struct {
	url         string
	name        string
	displayName string
	malformed   bool
}

// URL returns the page locator, relative to the project's html directory.
func (e Entry) URL() string { return e.url }

// Name returns the definition used for ordering and matching.
func (e Entry) Name() string { return e.name }

// DisplayName returns the pre-formatted markup of the definition.
func (e Entry) DisplayName() string { return e.displayName }

// Malformed reports whether the entry was produced from a line with an
// unexpected field count.
func (e Entry) Malformed() bool { return e.malformed }

// Parse converts one catalog line ("url|definition[|signature]") into an
// Entry. It never fails: lines with an unexpected field count produce an
// entry with an empty URL and name whose display name echoes the line.
func Parse(line string) Entry {
	fields := splitFields(line)
	switch len(fields) {
	case 2:
		return newEntry(fields[0], fields[1])
	case 3:
		return newEntry(fields[0], mergeSignature(fields[1], fields[2]))
	default:
		return Entry{displayName: malformedLabel(line), malformed: true}
	}
}

func newEntry(url, name string) Entry {
	return Entry{url: url, name: name, displayName: formatDefinition(name)}
}

// splitFields splits on '|' and drops trailing empty fields, so "u|n|" has
// two fields and "u||" only one.
func splitFields(line string) []string {
	fields := strings.Split(line, "|")
	if len(fields) == 1 {
		return fields
	}
	for len(fields) > 0 && fields[len(fields)-1] == "" {
		fields = fields[:len(fields)-1]
	}
	return fields
}

// mergeSignature substitutes the full signature for every occurrence of the
// bare member name followed by a space, turning "Foo.Bar Method (NS)" +
// "Bar(int x)" into "Foo.Bar(int x) Method (NS)".
func mergeSignature(name, signature string) string {
	member := signature
	if i := strings.Index(signature, "("); i >= 0 {
		member = signature[:i]
	}
	return strings.ReplaceAll(name, member+" ", signature+" ")
}

func formatDefinition(name string) string {
	m := definitionPattern.FindStringSubmatch(name)
	if m == nil {
		return fmt.Sprintf("<span class='object'>%s</span>", escape(name))
	}
	return fmt.Sprintf("<span class='object'>%s</span> <span class='type'>%s</span> (<span class='namespace'>%s</span>)",
		escape(m[1]), m[2], m[3])
}

func malformedLabel(line string) string {
	return fmt.Sprintf("<span class='object incorrect'>'%s'</span> <span class='type'>is not a correct documentation line (object Url|object name[|optional method signature])</span>",
		escape(line))
}

func escape(s string) string {
	var buf bytes.Buffer
	html.EscapeHTML(&buf, []byte(s))
	return buf.String()
}
