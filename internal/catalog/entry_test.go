package catalog

import (
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		line     string
		wantURL  string
		wantName string
	}{
		{
			name:     "two_fields",
			line:     "T_NS_Foo.htm|Foo Class (NS)",
			wantURL:  "T_NS_Foo.htm",
			wantName: "Foo Class (NS)",
		},
		{
			name:     "signature_merge",
			line:     "u|Foo.Bar Method (NS)|Bar(int x)",
			wantURL:  "u",
			wantName: "Foo.Bar(int x) Method (NS)",
		},
		{
			name:     "member_repeats_parent",
			line:     "u|Bar.Bar Method (NS)|Bar(int x)",
			wantURL:  "u",
			wantName: "Bar.Bar(int x) Method (NS)",
		},
		{
			name:     "every_occurrence_replaced",
			line:     "u|Bar Bar Method (NS)|Bar(int x)",
			wantURL:  "u",
			wantName: "Bar(int x) Bar(int x) Method (NS)",
		},
		{
			name:     "signature_without_parenthesis",
			line:     "u|Foo.Bar Method (NS)|Bar",
			wantURL:  "u",
			wantName: "Foo.Bar Method (NS)",
		},
		{
			name:     "signature_not_in_name",
			line:     "u|Foo.Baz Method (NS)|Bar(int x)",
			wantURL:  "u",
			wantName: "Foo.Baz Method (NS)",
		},
		{
			name:     "trailing_empty_field_dropped",
			line:     "u|index|",
			wantURL:  "u",
			wantName: "index",
		},
		{
			name:     "empty_url",
			line:     "|index",
			wantURL:  "",
			wantName: "index",
		},
		{
			name: "one_field",
			line: "onlyonefield",
		},
		{
			name: "too_many_fields",
			line: "a|b|c|d",
		},
		{
			name: "empty_line",
			line: "",
		},
		{
			name: "only_trailing_empties",
			line: "u||",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Parse(tt.line)
			if e.URL() != tt.wantURL {
				t.Errorf("URL: got %q, want %q", e.URL(), tt.wantURL)
			}
			if e.Name() != tt.wantName {
				t.Errorf("Name: got %q, want %q", e.Name(), tt.wantName)
			}
		})
	}
}

func TestParse_DisplayNameSegments(t *testing.T) {
	t.Parallel()

	e := Parse("u|Foo.Bar Method (NS)")
	want := "<span class='object'>Foo.Bar</span> <span class='type'>Method</span> (<span class='namespace'>NS</span>)"
	if e.DisplayName() != want {
		t.Errorf("got %q, want %q", e.DisplayName(), want)
	}
}

func TestParse_DisplayNameGenericsEscaped(t *testing.T) {
	t.Parallel()

	e := Parse("u|GenericClass1<T>.Get(T item) Method (TestAssembly)")
	if !strings.Contains(e.DisplayName(), "<span class='object'>GenericClass1&lt;T&gt;.Get(T item)</span>") {
		t.Errorf("object segment not escaped: %q", e.DisplayName())
	}
	if !strings.Contains(e.DisplayName(), "<span class='namespace'>TestAssembly</span>") {
		t.Errorf("missing namespace segment: %q", e.DisplayName())
	}
}

func TestParse_DisplayNameOpaque(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line string
		want string
	}{
		{"u|Class Library Reference", "<span class='object'>Class Library Reference</span>"},
		{"u|index", "<span class='object'>index</span>"},
		{"u|System.IO Namespace (System.IO)", "<span class='object'>System.IO Namespace (System.IO)</span>"},
	}
	for _, tt := range tests {
		if got := Parse(tt.line).DisplayName(); got != tt.want {
			t.Errorf("Parse(%q).DisplayName() = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestParse_Malformed(t *testing.T) {
	t.Parallel()

	e := Parse("onlyonefield")
	if !e.Malformed() {
		t.Fatal("expected malformed entry")
	}
	if e.URL() != "" || e.Name() != "" {
		t.Errorf("expected empty url and name, got %q / %q", e.URL(), e.Name())
	}
	if !strings.Contains(e.DisplayName(), "'onlyonefield'") {
		t.Errorf("display name does not echo the line: %q", e.DisplayName())
	}
	if !strings.Contains(e.DisplayName(), "incorrect") {
		t.Errorf("display name is not flagged as an error: %q", e.DisplayName())
	}
}

func TestParse_MalformedIsExplicit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line string
		want bool
	}{
		{"||x", false},
		{"|index", false},
		{"u||", true},
		{"", true},
		{"a|b|c|d", true},
	}
	for _, tt := range tests {
		if got := Parse(tt.line).Malformed(); got != tt.want {
			t.Errorf("Parse(%q).Malformed() = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestParse_MalformedEscapesLine(t *testing.T) {
	t.Parallel()

	e := Parse("<script>")
	if strings.Contains(e.DisplayName(), "<script>") {
		t.Errorf("raw markup leaked into display name: %q", e.DisplayName())
	}
}
