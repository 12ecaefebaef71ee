package reference

import (
	"errors"
	"strings"
	"testing"
	"time"

	gm "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	gmparser "github.com/gomarkdown/markdown/parser"
	"github.com/jcdickinson/doclink/internal/catalog"
	"github.com/jcdickinson/doclink/internal/session"
)

func testProject(t *testing.T) *session.Project {
	t.Helper()
	idx, err := catalog.Load(strings.NewReader(
		"T_Foo.htm|Foo Class (NS)\n" +
			"M_Foo_Bar.htm|Foo.Bar Method (NS)|Bar(int x)\n" +
			"T_List.htm|List<T> Class (NS)\n",
	))
	if err != nil {
		t.Fatal(err)
	}
	return &session.Project{Root: "http://docs/a/", Index: idx, LoadedAt: time.Now()}
}

func TestBuild(t *testing.T) {
	t.Parallel()
	p := testProject(t)

	r, err := Build(p, "M_Foo_Bar.htm", "")
	if err != nil {
		t.Fatal(err)
	}
	want := Reference{
		Page: "M_Foo_Bar.htm",
		Name: "Foo.Bar(int x) Method (NS)",
		Href: "http://docs/a/html/M_Foo_Bar.htm",
		Text: "Foo.Bar(int x) Method (NS)",
	}
	if r != want {
		t.Errorf("got %+v, want %+v", r, want)
	}

	r, err = Build(p, "T_Foo.htm", "the Foo class")
	if err != nil {
		t.Fatal(err)
	}
	if r.Text != "the Foo class" {
		t.Errorf("text: got %q", r.Text)
	}
}

func TestBuild_UnknownPage(t *testing.T) {
	t.Parallel()

	_, err := Build(testProject(t), "nope.htm", "")
	if !errors.Is(err, ErrUnknownPage) {
		t.Fatalf("got %v, want ErrUnknownPage", err)
	}
}

func TestHTML_Escapes(t *testing.T) {
	t.Parallel()

	r, err := Build(testProject(t), "T_List.htm", `<b>"list"</b>`)
	if err != nil {
		t.Fatal(err)
	}
	got := r.HTML()
	if !strings.HasPrefix(got, `<a class="classLink" page="T_List.htm" name="List&lt;T&gt; Class (NS)" href="http://docs/a/html/T_List.htm"`) {
		t.Errorf("unexpected anchor: %q", got)
	}
	if !strings.HasSuffix(got, `>&lt;b&gt;&quot;list&quot;&lt;/b&gt;</a>`) {
		t.Errorf("text not escaped: %q", got)
	}
}

// markdownLink parses src and returns the destination and text of its
// first link.
func markdownLink(t *testing.T, src string) (dest, text string) {
	t.Helper()
	doc := gm.Parse([]byte(src), gmparser.NewWithExtensions(gmparser.CommonExtensions))

	found := false
	var b strings.Builder
	inLink := false
	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		switch n := node.(type) {
		case *ast.Link:
			if found && entering {
				return ast.GoToNext
			}
			inLink = entering
			if entering {
				found = true
				dest = string(n.Destination)
			}
		case *ast.Text:
			if inLink && entering {
				b.Write(n.Literal)
			}
		}
		return ast.GoToNext
	})
	if !found {
		t.Fatalf("no link in %q", src)
	}
	return dest, b.String()
}

func TestMarkdown_RoundTrip(t *testing.T) {
	t.Parallel()

	r, err := Build(testProject(t), "M_Foo_Bar.htm", "Foo.Bar Method (NS)")
	if err != nil {
		t.Fatal(err)
	}
	md := r.Markdown()
	if md != "[Foo.Bar Method (NS)](http://docs/a/html/M_Foo_Bar.htm)" {
		t.Errorf("got %q", md)
	}

	dest, text := markdownLink(t, md)
	if dest != r.Href {
		t.Errorf("destination: got %q, want %q", dest, r.Href)
	}
	if text != r.Text {
		t.Errorf("text: got %q, want %q", text, r.Text)
	}
}

func TestMarkdown_EscapesBrackets(t *testing.T) {
	t.Parallel()

	r := Reference{Href: "http://docs/a/html/x.htm", Text: "a [b] c"}
	if got := r.Markdown(); got != `[a \[b\] c](http://docs/a/html/x.htm)` {
		t.Errorf("got %q", got)
	}
	dest, _ := markdownLink(t, r.Markdown())
	if dest != r.Href {
		t.Errorf("destination: got %q", dest)
	}
}

func TestFormat(t *testing.T) {
	t.Parallel()

	r := Reference{Page: "p", Name: "n", Href: "h", Text: "t"}
	for _, f := range []string{"", "html"} {
		got, err := r.Format(f)
		if err != nil || got != r.HTML() {
			t.Errorf("Format(%q) = %q, %v", f, got, err)
		}
	}
	if got, err := r.Format("markdown"); err != nil || got != r.Markdown() {
		t.Errorf("Format(markdown) = %q, %v", got, err)
	}
	if _, err := r.Format("pdf"); err == nil {
		t.Error("expected error for unknown format")
	}
}
