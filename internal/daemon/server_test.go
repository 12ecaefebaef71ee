package daemon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jcdickinson/doclink/internal/cache"
	"github.com/jcdickinson/doclink/internal/config"
	"github.com/jcdickinson/doclink/internal/db"
	"github.com/jcdickinson/doclink/internal/filter"
	"github.com/jcdickinson/doclink/internal/rpc"
)

const testCatalog = "T_Foo.htm|Foo Class (NS)\n" +
	"T_Bar_Foo.htm|Bar.Foo Class (NS)\n" +
	"M_Foo_ctor.htm|Foo.Foo Method (NS)|Foo()\n" +
	"M_Foo_Bar.htm|Foo.Bar Method (NS)|Bar(int x)\n" +
	"index.htm|index\n"

// testDaemon serves testCatalog under /proj/ and a daemon handler in front
// of it.
func testDaemon(t *testing.T) (*Client, string) {
	t.Helper()
	return testDaemonWithDB(t, nil)
}

func testDaemonWithDB(t *testing.T, database *db.DB) (*Client, string) {
	t.Helper()
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	docs := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/proj/index.txt" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(testCatalog))
	}))
	t.Cleanup(docs.Close)

	cfg := &config.Config{
		Fetch: config.FetchConfig{Timeout: 5 * time.Second, UserAgent: "doclink-test"},
		Cache: config.CacheConfig{OfflineFallback: true},
	}
	srv := NewServer(cfg, database, "")
	api := httptest.NewServer(srv.Handler())
	t.Cleanup(api.Close)

	return newHTTPClient(api.URL), docs.URL + "/proj"
}

func TestServer_LoadAndList(t *testing.T) {
	client, project := testDaemon(t)
	ctx := context.Background()

	loaded, err := client.Load(ctx, rpc.LoadRequest{Project: project})
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Project.Root != project+"/" || loaded.Project.Entries != 5 {
		t.Errorf("got %+v", loaded.Project)
	}

	// No project: the last loaded one is used.
	all, err := client.List(ctx, rpc.ListRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all.Entries) != 5 || all.Pattern != "" {
		t.Errorf("unfiltered list: got %d entries, pattern %q", len(all.Entries), all.Pattern)
	}

	ctors, err := client.List(ctx, rpc.ListRequest{Criteria: filter.Criteria{Type: filter.Text("Constructor")}})
	if err != nil {
		t.Fatal(err)
	}
	if len(ctors.Entries) != 1 || ctors.Entries[0].Name != "Foo.Foo() Method (NS)" {
		t.Errorf("constructors: got %+v", ctors.Entries)
	}
	if ctors.Pattern == "" {
		t.Error("expected compiled pattern in response")
	}

	none, err := client.List(ctx, rpc.ListRequest{Criteria: filter.Criteria{Type: filter.Text("Event")}})
	if err != nil {
		t.Fatal(err)
	}
	if none.Entries == nil || len(none.Entries) != 0 {
		t.Errorf("expected empty entries, got %+v", none.Entries)
	}
}

func TestServer_NoProject(t *testing.T) {
	client, _ := testDaemon(t)

	_, err := client.List(context.Background(), rpc.ListRequest{})
	if err == nil || !strings.Contains(err.Error(), "400") {
		t.Fatalf("got %v, want 400", err)
	}
}

func TestServer_UnknownProject(t *testing.T) {
	client, project := testDaemon(t)

	_, err := client.Load(context.Background(), rpc.LoadRequest{Project: project + "/missing"})
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Fatalf("got %v, want 502", err)
	}
}

func TestServer_Link(t *testing.T) {
	client, project := testDaemon(t)
	ctx := context.Background()

	resp, err := client.Link(ctx, rpc.LinkRequest{Project: project, Page: "M_Foo_Bar.htm", Format: "markdown"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Href != project+"/html/M_Foo_Bar.htm" {
		t.Errorf("href: got %q", resp.Href)
	}
	if resp.Text != "Foo.Bar(int x) Method (NS)" {
		t.Errorf("text: got %q", resp.Text)
	}
	if !strings.HasPrefix(resp.Output, "[Foo.Bar(int x) Method (NS)](") {
		t.Errorf("output: got %q", resp.Output)
	}

	_, err = client.Link(ctx, rpc.LinkRequest{Page: "nope.htm"})
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("unknown page: got %v, want 404", err)
	}

	_, err = client.Link(ctx, rpc.LinkRequest{})
	if err == nil || !strings.Contains(err.Error(), "400") {
		t.Fatalf("missing page: got %v, want 400", err)
	}
}

func TestServer_StatusAndClearCache(t *testing.T) {
	client, project := testDaemon(t)
	ctx := context.Background()

	status, err := client.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if status.Last != nil {
		t.Errorf("expected no project yet, got %+v", status.Last)
	}

	if _, err := client.Load(ctx, rpc.LoadRequest{Project: project}); err != nil {
		t.Fatal(err)
	}
	status, err = client.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if status.Last == nil || status.Last.Entries != 5 {
		t.Errorf("got %+v", status.Last)
	}

	if err := client.ClearCache(ctx); err != nil {
		t.Fatal(err)
	}
	status, err = client.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if status.Last != nil {
		t.Errorf("expected clear-cache to drop the loaded project, got %+v", status.Last)
	}
}

func TestServer_Forget(t *testing.T) {
	database, err := db.New(filepath.Join(t.TempDir(), "projects.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { database.Close() })
	client, project := testDaemonWithDB(t, database)
	ctx := context.Background()

	if _, err := client.Load(ctx, rpc.LoadRequest{Project: project}); err != nil {
		t.Fatal(err)
	}
	root := project + "/"
	if !cache.Has(root) {
		t.Fatal("expected load to cache the catalog")
	}

	resp, err := client.Forget(ctx, project)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Root != root || !resp.Registered {
		t.Errorf("got %+v", resp)
	}
	if cache.Has(root) {
		t.Error("cached catalog survived forget")
	}

	status, err := client.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if status.Last != nil || len(status.Projects) != 0 {
		t.Errorf("expected nothing known after forget, got %+v", status)
	}

	resp, err = client.Forget(ctx, project)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Registered {
		t.Error("second forget reported a registered project")
	}

	if _, err := client.Forget(ctx, ""); err == nil || !strings.Contains(err.Error(), "400") {
		t.Fatalf("missing project: got %v, want 400", err)
	}
}
