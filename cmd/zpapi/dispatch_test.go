package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zpapi/zpapi/internal/logging"
	"github.com/zpapi/zpapi/internal/zotero"
)

// expectedActions is the fixed allow-list the CLI advertises.
var expectedActions = []string{
	"attachment",
	"children",
	"collection_items",
	"collections",
	"collections_top",
	"groups",
	"item_tags",
	"items",
	"publications",
	"saved_search",
	"searches",
	"sync",
	"tags",
	"top",
	"trash",
}

func TestActionMapComplete(t *testing.T) {
	names := actionNames()
	if len(names) != len(expectedActions) {
		t.Fatalf("actionNames() = %v, want %v", names, expectedActions)
	}
	for i, want := range expectedActions {
		if names[i] != want {
			t.Errorf("actionNames()[%d] = %q, want %q", i, names[i], want)
		}
	}
	for name, fn := range actions {
		if fn == nil {
			t.Errorf("action %q has nil handler", name)
		}
	}
}

func TestInvalidActionRejectedAtParseTime(t *testing.T) {
	rootCmd.SetArgs([]string{"--action", "bogus"})
	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("Execute() error = nil for unknown action")
	}
	if !strings.Contains(err.Error(), `invalid --action "bogus"`) {
		t.Errorf("error = %v, want invalid-action message", err)
	}
	if !strings.Contains(err.Error(), "saved_search") {
		t.Errorf("error = %v, want the valid action list", err)
	}
}

func newTestRequest(filter zotero.Params, files ...string) (*request, *bytes.Buffer) {
	var buf bytes.Buffer
	return &request{
		filter: filter,
		files:  files,
		print:  newPrinter(&buf, 2, false),
		log:    logging.NewWithWriter(&bytes.Buffer{}, 0),
	}, &buf
}

func TestSelectorActionsRequireKey(t *testing.T) {
	tests := []struct {
		action string
		key    string
	}{
		{"collection_items", "collection"},
		{"children", "item"},
		{"item_tags", "item"},
	}

	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			req, _ := newTestRequest(nil)
			// A nil client proves no API call is attempted.
			err := actions[tt.action](context.Background(), nil, req)
			if !isUsageError(err) {
				t.Fatalf("%s without key: error = %v, want usage error", tt.action, err)
			}
			if !strings.Contains(err.Error(), tt.key) {
				t.Errorf("error %q does not name the missing %q key", err, tt.key)
			}
		})
	}
}

func TestSavedSearchWithoutFiles(t *testing.T) {
	req, buf := newTestRequest(nil)
	err := runSavedSearch(context.Background(), nil, req)
	if !isUsageError(err) {
		t.Fatalf("error = %v, want usage error", err)
	}
	if !strings.Contains(err.Error(), "JSON file") {
		t.Errorf("error %q is not instructional", err)
	}
	if buf.Len() != 0 {
		t.Errorf("output written before failure: %q", buf.String())
	}
}

func TestAttachmentWithoutFiles(t *testing.T) {
	req, _ := newTestRequest(nil)
	err := runAttachment(context.Background(), nil, req)
	if !isUsageError(err) {
		t.Fatalf("error = %v, want usage error", err)
	}
}

func TestRunItemsFilterPassthrough(t *testing.T) {
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		fmt.Fprint(w, `[{"key":"AAAA1111","version":1,"data":{"title":"One"}}]`)
	}))
	defer srv.Close()

	client := zotero.NewClient(1, zotero.UserLibrary, zotero.WithBaseURL(srv.URL))
	req, buf := newTestRequest(zotero.Params{"tag": "x"})

	if err := runItems(context.Background(), client, req); err != nil {
		t.Fatalf("runItems() error = %v", err)
	}

	if got := gotQuery["tag"]; len(got) != 1 || got[0] != "x" {
		t.Errorf("tag query = %v, want [x]", got)
	}

	var out []zotero.Item
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if len(out) != 1 || out[0].Key != "AAAA1111" {
		t.Errorf("output = %+v, want the fetched item", out)
	}
}

func TestRunItemsZeroParameterForm(t *testing.T) {
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	client := zotero.NewClient(1, zotero.UserLibrary, zotero.WithBaseURL(srv.URL))
	req, _ := newTestRequest(nil)

	if err := runItems(context.Background(), client, req); err != nil {
		t.Fatalf("runItems() error = %v", err)
	}

	// Only the pagination machinery adds parameters; the filter adds none.
	for key := range gotQuery {
		if key != "format" && key != "limit" && key != "start" {
			t.Errorf("unexpected query parameter %q with empty filter", key)
		}
	}
}

func TestRunCollectionItemsUsesSelector(t *testing.T) {
	var gotPath string
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	client := zotero.NewClient(1, zotero.UserLibrary, zotero.WithBaseURL(srv.URL))
	req, _ := newTestRequest(zotero.Params{"collection": "COLL1234", "tag": "x"})

	if err := runCollectionItems(context.Background(), client, req); err != nil {
		t.Fatalf("runCollectionItems() error = %v", err)
	}

	if gotPath != "/users/1/collections/COLL1234/items" {
		t.Errorf("path = %q, want the collection items path", gotPath)
	}
	if _, ok := gotQuery["collection"]; ok {
		t.Error("selector key leaked into the query")
	}
	if got := gotQuery["tag"]; len(got) != 1 || got[0] != "x" {
		t.Errorf("tag query = %v, want remaining filter passed through", got)
	}
}

func TestRunSavedSearchCreatesPerDefinition(t *testing.T) {
	var posts [][]zotero.SearchDefinition
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var defs []zotero.SearchDefinition
		json.NewDecoder(r.Body).Decode(&defs)
		posts = append(posts, defs)
		fmt.Fprintf(w, `{"successful":{"0":{"key":"SRCH%04d"}},"unchanged":{},"failed":{}}`, len(posts))
	}))
	defer srv.Close()

	dir := t.TempDir()
	file := filepath.Join(dir, "searches.json")
	defs := `[
		{"name":"first","conditions":[{"condition":"tag","operator":"is","value":"a"}]},
		{"name":"second","conditions":[{"condition":"title","operator":"contains","value":"b"}]}
	]`
	if err := os.WriteFile(file, []byte(defs), 0644); err != nil {
		t.Fatalf("writing definitions: %v", err)
	}

	client := zotero.NewClient(1, zotero.UserLibrary, zotero.WithBaseURL(srv.URL))
	req, buf := newTestRequest(nil, file)

	if err := runSavedSearch(context.Background(), client, req); err != nil {
		t.Fatalf("runSavedSearch() error = %v", err)
	}

	if len(posts) != 2 {
		t.Fatalf("POST count = %d, want one per definition", len(posts))
	}
	if posts[0][0].Name != "first" || posts[1][0].Name != "second" {
		t.Errorf("posted definitions = %v, want first then second", posts)
	}

	out := buf.String()
	if !strings.Contains(out, `created saved search "first"`) ||
		!strings.Contains(out, `created saved search "second"`) {
		t.Errorf("missing progress lines:\n%s", out)
	}
	if !strings.Contains(out, `"created": 2`) {
		t.Errorf("missing summary:\n%s", out)
	}
}

func TestRunSyncSnapshotsLibrary(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/1/items", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"key":"AAAA1111","version":1,"data":{"title":"One"}},{"key":"BBBB2222","version":2,"data":{"title":"Two"}}]`)
	})
	mux.HandleFunc("/users/1/collections", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"key":"COLL0001","version":4,"data":{"name":"Reading"}}]`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := zotero.NewClient(1, zotero.UserLibrary, zotero.WithBaseURL(srv.URL))
	req, buf := newTestRequest(nil)
	req.cachePath = filepath.Join(t.TempDir(), "library.db")

	if err := runSync(context.Background(), client, req); err != nil {
		t.Fatalf("runSync() error = %v", err)
	}

	var summary syncSummary
	if err := json.Unmarshal(buf.Bytes(), &summary); err != nil {
		t.Fatalf("summary is not JSON: %v\n%s", err, buf.String())
	}
	if summary.Items != 2 || summary.Collections != 1 {
		t.Errorf("summary = %+v, want 2 items, 1 collection", summary)
	}
	if summary.Path != req.cachePath {
		t.Errorf("summary path = %q, want %q", summary.Path, req.cachePath)
	}
}
