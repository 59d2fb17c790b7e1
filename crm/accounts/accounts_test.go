package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	dynamicsx "github.com/xylosgroup/dynamics-mcp/pkg/dynamics"
)

type fakeGateway struct {
	lastQuery url.Values
	body      map[string]any
	err       error
}

func (f *fakeGateway) Get(ctx context.Context, path string, query url.Values) (map[string]any, error) {
	f.lastQuery = query
	return f.body, f.err
}

func (f *fakeGateway) Create(context.Context, string, map[string]any, string) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeGateway) Patch(context.Context, string, map[string]any) error {
	return errors.New("not implemented")
}

func TestSearchQueryShape(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{body: map[string]any{"value": []any{
		map[string]any{"accountid": "a-1", "name": "Acme NV", "emailaddress1": "info@acme.example"},
	}}}
	results, err := NewService(gw).Search(context.Background(), "Acme", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if got := gw.lastQuery.Get("$filter"); got != "contains(name, 'Acme')" {
		t.Fatalf("$filter = %q", got)
	}
	if got := gw.lastQuery.Get("$top"); got != "5" {
		t.Fatalf("$top = %q", got)
	}
	if got := gw.lastQuery.Get("$orderby"); got != "name" {
		t.Fatalf("$orderby = %q", got)
	}
	if len(results) != 1 || results[0].Name != "Acme NV" || results[0].Email != "info@acme.example" {
		t.Fatalf("Search() = %+v", results)
	}
}

func TestSearchRemoteFailureYieldsEmptySlice(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{err: fmt.Errorf("%w: GET accounts: status=503", dynamicsx.ErrRemoteCall)}
	results, err := NewService(gw).Search(context.Background(), "Acme", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if results == nil || len(results) != 0 {
		t.Fatalf("Search() = %#v, want empty slice", results)
	}
}

func TestSearchAuthFailurePropagates(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{err: fmt.Errorf("%w: token expired", dynamicsx.ErrAuth)}
	_, err := NewService(gw).Search(context.Background(), "Acme", 5)
	if !errors.Is(err, dynamicsx.ErrAuth) {
		t.Fatalf("Search() error = %v, want ErrAuth", err)
	}
}

func TestFormat(t *testing.T) {
	t.Parallel()

	got := Format([]Account{
		{ID: "a-1", Name: "Acme NV", Email: "info@acme.example", City: "Gent", Country: "Belgium"},
		{ID: "a-2", Name: "Acme Support"},
	})
	want := strings.Join([]string{
		"Found 2 accounts:",
		"  • Acme NV (ID: a-1) | info@acme.example | Gent Belgium",
		"  • Acme Support (ID: a-2)",
	}, "\n")
	if got != want {
		t.Fatalf("Format() = %q, want %q", got, want)
	}
}

func TestFormatEmpty(t *testing.T) {
	t.Parallel()

	if got := Format(nil); got != "No accounts found matching your search criteria." {
		t.Fatalf("Format(nil) = %q", got)
	}
}

type staticTokens struct{}

func (staticTokens) AccessToken(context.Context) (string, error) { return "tok-1", nil }

// End-to-end over a stub Web API: the server holds three matching
// accounts but honors $top, so a search capped at 2 reports exactly 2.
func TestSearchHonorsMaxResultsEndToEnd(t *testing.T) {
	t.Parallel()

	all := []map[string]any{
		{"accountid": "a-1", "name": "Acme Belgium"},
		{"accountid": "a-2", "name": "Acme Nederland"},
		{"accountid": "a-3", "name": "Acme Support"},
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		top := r.URL.Query().Get("$top")
		if top != "2" {
			t.Errorf("$top = %q, want 2", top)
		}
		body := map[string]any{"value": []any{all[0], all[1]}}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(body); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client, err := dynamicsx.NewClient(
		dynamicsx.Config{URL: server.URL, APIVersion: "v9.2", ClientID: "client-1"},
		staticTokens{},
		dynamicsx.WithReadClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	results, err := NewService(client).Search(context.Background(), "Acme", 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Search() returned %d accounts, want 2", len(results))
	}

	report := Format(results)
	if !strings.HasPrefix(report, "Found 2 accounts:") {
		t.Fatalf("report = %q", report)
	}
	if strings.Count(report, "  • ") != 2 {
		t.Fatalf("report lists %d bullets, want 2:\n%s", strings.Count(report, "  • "), report)
	}
}
