package contacts

import (
	"context"
	"errors"
	"fmt"
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
		map[string]any{"contactid": "c-1", "fullname": "Jan Peeters", "jobtitle": "CTO"},
	}}}
	results, err := NewService(gw).Search(context.Background(), "Peeters", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if got := gw.lastQuery.Get("$filter"); got != "contains(fullname, 'Peeters')" {
		t.Fatalf("$filter = %q", got)
	}
	if got := gw.lastQuery.Get("$orderby"); got != "fullname" {
		t.Fatalf("$orderby = %q", got)
	}
	if len(results) != 1 || results[0].FullName != "Jan Peeters" || results[0].JobTitle != "CTO" {
		t.Fatalf("Search() = %+v", results)
	}
}

func TestSearchRemoteFailureYieldsEmptySlice(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{err: fmt.Errorf("%w: GET contacts: status=500", dynamicsx.ErrRemoteCall)}
	results, err := NewService(gw).Search(context.Background(), "Peeters", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if results == nil || len(results) != 0 {
		t.Fatalf("Search() = %#v, want empty slice", results)
	}
}

func TestFormat(t *testing.T) {
	t.Parallel()

	got := Format([]Contact{
		{ID: "c-1", FullName: "Jan Peeters", JobTitle: "CTO", Email: "jan@acme.example"},
		{ID: "c-2", FullName: "An Peeters"},
	})
	want := strings.Join([]string{
		"Found 2 contacts:",
		"  • Jan Peeters (ID: c-1) | CTO | jan@acme.example",
		"  • An Peeters (ID: c-2)",
	}, "\n")
	if got != want {
		t.Fatalf("Format() = %q, want %q", got, want)
	}
}

func TestFormatEmpty(t *testing.T) {
	t.Parallel()

	if got := Format(nil); got != "No contacts found matching your search criteria." {
		t.Fatalf("Format(nil) = %q", got)
	}
}
