package tool

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	accountsx "github.com/xylosgroup/dynamics-mcp/crm/accounts"
	contactsx "github.com/xylosgroup/dynamics-mcp/crm/contacts"
	leadsx "github.com/xylosgroup/dynamics-mcp/crm/leads"
	opportunitiesx "github.com/xylosgroup/dynamics-mcp/crm/opportunities"
	dynamicsx "github.com/xylosgroup/dynamics-mcp/pkg/dynamics"
)

type fakeGateway struct {
	getBodies map[string]map[string]any
	getErr    error

	lastGetQuery url.Values

	createID  string
	createErr error

	lastPatchPath string
	patchErr      error
}

func (f *fakeGateway) Get(ctx context.Context, path string, query url.Values) (map[string]any, error) {
	f.lastGetQuery = query
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getBodies[path], nil
}

func (f *fakeGateway) Create(ctx context.Context, entitySet string, payload map[string]any, idField string) (string, error) {
	return f.createID, f.createErr
}

func (f *fakeGateway) Patch(ctx context.Context, path string, payload map[string]any) error {
	f.lastPatchPath = path
	return f.patchErr
}

func newTestCatalog(gw *fakeGateway) *Catalog {
	return NewCatalog(
		accountsx.NewService(gw),
		contactsx.NewService(gw),
		leadsx.NewService(gw),
		opportunitiesx.NewService(gw),
	)
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatal("tool returned no content")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T, want TextContent", res.Content[0])
	}
	return text.Text
}

func TestToolsCoversAllOperations(t *testing.T) {
	t.Parallel()

	want := []string{
		"search_accounts",
		"search_contacts",
		"search_leads",
		"search_leads_by_date",
		"create_lead",
		"create_opportunity",
		"get_opportunity",
		"get_opportunities",
		"search_opportunities_by_name",
		"search_opportunities_by_date",
		"update_opportunity",
	}

	tools := newTestCatalog(&fakeGateway{}).Tools()
	if len(tools) != len(want) {
		t.Fatalf("Tools() returned %d tools, want %d", len(tools), len(want))
	}
	names := make(map[string]bool, len(tools))
	for _, tool := range tools {
		if tool.Handler == nil {
			t.Fatalf("tool %q has no handler", tool.Tool.Name)
		}
		names[tool.Tool.Name] = true
	}
	for _, name := range want {
		if !names[name] {
			t.Fatalf("Tools() missing %q", name)
		}
	}
}

func TestSearchAccountsMissingTermIsToolError(t *testing.T) {
	t.Parallel()

	c := newTestCatalog(&fakeGateway{})
	res, err := c.searchAccounts(context.Background(), callRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if !res.IsError {
		t.Fatal("missing search_term did not produce an error result")
	}
}

func TestSearchAccountsRendersReport(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{getBodies: map[string]map[string]any{
		"accounts": {"value": []any{map[string]any{"accountid": "a-1", "name": "Acme NV"}}},
	}}
	c := newTestCatalog(gw)
	res, err := c.searchAccounts(context.Background(), callRequest(map[string]any{
		"search_term": "Acme",
		"max_results": float64(5),
	}))
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if got := gw.lastGetQuery.Get("$top"); got != "5" {
		t.Fatalf("$top = %q", got)
	}
	if got := resultText(t, res); !strings.Contains(got, "Acme NV (ID: a-1)") {
		t.Fatalf("result = %q", got)
	}
}

func TestSearchAccountsDefaultsMaxResults(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{getBodies: map[string]map[string]any{"accounts": {"value": []any{}}}}
	c := newTestCatalog(gw)
	if _, err := c.searchAccounts(context.Background(), callRequest(map[string]any{"search_term": "Acme"})); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if got := gw.lastGetQuery.Get("$top"); got != "20" {
		t.Fatalf("$top = %q, want default 20", got)
	}
}

func TestAuthFailureSurfacesAsHandlerError(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{getErr: fmt.Errorf("%w: token expired", dynamicsx.ErrAuth)}
	c := newTestCatalog(gw)
	_, err := c.searchAccounts(context.Background(), callRequest(map[string]any{"search_term": "Acme"}))
	if !errors.Is(err, dynamicsx.ErrAuth) {
		t.Fatalf("handler error = %v, want ErrAuth", err)
	}
}

func TestCreateLeadReportsBusinessKey(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{createID: "LEAD-042"}
	c := newTestCatalog(gw)
	res, err := c.createLead(context.Background(), callRequest(map[string]any{
		"subject":     "New laptops",
		"firstname":   "Jan",
		"lastname":    "Peeters",
		"companyname": "Acme NV",
	}))
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if got := resultText(t, res); got != "Lead created successfully with ID: LEAD-042" {
		t.Fatalf("result = %q", got)
	}
}

func TestCreateLeadValidationFailureStaysTextual(t *testing.T) {
	t.Parallel()

	c := newTestCatalog(&fakeGateway{})
	res, err := c.createLead(context.Background(), callRequest(map[string]any{
		"subject":     strings.Repeat("x", 41),
		"firstname":   "Jan",
		"lastname":    "Peeters",
		"companyname": "Acme NV",
	}))
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	got := resultText(t, res)
	if !strings.HasPrefix(got, "Error creating lead: ") || !strings.Contains(got, "40 characters or less") {
		t.Fatalf("result = %q", got)
	}
}

func TestCreateOpportunityPassesOptionCodes(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{
		getBodies: map[string]map[string]any{
			"accounts": {"value": []any{map[string]any{"accountid": "a-1", "name": "Acme NV"}}},
			"contacts": {"value": []any{map[string]any{"contactid": "c-1", "fullname": "Jan Peeters"}}},
		},
		createID: "OPP-010",
	}
	c := newTestCatalog(gw)
	res, err := c.createOpportunity(context.Background(), callRequest(map[string]any{
		"name":                  "Cloud migration",
		"account_search_term":   "Acme",
		"contact_search_term":   "Peeters",
		"contract_verlengingen": false,
		"opportunityratingcode": float64(2),
	}))
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	got := resultText(t, res)
	for _, fragment := range []string{"created successfully", "Opportunity ID: OPP-010", "Linked Account ID: a-1", "Linked Contact ID: c-1"} {
		if !strings.Contains(got, fragment) {
			t.Fatalf("result = %q, missing %q", got, fragment)
		}
	}
}

func TestCreateOpportunityInvalidRating(t *testing.T) {
	t.Parallel()

	c := newTestCatalog(&fakeGateway{})
	res, err := c.createOpportunity(context.Background(), callRequest(map[string]any{
		"name":                  "Cloud migration",
		"account_search_term":   "Acme",
		"contact_search_term":   "Peeters",
		"contract_verlengingen": false,
		"opportunityratingcode": float64(9),
	}))
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if got := resultText(t, res); !strings.Contains(got, "1 (Hot), 2 (Warm), 3 (Cold)") {
		t.Fatalf("result = %q", got)
	}
}

func TestGetOpportunityNotFound(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{getErr: fmt.Errorf("%w: GET opportunities(missing): status=404", dynamicsx.ErrRemoteCall)}
	c := newTestCatalog(gw)
	res, err := c.getOpportunity(context.Background(), callRequest(map[string]any{"opportunity_id": "missing"}))
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if got := resultText(t, res); got != "Opportunity with ID 'missing' not found" {
		t.Fatalf("result = %q", got)
	}
}

func TestUpdateOpportunity(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{}
	c := newTestCatalog(gw)
	res, err := c.updateOpportunity(context.Background(), callRequest(map[string]any{
		"opportunity_id": "opp-1",
		"updates":        map[string]any{"name": "Renamed"},
	}))
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if got := resultText(t, res); got != "Opportunity 'opp-1' updated successfully." {
		t.Fatalf("result = %q", got)
	}
	if gw.lastPatchPath != "opportunities(opp-1)" {
		t.Fatalf("patch path = %q", gw.lastPatchPath)
	}
}

func TestUpdateOpportunityRejectsEmptyUpdates(t *testing.T) {
	t.Parallel()

	c := newTestCatalog(&fakeGateway{})
	res, err := c.updateOpportunity(context.Background(), callRequest(map[string]any{
		"opportunity_id": "opp-1",
		"updates":        map[string]any{},
	}))
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if !res.IsError {
		t.Fatal("empty updates did not produce an error result")
	}
}
