package contract

import (
	"context"
	"net/url"
	"strings"
)

type EntityType string

const (
	EntityTypeAccount     EntityType = "account"
	EntityTypeContact     EntityType = "contact"
	EntityTypeLead        EntityType = "lead"
	EntityTypeOpportunity EntityType = "opportunity"
)

// EntitySet is the Web API's pluralized collection name.
func (t EntityType) EntitySet() string {
	name := string(t)
	if strings.HasSuffix(name, "y") {
		return name[:len(name)-1] + "ies"
	}
	return name + "s"
}

// EntityReference is a resolved pointer to a CRM record. Consumers
// treat it as read-only.
type EntityReference struct {
	ID          string     `json:"id"`
	DisplayName string     `json:"display_name"`
	Type        EntityType `json:"entity_type"`
}

// Bind renders the reference as an @odata.bind value, e.g. "/accounts(<guid>)".
func (r EntityReference) Bind() string {
	return "/" + r.Type.EntitySet() + "(" + r.ID + ")"
}

// CreateResult reports the outcome of a create operation. Message is
// always populated, for success and failure alike.
type CreateResult struct {
	Success         bool   `json:"success"`
	ID              string `json:"id,omitempty"`
	Message         string `json:"message"`
	LinkedAccountID string `json:"linked_account_id,omitempty"`
	LinkedContactID string `json:"linked_contact_id,omitempty"`
}

// Gateway is the authenticated Web API surface the domain operations
// run against. *dynamics.Client implements it; tests supply fakes.
type Gateway interface {
	Get(ctx context.Context, path string, query url.Values) (map[string]any, error)
	Create(ctx context.Context, entitySet string, payload map[string]any, idField string) (string, error)
	Patch(ctx context.Context, path string, payload map[string]any) error
}
