// Package contacts exposes contact search for the tool surface.
package contacts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/xylosgroup/dynamics-mcp/crm/contract"
	dynamicsx "github.com/xylosgroup/dynamics-mcp/pkg/dynamics"
)

type Contact struct {
	ID               string `json:"contact_id"`
	FullName         string `json:"fullname"`
	Email            string `json:"email,omitempty"`
	Phone            string `json:"phone,omitempty"`
	JobTitle         string `json:"job_title,omitempty"`
	ParentCustomerID string `json:"parent_customer_id,omitempty"`
}

type Service struct {
	gw contractx.Gateway
}

func NewService(gw contractx.Gateway) *Service {
	return &Service{gw: gw}
}

// Search finds contacts whose full name contains term, alphabetically,
// capped at maxResults. Zero matches and remote failures both yield an
// empty slice; only auth errors propagate.
func (s *Service) Search(ctx context.Context, term string, maxResults int) ([]Contact, error) {
	query := dynamicsx.Query{
		Filter:  dynamicsx.Contains("fullname", term),
		Select:  []string{"contactid", "fullname", "emailaddress1", "telephone1", "jobtitle", "_parentcustomerid_value"},
		OrderBy: "fullname",
		Top:     maxResults,
	}
	body, err := s.gw.Get(ctx, "contacts", query.Values())
	if err != nil {
		if errors.Is(err, dynamicsx.ErrAuth) {
			return nil, err
		}
		return []Contact{}, nil
	}

	rows := dynamicsx.ValueRows(body)
	results := make([]Contact, 0, len(rows))
	for _, row := range rows {
		results = append(results, Contact{
			ID:               dynamicsx.StringField(row, "contactid"),
			FullName:         dynamicsx.StringField(row, "fullname"),
			Email:            dynamicsx.StringField(row, "emailaddress1"),
			Phone:            dynamicsx.StringField(row, "telephone1"),
			JobTitle:         dynamicsx.StringField(row, "jobtitle"),
			ParentCustomerID: dynamicsx.StringField(row, "_parentcustomerid_value"),
		})
	}
	log.Debug().Str("term", term).Int("count", len(results)).Msg("contact search done")
	return results, nil
}

// Format renders search results as a readable report.
func Format(results []Contact) string {
	if len(results) == 0 {
		return "No contacts found matching your search criteria."
	}

	lines := []string{fmt.Sprintf("Found %d contacts:", len(results))}
	for _, contact := range results {
		var extra string
		if contact.JobTitle != "" {
			extra += " | " + contact.JobTitle
		}
		if contact.Email != "" {
			extra += " | " + contact.Email
		}
		if contact.Phone != "" {
			extra += " | " + contact.Phone
		}
		lines = append(lines, fmt.Sprintf("  • %s (ID: %s)%s", contact.FullName, contact.ID, extra))
	}
	return strings.Join(lines, "\n")
}
