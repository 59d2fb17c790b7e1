// Package accounts exposes account search for the tool surface.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/xylosgroup/dynamics-mcp/crm/contract"
	dynamicsx "github.com/xylosgroup/dynamics-mcp/pkg/dynamics"
)

type Account struct {
	ID      string `json:"account_id"`
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	City    string `json:"city,omitempty"`
	Country string `json:"country,omitempty"`
}

type Service struct {
	gw contractx.Gateway
}

func NewService(gw contractx.Gateway) *Service {
	return &Service{gw: gw}
}

// Search finds accounts whose name contains term, alphabetically,
// capped at maxResults. Zero matches and remote failures both yield an
// empty slice; only auth errors propagate.
func (s *Service) Search(ctx context.Context, term string, maxResults int) ([]Account, error) {
	query := dynamicsx.Query{
		Filter:  dynamicsx.Contains("name", term),
		Select:  []string{"accountid", "name", "emailaddress1", "telephone1", "address1_city", "address1_country"},
		OrderBy: "name",
		Top:     maxResults,
	}
	body, err := s.gw.Get(ctx, "accounts", query.Values())
	if err != nil {
		if errors.Is(err, dynamicsx.ErrAuth) {
			return nil, err
		}
		return []Account{}, nil
	}

	rows := dynamicsx.ValueRows(body)
	results := make([]Account, 0, len(rows))
	for _, row := range rows {
		results = append(results, Account{
			ID:      dynamicsx.StringField(row, "accountid"),
			Name:    dynamicsx.StringField(row, "name"),
			Email:   dynamicsx.StringField(row, "emailaddress1"),
			Phone:   dynamicsx.StringField(row, "telephone1"),
			City:    dynamicsx.StringField(row, "address1_city"),
			Country: dynamicsx.StringField(row, "address1_country"),
		})
	}
	log.Debug().Str("term", term).Int("count", len(results)).Msg("account search done")
	return results, nil
}

// Format renders search results as a readable report. It is total:
// any input, including nil, produces a string.
func Format(results []Account) string {
	if len(results) == 0 {
		return "No accounts found matching your search criteria."
	}

	lines := []string{fmt.Sprintf("Found %d accounts:", len(results))}
	for _, account := range results {
		var extra string
		if account.Email != "" {
			extra += " | " + account.Email
		}
		if account.Phone != "" {
			extra += " | " + account.Phone
		}
		if location := strings.TrimSpace(account.City + " " + account.Country); location != "" {
			extra += " | " + location
		}
		lines = append(lines, fmt.Sprintf("  • %s (ID: %s)%s", account.Name, account.ID, extra))
	}
	return strings.Join(lines, "\n")
}
