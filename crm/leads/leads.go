// Package leads implements lead search and creation.
package leads

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/xylosgroup/dynamics-mcp/crm/contract"
	resolverx "github.com/xylosgroup/dynamics-mcp/crm/resolver"
	dynamicsx "github.com/xylosgroup/dynamics-mcp/pkg/dynamics"
)

// The subject column is capped at 40 characters in the entity schema;
// checked locally so a too-long subject never costs a round trip.
const maxSubjectLength = 40

// businessKeyField is the human-meaningful lead identifier surfaced to
// callers instead of the record GUID.
const businessKeyField = "xylos_leadidentifier"

var leadSelect = []string{"leadid", "subject", "firstname", "lastname", "emailaddress1", "telephone1", "companyname", "statuscode"}

type Lead struct {
	ID          string `json:"lead_id"`
	Subject     string `json:"subject"`
	FullName    string `json:"full_name"`
	CompanyName string `json:"company_name,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Status      int    `json:"status,omitempty"`
}

// CreateLeadInput carries the create payload. Zero-valued optional
// fields are never sent, so server-side defaults apply. The xylos_*
// option-set codes are tenant metadata and pass through unvalidated.
type CreateLeadInput struct {
	Subject     string
	FirstName   string
	LastName    string
	CompanyName string

	Email              string
	Phone              string
	MobilePhone        string
	JobTitle           string
	WebsiteURL         string
	Description        string
	EstimatedCloseDate string
	LeadSource         *int
	LeadRating         *int
	ParentAccountName  string
	ParentContactName  string
	Gender             *int
	Language           *int
	JobDescriptionID   string
	AddressLine1       string
	PostalCode         string
	City               string
	StateOrProvince    string
	Country            string
}

type Service struct {
	gw       contractx.Gateway
	resolver *resolverx.Resolver
}

func NewService(gw contractx.Gateway) *Service {
	return &Service{gw: gw, resolver: resolverx.New(gw)}
}

// Search matches term against subject, first name, or last name,
// newest leads first.
func (s *Service) Search(ctx context.Context, term string, maxResults int) ([]Lead, error) {
	filter := dynamicsx.Or(
		dynamicsx.Contains("subject", term),
		dynamicsx.Contains("firstname", term),
		dynamicsx.Contains("lastname", term),
	)
	return s.search(ctx, filter, maxResults)
}

// SearchByDate returns leads created between start and end (inclusive,
// YYYY-MM-DD). The dates are not validated locally; an invalid or
// reversed range goes to the server unchanged.
func (s *Service) SearchByDate(ctx context.Context, start, end string, maxResults int) ([]Lead, error) {
	filter := dynamicsx.And(
		dynamicsx.Ge("createdon", start+"T00:00:00Z"),
		dynamicsx.Le("createdon", end+"T23:59:59Z"),
	)
	return s.search(ctx, filter, maxResults)
}

func (s *Service) search(ctx context.Context, filter string, maxResults int) ([]Lead, error) {
	query := dynamicsx.Query{
		Filter:  filter,
		Select:  leadSelect,
		OrderBy: "createdon desc",
		Top:     maxResults,
	}
	body, err := s.gw.Get(ctx, "leads", query.Values())
	if err != nil {
		if errors.Is(err, dynamicsx.ErrAuth) {
			return nil, err
		}
		return []Lead{}, nil
	}

	rows := dynamicsx.ValueRows(body)
	results := make([]Lead, 0, len(rows))
	for _, row := range rows {
		status, _ := dynamicsx.IntField(row, "statuscode")
		fullName := strings.TrimSpace(dynamicsx.StringField(row, "firstname") + " " + dynamicsx.StringField(row, "lastname"))
		results = append(results, Lead{
			ID:          dynamicsx.StringField(row, "leadid"),
			Subject:     dynamicsx.StringField(row, "subject"),
			FullName:    fullName,
			CompanyName: dynamicsx.StringField(row, "companyname"),
			Email:       dynamicsx.StringField(row, "emailaddress1"),
			Phone:       dynamicsx.StringField(row, "telephone1"),
			Status:      status,
		})
	}
	log.Debug().Int("count", len(results)).Msg("lead search done")
	return results, nil
}

// Create validates locally, resolves the optional parent account and
// contact by name (a miss omits the binding, it never aborts), and
// posts the lead. The returned ID is the lead's business key.
func (s *Service) Create(ctx context.Context, in CreateLeadInput) (contractx.CreateResult, error) {
	if len(in.Subject) > maxSubjectLength {
		return contractx.CreateResult{
			Message: fmt.Sprintf("Subject must be %d characters or less. Current length: %d", maxSubjectLength, len(in.Subject)),
		}, nil
	}

	payload := map[string]any{
		"subject":     in.Subject,
		"firstname":   in.FirstName,
		"lastname":    in.LastName,
		"companyname": in.CompanyName,
	}

	result := contractx.CreateResult{}
	if in.ParentAccountName != "" {
		account, err := s.resolver.BestMatch(ctx, contractx.EntityTypeAccount, in.ParentAccountName)
		if err != nil {
			return contractx.CreateResult{}, err
		}
		if account != nil {
			payload["parentaccountid@odata.bind"] = account.Bind()
			result.LinkedAccountID = account.ID
			log.Info().Str("account", account.DisplayName).Msg("linked account")
		}
	}
	if in.ParentContactName != "" {
		contact, err := s.resolver.BestMatch(ctx, contractx.EntityTypeContact, in.ParentContactName)
		if err != nil {
			return contractx.CreateResult{}, err
		}
		if contact != nil {
			payload["parentcontactid@odata.bind"] = contact.Bind()
			result.LinkedContactID = contact.ID
			log.Info().Str("contact", contact.DisplayName).Msg("linked contact")
		}
	}

	setString(payload, "emailaddress1", in.Email)
	setString(payload, "telephone1", in.Phone)
	setString(payload, "mobilephone", in.MobilePhone)
	setString(payload, "jobtitle", in.JobTitle)
	setString(payload, "websiteurl", in.WebsiteURL)
	setString(payload, "description", in.Description)
	setString(payload, "estimatedclosedate", in.EstimatedCloseDate)
	setInt(payload, "xylos_leadsource", in.LeadSource)
	setInt(payload, "xylos_leadratingcode", in.LeadRating)
	setInt(payload, "xylos_gender", in.Gender)
	setInt(payload, "xylos_language", in.Language)
	// Custom lookup: the navigation property name lives in tenant
	// metadata, so the raw lookup value is passed through as received.
	setString(payload, "_xylos_jobdescriptionid_value", in.JobDescriptionID)
	setString(payload, "address1_line1", in.AddressLine1)
	setString(payload, "address1_postalcode", in.PostalCode)
	setString(payload, "address1_city", in.City)
	setString(payload, "address1_stateorprovince", in.StateOrProvince)
	setString(payload, "address1_country", in.Country)

	id, err := s.gw.Create(ctx, "leads", payload, businessKeyField)
	if err != nil {
		if errors.Is(err, dynamicsx.ErrAuth) {
			return contractx.CreateResult{}, err
		}
		result.Message = fmt.Sprintf("Failed to create lead '%s'", in.Subject)
		return result, nil
	}

	result.Success = true
	result.ID = id
	result.Message = fmt.Sprintf("Lead '%s' created successfully", in.Subject)
	return result, nil
}

// Format renders search results as a readable report.
func Format(results []Lead) string {
	if len(results) == 0 {
		return "No leads found matching your search criteria."
	}

	lines := []string{fmt.Sprintf("Found %d leads:", len(results))}
	for _, lead := range results {
		var extra string
		if lead.CompanyName != "" {
			extra += " | " + lead.CompanyName
		}
		if lead.Email != "" {
			extra += " | " + lead.Email
		}
		if lead.Phone != "" {
			extra += " | " + lead.Phone
		}
		lines = append(lines, fmt.Sprintf("  • %s (%s)%s", lead.Subject, lead.FullName, extra))
		lines = append(lines, fmt.Sprintf("    ID: %s", lead.ID))
	}
	return strings.Join(lines, "\n")
}

func setString(payload map[string]any, field, value string) {
	if value != "" {
		payload[field] = value
	}
}

func setInt(payload map[string]any, field string, value *int) {
	if value != nil {
		payload[field] = *value
	}
}
