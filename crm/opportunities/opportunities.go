// Package opportunities implements opportunity create, read, search,
// and update.
package opportunities

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

const maxDescriptionLength = 40

// businessKeyField is the human-meaningful opportunity identifier
// surfaced to callers instead of the record GUID.
const businessKeyField = "xylos_opportunityid"

// CreateOpportunityInput carries the create payload. Account and
// contact search terms are resolved to bindings before the write; a
// term that matches nothing omits its binding rather than aborting.
// Standard option-set codes (rating, budget status, need, purchase
// process) are validated locally; xylos_* codes pass through.
type CreateOpportunityInput struct {
	Name              string
	ContractRenewal   bool
	AccountSearchTerm string
	ContactSearchTerm string

	Description              string
	EstimatedCloseDate       string
	ContractRenewalOverride  *bool
	AlreadyPlanned           *bool
	BidOffice                *bool
	IdentifyCustomerContacts *bool
	RatingCode               *int
	BudgetStatus             *int
	OpportunityType          *int
	QuoteLanguage            *int
	OpportunitySource        *int
	Approach                 *int
	Need                     *int
	PurchaseProcess          *int
	SalesDossierTeams        string
	EffectiveFrom            string
	EffectiveTo              string
}

type Service struct {
	gw       contractx.Gateway
	resolver *resolverx.Resolver
}

func NewService(gw contractx.Gateway) *Service {
	return &Service{gw: gw, resolver: resolverx.New(gw)}
}

// Create validates locally, resolves the account and contact
// references, and posts the opportunity. The returned ID is the
// opportunity's business key.
func (s *Service) Create(ctx context.Context, in CreateOpportunityInput) (contractx.CreateResult, error) {
	if len(in.Description) > maxDescriptionLength {
		return contractx.CreateResult{
			Message: fmt.Sprintf("Description must be %d characters or less. Current length: %d", maxDescriptionLength, len(in.Description)),
		}, nil
	}
	if msg := checkOptionSets(in); msg != "" {
		return contractx.CreateResult{Message: msg}, nil
	}

	payload := map[string]any{
		"name":                     in.Name,
		"xylos_contractverlenging": in.ContractRenewal,
	}
	setString(payload, "description", in.Description)
	setString(payload, "estimatedclosedate", in.EstimatedCloseDate)
	setString(payload, "xylos_effectivefrom", in.EffectiveFrom)
	setString(payload, "xylos_effectiveto", in.EffectiveTo)
	setBool(payload, "xylos_contractverlenging", in.ContractRenewalOverride)
	setBool(payload, "sca_alreadyplanned", in.AlreadyPlanned)
	setBool(payload, "xylos_bidoffice", in.BidOffice)
	setBool(payload, "identifycustomercontacts", in.IdentifyCustomerContacts)
	setInt(payload, "opportunityratingcode", in.RatingCode)
	setInt(payload, "budgetstatus", in.BudgetStatus)
	setInt(payload, "xylos_opportunitytype", in.OpportunityType)
	setInt(payload, "xylos_quotelanguage", in.QuoteLanguage)
	setInt(payload, "xylos_opportunitysource", in.OpportunitySource)
	setInt(payload, "xylos_approach", in.Approach)
	setInt(payload, "need", in.Need)
	setInt(payload, "purchaseprocess", in.PurchaseProcess)
	setString(payload, "xylos_salesdossierteams", in.SalesDossierTeams)

	result := contractx.CreateResult{}
	account, err := s.resolver.BestMatch(ctx, contractx.EntityTypeAccount, in.AccountSearchTerm)
	if err != nil {
		return contractx.CreateResult{}, err
	}
	if account != nil {
		payload["customerid_account@odata.bind"] = account.Bind()
		result.LinkedAccountID = account.ID
		log.Info().Str("account", account.DisplayName).Msg("linked account")
	}

	contact, err := s.resolver.BestMatch(ctx, contractx.EntityTypeContact, in.ContactSearchTerm)
	if err != nil {
		return contractx.CreateResult{}, err
	}
	if contact != nil {
		payload["parentcontactid@odata.bind"] = contact.Bind()
		result.LinkedContactID = contact.ID
		log.Info().Str("contact", contact.DisplayName).Msg("linked contact")
	}

	id, err := s.gw.Create(ctx, "opportunities", payload, businessKeyField)
	if err != nil {
		if errors.Is(err, dynamicsx.ErrAuth) {
			return contractx.CreateResult{}, err
		}
		result.Message = fmt.Sprintf("Failed to create opportunity '%s'", in.Name)
		return result, nil
	}

	result.Success = true
	result.ID = id
	result.Message = fmt.Sprintf("Opportunity '%s' created successfully", in.Name)
	return result, nil
}

// Get fetches a single opportunity by identifier, nil when not found.
func (s *Service) Get(ctx context.Context, id string) (map[string]any, error) {
	record, err := s.gw.Get(ctx, fmt.Sprintf("opportunities(%s)", id), nil)
	if err != nil {
		if errors.Is(err, dynamicsx.ErrAuth) {
			return nil, err
		}
		return nil, nil
	}
	return record, nil
}

// List returns the most recent opportunities, newest first, capped at topN.
func (s *Service) List(ctx context.Context, topN int) ([]map[string]any, error) {
	return s.collection(ctx, dynamicsx.Query{OrderBy: "createdon desc", Top: topN})
}

// SearchByName finds opportunities whose name contains term.
func (s *Service) SearchByName(ctx context.Context, term string, maxResults int) ([]map[string]any, error) {
	return s.collection(ctx, dynamicsx.Query{
		Filter: dynamicsx.Contains("name", term),
		Top:    maxResults,
	})
}

// SearchByDate returns opportunities created between start and end
// (inclusive, YYYY-MM-DD), using the same full-day boundaries as lead
// date searches. Dates are not validated locally.
func (s *Service) SearchByDate(ctx context.Context, start, end string, maxResults int) ([]map[string]any, error) {
	return s.collection(ctx, dynamicsx.Query{
		Filter: dynamicsx.And(
			dynamicsx.Ge("createdon", start+"T00:00:00Z"),
			dynamicsx.Le("createdon", end+"T23:59:59Z"),
		),
		Top: maxResults,
	})
}

// Update passes an arbitrary field/value mapping straight through to a
// PATCH. Field names are not validated locally; a bad name surfaces as
// a remote 400 and a false return.
func (s *Service) Update(ctx context.Context, id string, updates map[string]any) (bool, error) {
	err := s.gw.Patch(ctx, fmt.Sprintf("opportunities(%s)", id), updates)
	if err != nil {
		if errors.Is(err, dynamicsx.ErrAuth) {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func (s *Service) collection(ctx context.Context, query dynamicsx.Query) ([]map[string]any, error) {
	body, err := s.gw.Get(ctx, "opportunities", query.Values())
	if err != nil {
		if errors.Is(err, dynamicsx.ErrAuth) {
			return nil, err
		}
		return []map[string]any{}, nil
	}
	rows := dynamicsx.ValueRows(body)
	if rows == nil {
		rows = []map[string]any{}
	}
	return rows, nil
}

func checkOptionSets(in CreateOpportunityInput) string {
	checks := []struct {
		field string
		code  *int
	}{
		{"opportunityratingcode", in.RatingCode},
		{"budgetstatus", in.BudgetStatus},
		{"need", in.Need},
		{"purchaseprocess", in.PurchaseProcess},
	}
	for _, check := range checks {
		if check.code == nil {
			continue
		}
		if err := contractx.CheckOptionSet(check.field, *check.code); err != nil {
			return err.Error()
		}
	}
	return ""
}

// FormatDetails renders a single opportunity record.
func FormatDetails(id string, record map[string]any) string {
	if record == nil {
		return fmt.Sprintf("Opportunity with ID '%s' not found", id)
	}
	lines := []string{
		fmt.Sprintf("Opportunity Details (ID: %s):", id),
		"  • Name: " + fieldOrNA(record, "name"),
		"  • Description: " + fieldOrNA(record, "description"),
		"  • Estimated Close Date: " + fieldOrNA(record, "estimatedclosedate"),
		"  • Status: " + fieldOrNA(record, "statuscode"),
		"  • Created On: " + fieldOrNA(record, "createdon"),
	}
	return strings.Join(lines, "\n")
}

// FormatList renders the recent-opportunities report.
func FormatList(records []map[string]any) string {
	if len(records) == 0 {
		return "No opportunities found."
	}
	lines := []string{fmt.Sprintf("Top %d Recent Opportunities:", len(records))}
	return strings.Join(append(lines, summaryLines(records)...), "\n")
}

// FormatSearch renders a name-search report.
func FormatSearch(term string, records []map[string]any) string {
	if len(records) == 0 {
		return fmt.Sprintf("No opportunities found matching '%s'.", term)
	}
	lines := []string{fmt.Sprintf("Found %d opportunities matching '%s':", len(records), term)}
	return strings.Join(append(lines, summaryLines(records)...), "\n")
}

// FormatDateSearch renders a date-range search report.
func FormatDateSearch(start, end string, records []map[string]any) string {
	if len(records) == 0 {
		return fmt.Sprintf("No opportunities found between %s and %s.", start, end)
	}
	lines := []string{fmt.Sprintf("Found %d opportunities between %s and %s:", len(records), start, end)}
	return strings.Join(append(lines, summaryLines(records)...), "\n")
}

// FormatCreateResult renders a create outcome.
func FormatCreateResult(result contractx.CreateResult) string {
	if !result.Success {
		return result.Message
	}
	lines := []string{result.Message, "Opportunity ID: " + result.ID}
	if result.LinkedAccountID != "" {
		lines = append(lines, "Linked Account ID: "+result.LinkedAccountID)
	}
	if result.LinkedContactID != "" {
		lines = append(lines, "Linked Contact ID: "+result.LinkedContactID)
	}
	return strings.Join(lines, "\n")
}

func summaryLines(records []map[string]any) []string {
	lines := make([]string, 0, len(records))
	for _, record := range records {
		lines = append(lines, fmt.Sprintf("  • %s (ID: %s) - Created On: %s",
			fieldOrNA(record, "name"), fieldOrNA(record, "opportunityid"), fieldOrNA(record, "createdon")))
	}
	return lines
}

func fieldOrNA(record map[string]any, key string) string {
	value, ok := record[key]
	if !ok || value == nil {
		return "N/A"
	}
	return fmt.Sprint(value)
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

func setBool(payload map[string]any, field string, value *bool) {
	if value != nil {
		payload[field] = *value
	}
}
