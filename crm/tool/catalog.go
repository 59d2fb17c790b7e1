// Package tool exposes the CRM operations as MCP tools. Every handler
// answers with text under all failure conditions; only authentication
// failures surface as tool errors, since nothing can proceed without a
// token.
package tool

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	accountsx "github.com/xylosgroup/dynamics-mcp/crm/accounts"
	contactsx "github.com/xylosgroup/dynamics-mcp/crm/contacts"
	leadsx "github.com/xylosgroup/dynamics-mcp/crm/leads"
	opportunitiesx "github.com/xylosgroup/dynamics-mcp/crm/opportunities"
)

const (
	defaultMaxResults = 20
	defaultListTop    = 100
)

type Catalog struct {
	accounts      *accountsx.Service
	contacts      *contactsx.Service
	leads         *leadsx.Service
	opportunities *opportunitiesx.Service
}

func NewCatalog(
	accounts *accountsx.Service,
	contacts *contactsx.Service,
	leads *leadsx.Service,
	opportunities *opportunitiesx.Service,
) *Catalog {
	return &Catalog{
		accounts:      accounts,
		contacts:      contacts,
		leads:         leads,
		opportunities: opportunities,
	}
}

func (c *Catalog) Register(srv *server.MCPServer) {
	srv.AddTools(c.Tools()...)
}

func (c *Catalog) Tools() []server.ServerTool {
	return []server.ServerTool{
		{
			Tool: mcp.NewTool("search_accounts",
				mcp.WithDescription("Search for accounts using partial name matching"),
				mcp.WithString("search_term", mcp.Required(), mcp.Description("Search term for account names (partial match)")),
				mcp.WithNumber("max_results", mcp.DefaultNumber(defaultMaxResults), mcp.Description("Maximum number of results to return")),
			),
			Handler: c.searchAccounts,
		},
		{
			Tool: mcp.NewTool("search_contacts",
				mcp.WithDescription("Search for contacts using partial name matching"),
				mcp.WithString("search_term", mcp.Required(), mcp.Description("Search term for contact names (partial match)")),
				mcp.WithNumber("max_results", mcp.DefaultNumber(defaultMaxResults), mcp.Description("Maximum number of results to return")),
			),
			Handler: c.searchContacts,
		},
		{
			Tool: mcp.NewTool("search_leads",
				mcp.WithDescription("Search for leads across subject, first name, and last name"),
				mcp.WithString("search_term", mcp.Required(), mcp.Description("Search term for lead names (partial match)")),
				mcp.WithNumber("max_results", mcp.DefaultNumber(defaultMaxResults), mcp.Description("Maximum number of results to return")),
			),
			Handler: c.searchLeads,
		},
		{
			Tool: mcp.NewTool("search_leads_by_date",
				mcp.WithDescription("Search for leads created within a date range"),
				mcp.WithString("start_date", mcp.Required(), mcp.Description("Start date in YYYY-MM-DD format")),
				mcp.WithString("end_date", mcp.Required(), mcp.Description("End date in YYYY-MM-DD format")),
				mcp.WithNumber("max_results", mcp.DefaultNumber(defaultMaxResults), mcp.Description("Maximum number of results to return")),
			),
			Handler: c.searchLeadsByDate,
		},
		{
			Tool: mcp.NewTool("create_lead",
				mcp.WithDescription("Create a new lead"),
				mcp.WithString("subject", mcp.Required(), mcp.Description("Lead subject/title (max 40 characters)")),
				mcp.WithString("firstname", mcp.Required(), mcp.Description("First name")),
				mcp.WithString("lastname", mcp.Required(), mcp.Description("Last name")),
				mcp.WithString("companyname", mcp.Required(), mcp.Description("Company name")),
				mcp.WithString("email", mcp.Description("Email address")),
				mcp.WithString("phone", mcp.Description("Phone number")),
				mcp.WithString("mobilephone", mcp.Description("Mobile phone number")),
				mcp.WithString("jobtitle", mcp.Description("Job title")),
				mcp.WithString("websiteurl", mcp.Description("Website URL")),
				mcp.WithString("description", mcp.Description("Lead description")),
				mcp.WithString("estimatedclosedate", mcp.Description("Estimated close date (YYYY-MM-DD)")),
				mcp.WithNumber("xylos_leadsource", mcp.Description("Lead source code")),
				mcp.WithNumber("xylos_leadratingcode", mcp.Description("Lead rating code")),
				mcp.WithString("parentaccountname", mcp.Description("Parent account name, resolved to the best-matching account")),
				mcp.WithString("parentcontactname", mcp.Description("Parent contact name, resolved to the best-matching contact")),
				mcp.WithNumber("xylos_gender", mcp.Description("Gender code")),
				mcp.WithNumber("xylos_language", mcp.Description("Language code")),
				mcp.WithString("xylos_jobdescriptionid", mcp.Description("Job description ID")),
				mcp.WithString("address1_line1", mcp.Description("Street address")),
				mcp.WithString("address1_postalcode", mcp.Description("Postal code")),
				mcp.WithString("address1_city", mcp.Description("City")),
				mcp.WithString("address1_stateorprovince", mcp.Description("State/Province")),
				mcp.WithString("address1_country", mcp.Description("Country")),
			),
			Handler: c.createLead,
		},
		{
			Tool: mcp.NewTool("create_opportunity",
				mcp.WithDescription("Create a new opportunity with flexible account/contact lookup"),
				mcp.WithString("name", mcp.Required(), mcp.Description("Name of the opportunity")),
				mcp.WithString("account_search_term", mcp.Required(), mcp.Description("Search term to find the related account")),
				mcp.WithString("contact_search_term", mcp.Required(), mcp.Description("Search term to find the related contact")),
				mcp.WithBoolean("contract_verlengingen", mcp.Required(), mcp.Description("Contract renewal flag")),
				mcp.WithString("description", mcp.Description("Description of the opportunity (max 40 characters)")),
				mcp.WithString("estimated_close_date", mcp.Description("Estimated close date (YYYY-MM-DD)")),
				mcp.WithBoolean("xylos_contractverlenging", mcp.Description("Contract extension override")),
				mcp.WithBoolean("sca_alreadyplanned", mcp.Description("Already planned flag")),
				mcp.WithBoolean("xylos_bidoffice", mcp.Description("Bid office flag")),
				mcp.WithBoolean("identifycustomercontacts", mcp.Description("Identify customer contacts flag")),
				mcp.WithNumber("opportunityratingcode", mcp.Description("Opportunity rating: 1 (Hot), 2 (Warm), 3 (Cold)")),
				mcp.WithNumber("budgetstatus", mcp.Description("Budget status: 0 (No Committed Budget), 1 (May Buy), 2 (Can Buy), 3 (Will Buy)")),
				mcp.WithNumber("xylos_opportunitytype", mcp.Description("Opportunity type code")),
				mcp.WithNumber("xylos_quotelanguage", mcp.Description("Quote language code")),
				mcp.WithNumber("xylos_opportunitysource", mcp.Description("Opportunity source code")),
				mcp.WithNumber("xylos_approach", mcp.Description("Approach code")),
				mcp.WithNumber("need", mcp.Description("Need: 0 (Must have), 1 (Should have), 2 (Good to have), 3 (No need)")),
				mcp.WithNumber("purchaseprocess", mcp.Description("Purchase process: 0 (Committee), 1 (Individual), 2 (Unknown)")),
				mcp.WithString("xylos_salesdossierteams", mcp.Description("Sales dossier teams")),
				mcp.WithString("xylos_effectivefrom", mcp.Description("Effective from date (YYYY-MM-DD)")),
				mcp.WithString("xylos_effectiveto", mcp.Description("Effective to date (YYYY-MM-DD)")),
			),
			Handler: c.createOpportunity,
		},
		{
			Tool: mcp.NewTool("get_opportunity",
				mcp.WithDescription("Retrieve an opportunity by ID"),
				mcp.WithString("opportunity_id", mcp.Required(), mcp.Description("The ID of the opportunity to retrieve")),
			),
			Handler: c.getOpportunity,
		},
		{
			Tool: mcp.NewTool("get_opportunities",
				mcp.WithDescription("List recent opportunities, newest first"),
				mcp.WithNumber("top", mcp.DefaultNumber(defaultListTop), mcp.Description("Number of recent opportunities to retrieve")),
			),
			Handler: c.getOpportunities,
		},
		{
			Tool: mcp.NewTool("search_opportunities_by_name",
				mcp.WithDescription("Search for opportunities using partial name matching"),
				mcp.WithString("search_term", mcp.Required(), mcp.Description("Term to search in opportunity names")),
				mcp.WithNumber("max_results", mcp.DefaultNumber(defaultMaxResults), mcp.Description("Maximum number of results to return")),
			),
			Handler: c.searchOpportunitiesByName,
		},
		{
			Tool: mcp.NewTool("search_opportunities_by_date",
				mcp.WithDescription("Search for opportunities created within a date range"),
				mcp.WithString("start_date", mcp.Required(), mcp.Description("Start date in YYYY-MM-DD format")),
				mcp.WithString("end_date", mcp.Required(), mcp.Description("End date in YYYY-MM-DD format")),
				mcp.WithNumber("max_results", mcp.DefaultNumber(defaultMaxResults), mcp.Description("Maximum number of results to return")),
			),
			Handler: c.searchOpportunitiesByDate,
		},
		{
			Tool: mcp.NewTool("update_opportunity",
				mcp.WithDescription("Update an existing opportunity. Field names are not validated locally; an unknown field fails remotely."),
				mcp.WithString("opportunity_id", mcp.Required(), mcp.Description("The ID of the opportunity to update")),
				mcp.WithObject("updates", mcp.Required(), mcp.Description("Mapping of field names to new values")),
			),
			Handler: c.updateOpportunity,
		},
	}
}

func (c *Catalog) searchAccounts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	term, err := req.RequireString("search_term")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := c.accounts.Search(ctx, term, req.GetInt("max_results", defaultMaxResults))
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(accountsx.Format(results)), nil
}

func (c *Catalog) searchContacts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	term, err := req.RequireString("search_term")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := c.contacts.Search(ctx, term, req.GetInt("max_results", defaultMaxResults))
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(contactsx.Format(results)), nil
}

func (c *Catalog) searchLeads(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	term, err := req.RequireString("search_term")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := c.leads.Search(ctx, term, req.GetInt("max_results", defaultMaxResults))
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(leadsx.Format(results)), nil
}

func (c *Catalog) searchLeadsByDate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, err := req.RequireString("start_date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	end, err := req.RequireString("end_date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := c.leads.SearchByDate(ctx, start, end, req.GetInt("max_results", defaultMaxResults))
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(leadsx.Format(results)), nil
}

func (c *Catalog) createLead(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	subject, err := req.RequireString("subject")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	firstName, err := req.RequireString("firstname")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lastName, err := req.RequireString("lastname")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	companyName, err := req.RequireString("companyname")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := req.GetArguments()
	in := leadsx.CreateLeadInput{
		Subject:            subject,
		FirstName:          firstName,
		LastName:           lastName,
		CompanyName:        companyName,
		Email:              req.GetString("email", ""),
		Phone:              req.GetString("phone", ""),
		MobilePhone:        req.GetString("mobilephone", ""),
		JobTitle:           req.GetString("jobtitle", ""),
		WebsiteURL:         req.GetString("websiteurl", ""),
		Description:        req.GetString("description", ""),
		EstimatedCloseDate: req.GetString("estimatedclosedate", ""),
		LeadSource:         optionalInt(args, "xylos_leadsource"),
		LeadRating:         optionalInt(args, "xylos_leadratingcode"),
		ParentAccountName:  req.GetString("parentaccountname", ""),
		ParentContactName:  req.GetString("parentcontactname", ""),
		Gender:             optionalInt(args, "xylos_gender"),
		Language:           optionalInt(args, "xylos_language"),
		JobDescriptionID:   req.GetString("xylos_jobdescriptionid", ""),
		AddressLine1:       req.GetString("address1_line1", ""),
		PostalCode:         req.GetString("address1_postalcode", ""),
		City:               req.GetString("address1_city", ""),
		StateOrProvince:    req.GetString("address1_stateorprovince", ""),
		Country:            req.GetString("address1_country", ""),
	}

	result, err := c.leads.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return mcp.NewToolResultText("Error creating lead: " + result.Message), nil
	}
	return mcp.NewToolResultText("Lead created successfully with ID: " + result.ID), nil
}

func (c *Catalog) createOpportunity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	accountTerm, err := req.RequireString("account_search_term")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	contactTerm, err := req.RequireString("contact_search_term")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	renewal, err := req.RequireBool("contract_verlengingen")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := req.GetArguments()
	in := opportunitiesx.CreateOpportunityInput{
		Name:                     name,
		ContractRenewal:          renewal,
		AccountSearchTerm:        accountTerm,
		ContactSearchTerm:        contactTerm,
		Description:              req.GetString("description", ""),
		EstimatedCloseDate:       req.GetString("estimated_close_date", ""),
		ContractRenewalOverride:  optionalBool(args, "xylos_contractverlenging"),
		AlreadyPlanned:           optionalBool(args, "sca_alreadyplanned"),
		BidOffice:                optionalBool(args, "xylos_bidoffice"),
		IdentifyCustomerContacts: optionalBool(args, "identifycustomercontacts"),
		RatingCode:               optionalInt(args, "opportunityratingcode"),
		BudgetStatus:             optionalInt(args, "budgetstatus"),
		OpportunityType:          optionalInt(args, "xylos_opportunitytype"),
		QuoteLanguage:            optionalInt(args, "xylos_quotelanguage"),
		OpportunitySource:        optionalInt(args, "xylos_opportunitysource"),
		Approach:                 optionalInt(args, "xylos_approach"),
		Need:                     optionalInt(args, "need"),
		PurchaseProcess:          optionalInt(args, "purchaseprocess"),
		SalesDossierTeams:        req.GetString("xylos_salesdossierteams", ""),
		EffectiveFrom:            req.GetString("xylos_effectivefrom", ""),
		EffectiveTo:              req.GetString("xylos_effectiveto", ""),
	}

	result, err := c.opportunities.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(opportunitiesx.FormatCreateResult(result)), nil
}

func (c *Catalog) getOpportunity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("opportunity_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	record, err := c.opportunities.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(opportunitiesx.FormatDetails(id, record)), nil
}

func (c *Catalog) getOpportunities(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records, err := c.opportunities.List(ctx, req.GetInt("top", defaultListTop))
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(opportunitiesx.FormatList(records)), nil
}

func (c *Catalog) searchOpportunitiesByName(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	term, err := req.RequireString("search_term")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	records, err := c.opportunities.SearchByName(ctx, term, req.GetInt("max_results", defaultMaxResults))
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(opportunitiesx.FormatSearch(term, records)), nil
}

func (c *Catalog) searchOpportunitiesByDate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, err := req.RequireString("start_date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	end, err := req.RequireString("end_date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	records, err := c.opportunities.SearchByDate(ctx, start, end, req.GetInt("max_results", defaultMaxResults))
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(opportunitiesx.FormatDateSearch(start, end, records)), nil
}

func (c *Catalog) updateOpportunity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("opportunity_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	updates, ok := req.GetArguments()["updates"].(map[string]any)
	if !ok || len(updates) == 0 {
		return mcp.NewToolResultError("updates must be a non-empty object of field names to new values"), nil
	}
	ok, err = c.opportunities.Update(ctx, id, updates)
	if err != nil {
		return nil, err
	}
	if !ok {
		return mcp.NewToolResultText("Failed to update opportunity '" + id + "'."), nil
	}
	return mcp.NewToolResultText("Opportunity '" + id + "' updated successfully."), nil
}

func optionalInt(args map[string]any, key string) *int {
	switch value := args[key].(type) {
	case float64:
		i := int(value)
		return &i
	case int:
		return &value
	default:
		return nil
	}
}

func optionalBool(args map[string]any, key string) *bool {
	if value, ok := args[key].(bool); ok {
		return &value
	}
	return nil
}
