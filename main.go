package main

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	accountsx "github.com/xylosgroup/dynamics-mcp/crm/accounts"
	contactsx "github.com/xylosgroup/dynamics-mcp/crm/contacts"
	leadsx "github.com/xylosgroup/dynamics-mcp/crm/leads"
	opportunitiesx "github.com/xylosgroup/dynamics-mcp/crm/opportunities"
	toolx "github.com/xylosgroup/dynamics-mcp/crm/tool"
	configx "github.com/xylosgroup/dynamics-mcp/pkg/config"
	dynamicsx "github.com/xylosgroup/dynamics-mcp/pkg/dynamics"
	_ "github.com/xylosgroup/dynamics-mcp/pkg/logger/autoload"
)

const version = "0.1.0"

func main() {
	cfg := configx.MustNew[dynamicsx.Config]("DYNAMICS")

	tokens := dynamicsx.NewTokenManager(*cfg)
	client, err := dynamicsx.NewClient(*cfg, tokens)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize dynamics client")
	}

	catalog := toolx.NewCatalog(
		accountsx.NewService(client),
		contactsx.NewService(client),
		leadsx.NewService(client),
		opportunitiesx.NewService(client),
	)

	srv := server.NewMCPServer("Dynamics 365 CRM", version)
	catalog.Register(srv)

	log.Info().Str("auth_mode", cfg.AuthMode).Str("org", cfg.OrgURL()).Msg("serving crm tools on stdio")
	if err := server.ServeStdio(srv); err != nil {
		log.Fatal().Err(err).Msg("mcp server stopped")
	}
}
