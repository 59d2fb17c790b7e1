// Package resolver turns loosely specified human references ("the Acme
// account", "Jan Peeters") into concrete record references ahead of a
// write. Matching is deliberately simple: the alphabetically first
// record whose display name contains the term.
package resolver

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/xylosgroup/dynamics-mcp/crm/contract"
	dynamicsx "github.com/xylosgroup/dynamics-mcp/pkg/dynamics"
)

type Resolver struct {
	gw contractx.Gateway
}

func New(gw contractx.Gateway) *Resolver {
	return &Resolver{gw: gw}
}

// BestMatch returns the single best account or contact match for a
// search term, or nil when nothing matches. A miss is not an error: the
// caller omits the corresponding foreign-key binding and proceeds.
// Remote failures are treated the same way; only auth errors propagate.
func (r *Resolver) BestMatch(ctx context.Context, entityType contractx.EntityType, term string) (*contractx.EntityReference, error) {
	var nameField, idField string
	switch entityType {
	case contractx.EntityTypeAccount:
		nameField, idField = "name", "accountid"
	case contractx.EntityTypeContact:
		nameField, idField = "fullname", "contactid"
	default:
		log.Warn().Str("entity_type", string(entityType)).Msg("entity type is not resolvable by name")
		return nil, nil
	}

	term = strings.TrimSpace(term)
	if term == "" {
		return nil, nil
	}

	query := dynamicsx.Query{
		Filter:  dynamicsx.Contains(nameField, term),
		Select:  []string{idField, nameField},
		OrderBy: nameField,
		Top:     1,
	}
	body, err := r.gw.Get(ctx, entityType.EntitySet(), query.Values())
	if err != nil {
		if errors.Is(err, dynamicsx.ErrAuth) {
			return nil, err
		}
		log.Warn().Err(err).Str("entity_type", string(entityType)).Str("term", term).Msg("lookup failed, proceeding without binding")
		return nil, nil
	}

	rows := dynamicsx.ValueRows(body)
	if len(rows) == 0 {
		log.Info().Str("entity_type", string(entityType)).Str("term", term).Msg("no match for search term")
		return nil, nil
	}

	return &contractx.EntityReference{
		ID:          dynamicsx.StringField(rows[0], idField),
		DisplayName: dynamicsx.StringField(rows[0], nameField),
		Type:        entityType,
	}, nil
}
