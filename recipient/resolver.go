package recipient

import (
	"context"
	"fmt"

	"github.com/richarddahl/ruleflow/logger"
	"github.com/richarddahl/ruleflow/model"
	"go.uber.org/zap"
)

// Identity is the external identity/membership service. Role and group
// membership is expanded at resolution time, never cached across executions,
// because membership can change between workflow runs.
type Identity interface {
	ResolveUser(ctx context.Context, id string) (string, error)
	ResolveRoleMembers(ctx context.Context, role string) ([]string, error)
	ResolveGroupMembers(ctx context.Context, group string) ([]string, error)
}

// Recipient is a concrete addressable delivery target.
type Recipient struct {
	Kind    model.RecipientType
	Address string
}

type Resolver struct {
	identity Identity
}

func NewResolver(identity Identity) *Resolver {
	return &Resolver{identity: identity}
}

// Resolve expands the definition's recipient specs for one action into
// concrete recipients, deduplicated by resolved address. Specs bound to a
// different action are skipped; an empty result is valid and makes the
// action a no-op.
func (r *Resolver) Resolve(ctx context.Context, definition model.WorkflowDefinition, action model.Action) ([]Recipient, error) {
	seen := make(map[string]struct{})
	recipients := make([]Recipient, 0, len(definition.Recipients))
	for _, spec := range definition.Recipients {
		if spec.ActionId != nil && *spec.ActionId != action.Id {
			continue
		}
		addresses, err := r.expand(ctx, spec)
		if err != nil {
			logger.Error("recipient resolution failed", zap.String("workflow", definition.Name),
				zap.String("recipient", spec.RecipientId), zap.String("kind", string(spec.RecipientType)), zap.Error(err))
			return nil, err
		}
		for _, addr := range addresses {
			if addr == "" {
				continue
			}
			if _, ok := seen[addr]; ok {
				continue
			}
			seen[addr] = struct{}{}
			recipients = append(recipients, Recipient{Kind: spec.RecipientType, Address: addr})
		}
	}
	return recipients, nil
}

func (r *Resolver) expand(ctx context.Context, spec model.RecipientSpec) ([]string, error) {
	switch spec.RecipientType {
	case model.RECIPIENT_TYPE_USER:
		addr, err := r.identity.ResolveUser(ctx, spec.RecipientId)
		if err != nil {
			return nil, err
		}
		return []string{addr}, nil
	case model.RECIPIENT_TYPE_ROLE:
		return r.identity.ResolveRoleMembers(ctx, spec.RecipientId)
	case model.RECIPIENT_TYPE_GROUP:
		return r.identity.ResolveGroupMembers(ctx, spec.RecipientId)
	}
	return nil, fmt.Errorf("invalid recipient type %s", spec.RecipientType)
}
