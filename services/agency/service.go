package agency

import (
	"context"
	"encoding/json"
	"time"

	"estatehub-marketplace/pkg/errutil"
	"estatehub-marketplace/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	node        *snowflake.Node
	agents      repository.Repository[AgencyAgent]
	permissions repository.Repository[AgentPermission]
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		node:        p.Node,
		agents:      repository.ProvideStore[AgencyAgent](p.DB),
		permissions: repository.ProvideStore[AgentPermission](p.DB),
	}
}

// GetAgentByUser returns the employment row for a user, or nil when the user
// is not an agent anywhere.
func (s *Service) GetAgentByUser(ctx context.Context, userID string) (*AgencyAgent, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	return s.agents.FindOne(ctx, &AgencyAgent{AgentID: userID})
}

type CreateAgentRequest struct {
	AgencyID       string
	AgentID        string
	AddedBy        string
	IDCardNumber   string
	RoleInAgency   string
	CommissionRate decimal.Decimal
	Permissions    map[string]bool
}

// CreateAgentWithTrx creates the employment row and its permission grant on
// the caller's transaction handle. Fails with Conflict when the user already
// has an employment row.
func (s *Service) CreateAgentWithTrx(ctx context.Context, tx *gorm.DB, req CreateAgentRequest) (*AgencyAgent, error) {
	agents := s.agents.WithTrx(tx)
	permissions := s.permissions.WithTrx(tx)

	exist, err := agents.FindOne(ctx, &AgencyAgent{AgentID: req.AgentID})
	if err != nil {
		return nil, err
	}
	if exist != nil {
		return nil, errutil.Conflict("agent already exists", nil)
	}

	agent := &AgencyAgent{
		ID:             s.node.Generate().String(),
		AgencyID:       req.AgencyID,
		AgentID:        req.AgentID,
		AddedBy:        req.AddedBy,
		IDCardNumber:   req.IDCardNumber,
		RoleInAgency:   req.RoleInAgency,
		CommissionRate: req.CommissionRate,
		Status:         AgentStatusActive,
		StartDate:      time.Now(),
	}

	if err := agents.Create(ctx, agent); err != nil {
		zap.L().Error("failed to create agency agent", zap.Error(err))
		return nil, err
	}

	flags := req.Permissions
	if flags == nil {
		flags = map[string]bool{}
	}

	raw, err := json.Marshal(flags)
	if err != nil {
		return nil, err
	}

	if err := permissions.Create(ctx, &AgentPermission{
		ID:            s.node.Generate().String(),
		AgencyAgentID: agent.ID,
		Flags:         raw,
	}); err != nil {
		zap.L().Error("failed to create agent permission", zap.Error(err))
		return nil, err
	}

	return agent, nil
}

// UpdatePermissions replaces an agent's capability flags. Only the owning
// agency may touch them.
func (s *Service) UpdatePermissions(ctx context.Context, agencyID, agentID string, flags map[string]bool) error {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	agent, err := s.agents.FindOne(ctx, &AgencyAgent{AgentID: agentID})
	if err != nil {
		return err
	}
	if agent == nil {
		return errutil.NotFound("agent not found", nil)
	}

	if agent.AgencyID != agencyID {
		return errutil.Forbidden("agent belongs to another agency", nil)
	}

	perm, err := s.permissions.FindOne(ctx, &AgentPermission{AgencyAgentID: agent.ID})
	if err != nil {
		return err
	}
	if perm == nil {
		return errutil.NotFound("agent permission not found", nil)
	}

	raw, err := json.Marshal(flags)
	if err != nil {
		return err
	}

	return s.permissions.Update(ctx, perm.ID, map[string]any{
		"flags":      raw,
		"updated_at": time.Now(),
	})
}

// GetPermissions returns the decoded flag map for one agent.
func (s *Service) GetPermissions(ctx context.Context, agencyAgentID string) (map[string]bool, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	perm, err := s.permissions.FindOne(ctx, &AgentPermission{AgencyAgentID: agencyAgentID})
	if err != nil {
		return nil, err
	}
	if perm == nil {
		return nil, errutil.NotFound("agent permission not found", nil)
	}

	flags := map[string]bool{}
	if len(perm.Flags) > 0 {
		if err := json.Unmarshal(perm.Flags, &flags); err != nil {
			return nil, err
		}
	}

	return flags, nil
}
