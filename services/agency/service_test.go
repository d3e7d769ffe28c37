package agency

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"estatehub-marketplace/pkg/errutil"
	"estatehub-marketplace/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestService(t *testing.T) *Service {
	t.Helper()

	db := testutil.NewTestDB(t, &AgencyAgent{}, &AgentPermission{})

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(ServiceParams{DB: db, Node: node})
}

func seedAgent(t *testing.T, svc *Service, agencyID, agentID string) *AgencyAgent {
	t.Helper()

	agent, err := svc.CreateAgentWithTrx(context.Background(), nil, CreateAgentRequest{
		AgencyID:       agencyID,
		AgentID:        agentID,
		AddedBy:        "owner-1",
		IDCardNumber:   "ID-123",
		RoleInAgency:   "sales",
		CommissionRate: decimal.NewFromFloat(0.05),
		Permissions:    map[string]bool{"can_edit_own_post": true},
	})
	require.NoError(t, err)
	return agent
}

func TestCreateAgentConflict(t *testing.T) {
	svc := newTestService(t)
	seedAgent(t, svc, "agency-a", "user-1")

	_, err := svc.CreateAgentWithTrx(context.Background(), nil, CreateAgentRequest{
		AgencyID: "agency-b",
		AgentID:  "user-1",
	})
	require.Error(t, err)

	var be errutil.BaseError
	require.True(t, errors.As(err, &be))
	require.Equal(t, errutil.StatusConflict, be.Status())
}

func TestUpdatePermissions(t *testing.T) {
	svc := newTestService(t)
	agent := seedAgent(t, svc, "agency-a", "user-1")

	flags, err := svc.GetPermissions(context.Background(), agent.ID)
	require.NoError(t, err)
	require.True(t, flags["can_edit_own_post"])
	require.False(t, flags["can_approve_requests"])

	err = svc.UpdatePermissions(context.Background(), "agency-a", "user-1", map[string]bool{
		"can_edit_own_post":    true,
		"can_approve_requests": true,
	})
	require.NoError(t, err)

	flags, err = svc.GetPermissions(context.Background(), agent.ID)
	require.NoError(t, err)
	require.True(t, flags["can_approve_requests"])
}

func TestUpdatePermissionsWrongAgency(t *testing.T) {
	svc := newTestService(t)
	seedAgent(t, svc, "agency-a", "user-1")

	err := svc.UpdatePermissions(context.Background(), "agency-b", "user-1", map[string]bool{})
	require.Error(t, err)

	var be errutil.BaseError
	require.True(t, errors.As(err, &be))
	require.Equal(t, errutil.StatusForbidden, be.Status())
}

func TestUpdatePermissionsUnknownAgent(t *testing.T) {
	svc := newTestService(t)

	err := svc.UpdatePermissions(context.Background(), "agency-a", "ghost", map[string]bool{})
	require.Error(t, err)

	var be errutil.BaseError
	require.True(t, errors.As(err, &be))
	require.Equal(t, errutil.StatusNotFound, be.Status())
}
