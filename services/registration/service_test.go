package registration

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"estatehub-marketplace/pkg/errutil"
	"estatehub-marketplace/services/agency"
	"estatehub-marketplace/services/notification"
	"estatehub-marketplace/services/testutil"
	"estatehub-marketplace/services/user"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type captureEnqueuer struct {
	tasks []*asynq.Task
}

func (c *captureEnqueuer) Enqueue(t *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	c.tasks = append(c.tasks, t)
	return &asynq.TaskInfo{}, nil
}

type fakeCodes struct {
	n int
}

func (f *fakeCodes) NextRegistrationCode(context.Context) (string, error) {
	f.n++
	return fmt.Sprintf("REG-TEST-%03d", f.n), nil
}

func (f *fakeCodes) NextAdvertisementCode(context.Context) (string, error) {
	f.n++
	return fmt.Sprintf("ADV-TEST-%03d", f.n), nil
}

type fakeEmails struct {
	welcome  []string
	rejected []string
	pending  []string
}

func (f *fakeEmails) SendWelcome(_ context.Context, email, _ string) error {
	f.welcome = append(f.welcome, email)
	return nil
}

func (f *fakeEmails) SendRejected(_ context.Context, email, _, _ string) error {
	f.rejected = append(f.rejected, email)
	return nil
}

func (f *fakeEmails) SendPendingApproval(_ context.Context, email, _ string) error {
	f.pending = append(f.pending, email)
	return nil
}

type harness struct {
	db       *gorm.DB
	svc      *Service
	users    *user.Service
	agencies *agency.Service
	emails   *fakeEmails
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db := testutil.NewTestDB(t,
		&user.User{},
		&RegistrationRequest{},
		&agency.AgencyAgent{},
		&agency.AgentPermission{},
		&notification.Notification{},
	)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	emails := &fakeEmails{}

	users := user.NewService(user.ServiceParams{DB: db, Node: node})
	agencies := agency.NewService(agency.ServiceParams{DB: db, Node: node})
	notifications := notification.NewService(notification.ServiceParams{
		DB:       db,
		Node:     node,
		Enqueuer: &captureEnqueuer{},
		Sender:   notification.NewLogSender(),
	})

	svc := NewService(ServiceParams{
		DB:            db,
		Node:          node,
		Users:         users,
		Agencies:      agencies,
		Emails:        emails,
		Notifications: notifications,
		Codes:         &fakeCodes{},
	})

	return &harness{
		db:       db,
		svc:      svc,
		users:    users,
		agencies: agencies,
		emails:   emails,
	}
}

func (h *harness) seedUser(t *testing.T, email string) *user.User {
	t.Helper()

	u, err := h.users.Create(context.Background(), user.CreateRequest{
		Email: email,
		Name:  "Applicant",
	})
	require.NoError(t, err)
	return u
}

func (h *harness) submitUnderReview(t *testing.T, userID, agencyID string) *RegistrationRequest {
	t.Helper()

	r, err := h.svc.Submit(context.Background(), SubmitRequest{
		UserID:        userID,
		AgencyID:      agencyID,
		RequestedRole: "agent",
		IDCardNumber:  "ID-777",
	})
	require.NoError(t, err)

	r, err = h.svc.MarkUnderReview(context.Background(), userID, r.VerificationCode)
	require.NoError(t, err)
	return r
}

func requireStatus(t *testing.T, err error, want errutil.CoreStatus) {
	t.Helper()

	require.Error(t, err)
	var be errutil.BaseError
	require.True(t, errors.As(err, &be))
	require.Equal(t, want, be.Status())
}

func TestSubmitCreatesPendingRequest(t *testing.T) {
	h := newHarness(t)
	u := h.seedUser(t, "applicant@example.com")

	r, err := h.svc.Submit(context.Background(), SubmitRequest{
		UserID:       u.ID,
		AgencyID:     "agency-a",
		IDCardNumber: "ID-777",
	})
	require.NoError(t, err)

	require.Equal(t, StatusPending, r.Status)
	require.Equal(t, "REG-TEST-001", r.Code)
	require.NotEmpty(t, r.VerificationCode)
	require.Equal(t, []string{"applicant@example.com"}, h.emails.pending)
}

func TestSubmitConflictsOnOpenRequest(t *testing.T) {
	h := newHarness(t)
	u := h.seedUser(t, "applicant@example.com")

	_, err := h.svc.Submit(context.Background(), SubmitRequest{UserID: u.ID, AgencyID: "agency-a"})
	require.NoError(t, err)

	_, err = h.svc.Submit(context.Background(), SubmitRequest{UserID: u.ID, AgencyID: "agency-a"})
	requireStatus(t, err, errutil.StatusConflict)
}

func TestMarkUnderReviewChecksCode(t *testing.T) {
	h := newHarness(t)
	u := h.seedUser(t, "applicant@example.com")

	r, err := h.svc.Submit(context.Background(), SubmitRequest{UserID: u.ID, AgencyID: "agency-a"})
	require.NoError(t, err)

	_, err = h.svc.MarkUnderReview(context.Background(), u.ID, "wrong")
	requireStatus(t, err, errutil.StatusValidationFailed)

	got, err := h.svc.MarkUnderReview(context.Background(), u.ID, r.VerificationCode)
	require.NoError(t, err)
	require.Equal(t, StatusUnderReview, got.Status)

	// Already under review, a second verification is rejected.
	_, err = h.svc.MarkUnderReview(context.Background(), u.ID, r.VerificationCode)
	requireStatus(t, err, errutil.StatusUnprocessableEntity)
}

func TestApproveCreatesAgentAndActivatesUser(t *testing.T) {
	h := newHarness(t)
	u := h.seedUser(t, "applicant@example.com")
	r := h.submitUnderReview(t, u.ID, "agency-a")

	res, err := h.svc.UpdateStatus(context.Background(), UpdateStatusRequest{
		RequestID:      r.ID,
		AgencyID:       "agency-a",
		ReviewedBy:     "owner-1",
		Action:         ActionApproved,
		RoleInAgency:   "sales",
		CommissionRate: decimal.NewFromFloat(0.05),
		Permissions:    map[string]bool{"can_edit_own_post": true},
	})
	require.NoError(t, err)
	require.True(t, res.Success)

	got, err := h.svc.Get(context.Background(), r.ID)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, got.Status)
	require.Equal(t, "owner-1", got.ReviewedBy)
	require.NotNil(t, got.ReviewedAt)

	agent, err := h.agencies.GetAgentByUser(context.Background(), u.ID)
	require.NoError(t, err)
	require.NotNil(t, agent)
	require.Equal(t, "agency-a", agent.AgencyID)
	require.Equal(t, "sales", agent.RoleInAgency)
	require.Equal(t, "ID-777", agent.IDCardNumber)

	flags, err := h.agencies.GetPermissions(context.Background(), agent.ID)
	require.NoError(t, err)
	require.True(t, flags["can_edit_own_post"])

	refreshed, err := h.users.Get(context.Background(), u.ID)
	require.NoError(t, err)
	require.Equal(t, user.StatusActive, refreshed.Status)
	require.Equal(t, user.RoleAgent, refreshed.Role)

	require.Equal(t, []string{"applicant@example.com"}, h.emails.welcome)
}

func TestApproveRequiresRole(t *testing.T) {
	h := newHarness(t)
	u := h.seedUser(t, "applicant@example.com")
	r := h.submitUnderReview(t, u.ID, "agency-a")

	_, err := h.svc.UpdateStatus(context.Background(), UpdateStatusRequest{
		RequestID:  r.ID,
		AgencyID:   "agency-a",
		ReviewedBy: "owner-1",
		Action:     ActionApproved,
	})
	requireStatus(t, err, errutil.StatusValidationFailed)
}

func TestDoubleApprovalConflicts(t *testing.T) {
	h := newHarness(t)
	u := h.seedUser(t, "applicant@example.com")
	r := h.submitUnderReview(t, u.ID, "agency-a")

	req := UpdateStatusRequest{
		RequestID:    r.ID,
		AgencyID:     "agency-a",
		ReviewedBy:   "owner-1",
		Action:       ActionApproved,
		RoleInAgency: "sales",
	}

	_, err := h.svc.UpdateStatus(context.Background(), req)
	require.NoError(t, err)

	_, err = h.svc.UpdateStatus(context.Background(), req)
	requireStatus(t, err, errutil.StatusConflict)

	var count int64
	require.NoError(t, h.db.Model(&agency.AgencyAgent{}).Where("agent_id = ?", u.ID).Count(&count).Error)
	require.Equal(t, int64(1), count)

	require.NoError(t, h.db.Model(&agency.AgentPermission{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestCrossAgencyReviewForbidden(t *testing.T) {
	h := newHarness(t)
	u := h.seedUser(t, "applicant@example.com")
	r := h.submitUnderReview(t, u.ID, "agency-b")

	_, err := h.svc.UpdateStatus(context.Background(), UpdateStatusRequest{
		RequestID:    r.ID,
		AgencyID:     "agency-a",
		ReviewedBy:   "owner-1",
		Action:       ActionApproved,
		RoleInAgency: "sales",
	})
	requireStatus(t, err, errutil.StatusForbidden)

	got, err := h.svc.Get(context.Background(), r.ID)
	require.NoError(t, err)
	require.Equal(t, StatusUnderReview, got.Status)

	agent, err := h.agencies.GetAgentByUser(context.Background(), u.ID)
	require.NoError(t, err)
	require.Nil(t, agent)
}

func TestRejectFlipsUserBack(t *testing.T) {
	h := newHarness(t)
	u := h.seedUser(t, "applicant@example.com")
	r := h.submitUnderReview(t, u.ID, "agency-a")

	res, err := h.svc.UpdateStatus(context.Background(), UpdateStatusRequest{
		RequestID:   r.ID,
		AgencyID:    "agency-a",
		ReviewedBy:  "owner-1",
		Action:      ActionRejected,
		ReviewNotes: "incomplete documents",
	})
	require.NoError(t, err)
	require.True(t, res.Success)

	got, err := h.svc.Get(context.Background(), r.ID)
	require.NoError(t, err)
	require.Equal(t, StatusRejected, got.Status)
	require.Equal(t, "incomplete documents", got.ReviewNotes)

	refreshed, err := h.users.Get(context.Background(), u.ID)
	require.NoError(t, err)
	require.Equal(t, user.StatusActive, refreshed.Status)
	require.Equal(t, user.RoleUser, refreshed.Role)

	require.Equal(t, []string{"applicant@example.com"}, h.emails.rejected)

	agent, err := h.agencies.GetAgentByUser(context.Background(), u.ID)
	require.NoError(t, err)
	require.Nil(t, agent)
}

func TestReviewRequiresVerifiedRequest(t *testing.T) {
	h := newHarness(t)
	u := h.seedUser(t, "applicant@example.com")

	r, err := h.svc.Submit(context.Background(), SubmitRequest{
		UserID:       u.ID,
		AgencyID:     "agency-a",
		IDCardNumber: "ID-777",
	})
	require.NoError(t, err)

	// Still pending, the verification code was never entered.
	_, err = h.svc.UpdateStatus(context.Background(), UpdateStatusRequest{
		RequestID:    r.ID,
		AgencyID:     "agency-a",
		ReviewedBy:   "owner-1",
		Action:       ActionApproved,
		RoleInAgency: "sales",
	})
	requireStatus(t, err, errutil.StatusUnprocessableEntity)

	got, err := h.svc.Get(context.Background(), r.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, got.Status)

	agent, err := h.agencies.GetAgentByUser(context.Background(), u.ID)
	require.NoError(t, err)
	require.Nil(t, agent)

	_, err = h.svc.UpdateStatus(context.Background(), UpdateStatusRequest{
		RequestID:  r.ID,
		AgencyID:   "agency-a",
		ReviewedBy: "owner-1",
		Action:     ActionRejected,
	})
	requireStatus(t, err, errutil.StatusUnprocessableEntity)
}

func TestReviewAfterTerminalStateRejected(t *testing.T) {
	h := newHarness(t)
	u := h.seedUser(t, "applicant@example.com")
	r := h.submitUnderReview(t, u.ID, "agency-a")

	_, err := h.svc.UpdateStatus(context.Background(), UpdateStatusRequest{
		RequestID:  r.ID,
		AgencyID:   "agency-a",
		ReviewedBy: "owner-1",
		Action:     ActionRejected,
	})
	require.NoError(t, err)

	_, err = h.svc.UpdateStatus(context.Background(), UpdateStatusRequest{
		RequestID:    r.ID,
		AgencyID:     "agency-a",
		ReviewedBy:   "owner-1",
		Action:       ActionApproved,
		RoleInAgency: "sales",
	})
	requireStatus(t, err, errutil.StatusUnprocessableEntity)
}
