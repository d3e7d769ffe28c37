package registration

import (
	"context"
	"time"

	"estatehub-marketplace/pkg/db/option"
	"estatehub-marketplace/pkg/errutil"
	"estatehub-marketplace/pkg/repository"
	"estatehub-marketplace/pkg/sequence"
	"estatehub-marketplace/pkg/util"
	"estatehub-marketplace/services/agency"
	"estatehub-marketplace/services/mailer"
	"estatehub-marketplace/services/notification"
	"estatehub-marketplace/services/user"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node

	requests repository.Repository[RegistrationRequest]

	users         *user.Service
	agencies      *agency.Service
	emails        mailer.EmailSender
	notifications *notification.Service
	codes         sequence.Generator
}

type ServiceParams struct {
	fx.In
	DB            *gorm.DB
	Node          *snowflake.Node
	Users         *user.Service
	Agencies      *agency.Service
	Emails        mailer.EmailSender
	Notifications *notification.Service
	Codes         sequence.Generator
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:            p.DB,
		node:          p.Node,
		requests:      repository.ProvideStore[RegistrationRequest](p.DB),
		users:         p.Users,
		agencies:      p.Agencies,
		emails:        p.Emails,
		notifications: p.Notifications,
		codes:         p.Codes,
	}
}

type SubmitRequest struct {
	UserID        string
	AgencyID      string
	RequestedRole string
	IDCardNumber  string
}

// Submit opens a new registration request in pending state. A user may only
// have one open request at a time.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*RegistrationRequest, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("user_id", req.UserID),
		zap.String("agency_id", req.AgencyID),
	)

	if req.UserID == "" || req.AgencyID == "" {
		return nil, errutil.ValidationFailed("user_id and agency_id are required", nil)
	}

	u, err := s.users.Get(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	open, err := s.latestOpen(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return nil, errutil.Conflict("an open registration request already exists", nil)
	}

	code, err := s.codes.NextRegistrationCode(ctx)
	if err != nil {
		zapLog.Error("failed to mint registration code", zap.Error(err))
		return nil, err
	}

	r := &RegistrationRequest{
		ID:               s.node.Generate().String(),
		Code:             code,
		UserID:           req.UserID,
		AgencyID:         req.AgencyID,
		RequestType:      RequestTypeJoinAgency,
		Status:           StatusPending,
		RequestedRole:    req.RequestedRole,
		IDCardNumber:     req.IDCardNumber,
		VerificationCode: util.GenerateVerificationCode(),
	}

	if err := s.requests.Create(ctx, r); err != nil {
		zapLog.Error("failed to create registration request", zap.Error(err))
		return nil, err
	}

	if err := s.emails.SendPendingApproval(ctx, u.Email, u.Name); err != nil {
		zapLog.Warn("pending-approval email not queued", zap.Error(err))
	}

	if err := s.notifications.Dispatch(ctx, notification.DispatchRequest{
		UserID: req.UserID,
		Type:   notification.TypeRegistrationSubmitted,
		Title:  "Registration submitted",
		Body:   "Your registration request was submitted and is awaiting email verification.",
		Data:   map[string]string{"request_code": r.Code},
	}); err != nil {
		zapLog.Warn("submitted notification not queued", zap.Error(err))
	}

	return r, nil
}

func (s *Service) Get(ctx context.Context, requestID string) (*RegistrationRequest, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	r, err := s.requests.FindOne(ctx, &RegistrationRequest{ID: requestID})
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, errutil.NotFound("registration request not found", nil)
	}
	return r, nil
}

// MarkUnderReview moves the user's latest pending request to under_review once
// the emailed verification code matches.
func (s *Service) MarkUnderReview(ctx context.Context, userID, verificationCode string) (*RegistrationRequest, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	r, err := s.latestOpen(ctx, userID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, errutil.NotFound("no open registration request", nil)
	}

	if r.Status != StatusPending {
		return nil, errutil.UnprocessableEntity("request is not awaiting verification", nil)
	}

	if verificationCode == "" || verificationCode != r.VerificationCode {
		return nil, errutil.ValidationFailed("verification code does not match", nil)
	}

	if err := s.requests.Update(ctx, r.ID, map[string]any{"status": StatusUnderReview}); err != nil {
		return nil, err
	}

	r.Status = StatusUnderReview
	return r, nil
}

type UpdateStatusRequest struct {
	RequestID      string
	AgencyID       string
	ReviewedBy     string
	Action         string
	RoleInAgency   string
	CommissionRate decimal.Decimal
	ReviewNotes    string
	Permissions    map[string]bool
}

type UpdateStatusResult struct {
	Success bool
	Message string
}

// UpdateStatus is the reviewer decision, accepted only for requests that have
// passed verification (under_review). The approve branch creates the
// employment row, flips the user to an active agent, and grants permissions as
// one atomic unit; emails and notifications go out only after it commits.
func (s *Service) UpdateStatus(ctx context.Context, req UpdateStatusRequest) (*UpdateStatusResult, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("request_id", req.RequestID),
		zap.String("action", req.Action),
	)

	if req.Action != ActionApproved && req.Action != ActionRejected {
		return nil, errutil.ValidationFailed("action must be approved or rejected", nil)
	}

	r, err := s.Get(ctx, req.RequestID)
	if err != nil {
		return nil, err
	}

	if r.AgencyID != req.AgencyID {
		return nil, errutil.Forbidden("request belongs to another agency", nil)
	}

	target, err := s.users.Get(ctx, r.UserID)
	if err != nil {
		return nil, err
	}

	if req.Action == ActionApproved {
		if req.RoleInAgency == "" {
			return nil, errutil.ValidationFailed("role_in_agency is required for approval", nil)
		}

		// The duplicate-agent guard fires before the terminal-state check so a
		// double approval surfaces as Conflict, matching the employment row
		// being the source of truth.
		existing, err := s.agencies.GetAgentByUser(ctx, r.UserID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, errutil.Conflict("agent already exists for this user", nil)
		}
	}

	if terminal(r.Status) {
		return nil, errutil.UnprocessableEntity("request already reviewed", nil)
	}
	if r.Status != StatusUnderReview {
		return nil, errutil.UnprocessableEntity("request has not completed verification", nil)
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if req.Action == ActionApproved {
			if _, err := s.agencies.CreateAgentWithTrx(ctx, tx, agency.CreateAgentRequest{
				AgencyID:       r.AgencyID,
				AgentID:        r.UserID,
				AddedBy:        req.ReviewedBy,
				IDCardNumber:   r.IDCardNumber,
				RoleInAgency:   req.RoleInAgency,
				CommissionRate: req.CommissionRate,
				Permissions:    req.Permissions,
			}); err != nil {
				return err
			}

			if err := s.users.UpdateStatusRoleWithTrx(ctx, tx, r.UserID, user.StatusActive, user.RoleAgent); err != nil {
				return err
			}
		} else {
			if err := s.users.UpdateStatusRoleWithTrx(ctx, tx, r.UserID, user.StatusActive, user.RoleUser); err != nil {
				return err
			}
		}

		now := time.Now()
		return s.requests.WithTrx(tx).Update(ctx, r.ID, map[string]any{
			"status":       req.Action,
			"reviewed_by":  req.ReviewedBy,
			"review_notes": req.ReviewNotes,
			"reviewed_at":  now,
		})
	}); err != nil {
		zapLog.Error("review transaction failed", zap.Error(err))
		return nil, err
	}

	s.notifyReviewed(ctx, r, target, req)

	return &UpdateStatusResult{
		Success: true,
		Message: "registration request " + req.Action,
	}, nil
}

// notifyReviewed runs after the review unit commits; failures are logged only.
func (s *Service) notifyReviewed(ctx context.Context, r *RegistrationRequest, target *user.User, req UpdateStatusRequest) {
	zapLog := zap.L().With(
		zap.String("request_id", r.ID),
		zap.String("user_id", r.UserID),
	)

	if req.Action == ActionApproved {
		if err := s.emails.SendWelcome(ctx, target.Email, target.Name); err != nil {
			zapLog.Warn("welcome email not queued", zap.Error(err))
		}
		if err := s.notifications.Dispatch(ctx, notification.DispatchRequest{
			UserID: r.UserID,
			Type:   notification.TypeRegistrationApproved,
			Title:  "Registration approved",
			Body:   "Welcome aboard. Your agent account is now active.",
			Data:   map[string]string{"request_code": r.Code},
		}); err != nil {
			zapLog.Warn("approved notification not queued", zap.Error(err))
		}
		return
	}

	if err := s.emails.SendRejected(ctx, target.Email, target.Name, req.ReviewNotes); err != nil {
		zapLog.Warn("rejection email not queued", zap.Error(err))
	}
	if err := s.notifications.Dispatch(ctx, notification.DispatchRequest{
		UserID: r.UserID,
		Type:   notification.TypeRegistrationRejected,
		Title:  "Registration rejected",
		Body:   "Your registration request was not approved.",
		Data:   map[string]string{"request_code": r.Code},
	}); err != nil {
		zapLog.Warn("rejected notification not queued", zap.Error(err))
	}
}

// latestOpen returns the newest pending or under_review request for a user.
func (s *Service) latestOpen(ctx context.Context, userID string) (*RegistrationRequest, error) {
	rows, err := s.requests.Find(ctx, &RegistrationRequest{UserID: userID},
		option.WithSortBy(option.QuerySortBy{
			SortBy:  "created_at",
			OrderBy: "desc",
			Allow: map[string]bool{
				"created_at": true,
			},
		}),
	)
	if err != nil {
		return nil, err
	}

	for _, r := range rows {
		if !terminal(r.Status) {
			return r, nil
		}
	}

	return nil, nil
}
