package wallet

import (
	"context"
	"errors"
	"time"

	"estatehub-marketplace/pkg/db/option"
	"estatehub-marketplace/pkg/db/pagination"
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
	db   *gorm.DB
	node *snowflake.Node

	wallets      repository.Repository[Wallet]
	transactions repository.Repository[Transaction]
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:   p.DB,
		node: p.Node,

		wallets:      repository.ProvideStore[Wallet](p.DB),
		transactions: repository.ProvideStore[Transaction](p.DB),
	}
}

type ApplyRequest struct {
	UserID      string
	Type        string
	Amount      decimal.Decimal
	Description string
}

type ApplyResult struct {
	TransactionID string
	NewBalance    decimal.Decimal
}

type TransferRequest struct {
	SenderID    string
	ReceiverID  string
	Amount      decimal.Decimal
	Description string
}

type TransferResult struct {
	SenderBalance   decimal.Decimal
	ReceiverBalance decimal.Decimal
}

// CreateWallet creates an empty wallet for the user. Wallet creation stays an
// explicit step; nothing creates wallets implicitly during registration.
func (s *Service) CreateWallet(ctx context.Context, userID, currency string) (*Wallet, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("user_id", userID),
	)

	exist, err := s.wallets.FindOne(ctx, &Wallet{UserID: userID})
	if err != nil {
		zapLog.Error("failed to query wallet", zap.Error(err))
		return nil, err
	}

	if exist != nil {
		zapLog.Warn("wallet already exists")
		return nil, errutil.Conflict("wallet already exists", nil)
	}

	w := &Wallet{
		ID:       s.node.Generate().String(),
		UserID:   userID,
		Balance:  decimal.Zero,
		Currency: currency,
	}

	if err := s.wallets.Create(ctx, w); err != nil {
		// Two concurrent creates can both pass the pre-check; the unique index
		// on user_id catches the loser.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			zapLog.Warn("wallet already exists")
			return nil, errutil.Conflict("wallet already exists", err)
		}
		zapLog.Error("failed to create wallet", zap.Error(err))
		return nil, err
	}

	return w, nil
}

func (s *Service) GetWallet(ctx context.Context, userID string) (*Wallet, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	w, err := s.wallets.FindOne(ctx, &Wallet{UserID: userID})
	if err != nil {
		zap.L().Error("failed to query wallet", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	if w == nil {
		return nil, errutil.NotFound("wallet not found", nil)
	}

	return w, nil
}

// ApplyTransaction runs the ledger mutation in its own database transaction.
func (s *Service) ApplyTransaction(ctx context.Context, req ApplyRequest) (*ApplyResult, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	var result *ApplyResult
	if err := s.db.Transaction(func(tx *gorm.DB) error {
		tx = tx.Scopes(option.LockingUpdate)

		var err error
		result, err = s.ApplyWithTrx(ctx, tx, req)
		return err
	}); err != nil {
		return nil, err
	}

	return result, nil
}

// ApplyWithTrx applies one debit or credit on a transaction handle the caller
// already opened, so a purchase can debit the wallet and create its dependent
// rows as a single atomic unit. Writes one wallet_transactions row and updates
// the stored balance; BalanceAfter is the post-operation balance.
func (s *Service) ApplyWithTrx(ctx context.Context, tx *gorm.DB, req ApplyRequest) (*ApplyResult, error) {
	if !validTxType(req.Type) {
		return nil, errutil.ValidationFailed("unsupported transaction type", nil)
	}

	if !req.Amount.IsPositive() {
		return nil, errutil.ValidationFailed("amount must be greater than zero", nil)
	}

	walletTx := s.wallets.WithTrx(tx)
	transactionTx := s.transactions.WithTrx(tx)

	w, err := walletTx.FindOne(ctx, &Wallet{UserID: req.UserID}, option.WithLockingUpdate())
	if err != nil {
		zap.L().Error("failed to query wallet for update", zap.String("user_id", req.UserID), zap.Error(err))
		return nil, err
	}

	if w == nil {
		return nil, errutil.NotFound("wallet not found", nil)
	}

	var newBalance decimal.Decimal
	if isDebit(req.Type) {
		if w.Balance.LessThan(req.Amount) {
			return nil, errutil.InsufficientBalance("insufficient balance", nil)
		}
		newBalance = w.Balance.Sub(req.Amount)
	} else {
		newBalance = w.Balance.Add(req.Amount)
	}

	code, err := GenerateTransactionCode()
	if err != nil {
		zap.L().Error("failed to generate transaction code", zap.Error(err))
		return nil, err
	}

	entry := &Transaction{
		ID:           s.node.Generate().String(),
		WalletID:     w.ID,
		Code:         code,
		Type:         req.Type,
		Amount:       req.Amount,
		BalanceAfter: newBalance,
		Description:  req.Description,
	}

	if err := transactionTx.Create(ctx, entry); err != nil {
		return nil, err
	}

	updates := map[string]any{
		"balance":    newBalance,
		"updated_at": time.Now(),
	}
	if err := walletTx.Update(ctx, w.ID, updates); err != nil {
		return nil, err
	}

	return &ApplyResult{
		TransactionID: entry.ID,
		NewBalance:    newBalance,
	}, nil
}

// Transfer moves funds between two wallets as one atomic unit. Both wallets
// are locked in ascending wallet-id order so concurrent opposite transfers
// cannot deadlock. A failed withdraw aborts before the receiver is touched.
func (s *Service) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("sender_id", req.SenderID),
		zap.String("receiver_id", req.ReceiverID),
	)

	if !req.Amount.IsPositive() {
		return nil, errutil.ValidationFailed("amount must be greater than zero", nil)
	}

	if req.SenderID == req.ReceiverID {
		return nil, errutil.ValidationFailed("cannot transfer to the same wallet", nil)
	}

	sender, err := s.wallets.FindOne(ctx, &Wallet{UserID: req.SenderID})
	if err != nil {
		return nil, err
	}
	if sender == nil {
		return nil, errutil.NotFound("sender wallet not found", nil)
	}

	receiver, err := s.wallets.FindOne(ctx, &Wallet{UserID: req.ReceiverID})
	if err != nil {
		return nil, err
	}
	if receiver == nil {
		return nil, errutil.NotFound("receiver wallet not found", nil)
	}

	var result *TransferResult
	if err := s.db.Transaction(func(tx *gorm.DB) error {
		tx = tx.Scopes(option.LockingUpdate)

		first, second := req.SenderID, req.ReceiverID
		if receiver.ID < sender.ID {
			first, second = req.ReceiverID, req.SenderID
		}
		if _, err := s.wallets.WithTrx(tx).FindOne(ctx, &Wallet{UserID: first}, option.WithLockingUpdate()); err != nil {
			return err
		}
		if _, err := s.wallets.WithTrx(tx).FindOne(ctx, &Wallet{UserID: second}, option.WithLockingUpdate()); err != nil {
			return err
		}

		debit, err := s.ApplyWithTrx(ctx, tx, ApplyRequest{
			UserID:      req.SenderID,
			Type:        TxWithdraw,
			Amount:      req.Amount,
			Description: req.Description,
		})
		if err != nil {
			return err
		}

		credit, err := s.ApplyWithTrx(ctx, tx, ApplyRequest{
			UserID:      req.ReceiverID,
			Type:        TxTopup,
			Amount:      req.Amount,
			Description: req.Description,
		})
		if err != nil {
			return err
		}

		result = &TransferResult{
			SenderBalance:   debit.NewBalance,
			ReceiverBalance: credit.NewBalance,
		}
		return nil
	}); err != nil {
		zapLog.Error("transfer failed", zap.Error(err))
		return nil, err
	}

	return result, nil
}

type ListTransactionsResult struct {
	Items []*Transaction
	Total int64
}

func (s *Service) ListTransactions(ctx context.Context, userID string, page, limit int) (*ListTransactionsResult, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	w, err := s.GetWallet(ctx, userID)
	if err != nil {
		return nil, err
	}

	items, err := s.transactions.Find(ctx, &Transaction{WalletID: w.ID},
		option.WithSortBy(option.QuerySortBy{
			SortBy:  "created_at",
			OrderBy: "desc",
			Allow: map[string]bool{
				"created_at": true,
			},
		}),
		option.ApplyPagination(pagination.FromPage(page, limit)),
	)
	if err != nil {
		zap.L().Error("failed to query wallet transactions", zap.String("wallet_id", w.ID), zap.Error(err))
		return nil, err
	}

	total, err := s.transactions.Count(ctx, &Transaction{WalletID: w.ID})
	if err != nil {
		return nil, err
	}

	return &ListTransactionsResult{
		Items: items,
		Total: total,
	}, nil
}
