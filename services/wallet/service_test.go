package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"estatehub-marketplace/pkg/db/option"
	"estatehub-marketplace/pkg/errutil"
	"estatehub-marketplace/pkg/repository"
	"estatehub-marketplace/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type repoMock[T any] struct {
	withTrxFn     func(tx *gorm.DB) repository.Repository[T]
	findFn        func(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	findOneFn     func(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	createFn      func(ctx context.Context, resource *T) error
	updateFn      func(ctx context.Context, resourceID string, resource any) error
	batchCreateFn func(ctx context.Context, resources []*T) error
	batchUpdateFn func(ctx context.Context, resources []*T) error
	countFn       func(ctx context.Context, query *T) (int64, error)
}

func (m *repoMock[T]) WithTrx(tx *gorm.DB) repository.Repository[T] {
	if m.withTrxFn != nil {
		return m.withTrxFn(tx)
	}
	return m
}

func (m *repoMock[T]) Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error) {
	if m.findFn != nil {
		return m.findFn(ctx, query, opts...)
	}
	return nil, nil
}

func (m *repoMock[T]) FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error) {
	if m.findOneFn != nil {
		return m.findOneFn(ctx, query, opts...)
	}
	return nil, nil
}

func (m *repoMock[T]) Create(ctx context.Context, resource *T) error {
	if m.createFn != nil {
		return m.createFn(ctx, resource)
	}
	return nil
}

func (m *repoMock[T]) Update(ctx context.Context, resourceID string, resource any) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, resourceID, resource)
	}
	return nil
}

func (m *repoMock[T]) BatchCreate(ctx context.Context, resources []*T) error {
	if m.batchCreateFn != nil {
		return m.batchCreateFn(ctx, resources)
	}
	return nil
}

func (m *repoMock[T]) BatchUpdate(ctx context.Context, resources []*T) error {
	if m.batchUpdateFn != nil {
		return m.batchUpdateFn(ctx, resources)
	}
	return nil
}

func (m *repoMock[T]) Count(ctx context.Context, query *T) (int64, error) {
	if m.countFn != nil {
		return m.countFn(ctx, query)
	}
	return 0, nil
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db := testutil.NewTestDB(t, &Wallet{}, &Transaction{})

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(ServiceParams{DB: db, Node: node}), db
}

func seedWallet(t *testing.T, svc *Service, userID string, balance int64) *Wallet {
	t.Helper()

	w, err := svc.CreateWallet(context.Background(), userID, "USD")
	require.NoError(t, err)

	if balance > 0 {
		_, err = svc.ApplyTransaction(context.Background(), ApplyRequest{
			UserID: userID,
			Type:   TxTopup,
			Amount: decimal.NewFromInt(balance),
		})
		require.NoError(t, err)
	}

	return w
}

func TestCreateWalletConflict(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateWallet(context.Background(), "user-1", "USD")
	require.NoError(t, err)

	_, err = svc.CreateWallet(context.Background(), "user-1", "USD")
	require.Error(t, err)

	var be errutil.BaseError
	require.True(t, errors.As(err, &be))
	require.Equal(t, errutil.StatusConflict, be.Status())
}

func TestCreateWalletDuplicateRaceConflicts(t *testing.T) {
	svc, db := newTestService(t)

	_, err := svc.CreateWallet(context.Background(), "user-1", "USD")
	require.NoError(t, err)

	// A racing create passes the existence pre-check before the first row
	// lands; the unique index on user_id decides the loser.
	store := repository.ProvideStore[Wallet](db)
	svc.wallets = &repoMock[Wallet]{
		createFn: store.Create,
	}

	_, err = svc.CreateWallet(context.Background(), "user-1", "USD")
	require.Error(t, err)

	var be errutil.BaseError
	require.True(t, errors.As(err, &be))
	require.Equal(t, errutil.StatusConflict, be.Status())
}

func TestGetWalletNotFound(t *testing.T) {
	svc := &Service{
		wallets: &repoMock[Wallet]{},
	}

	_, err := svc.GetWallet(context.Background(), "missing")
	require.Error(t, err)

	var be errutil.BaseError
	require.True(t, errors.As(err, &be))
	require.Equal(t, errutil.StatusNotFound, be.Status())
}

func TestApplyTransactionTopupAndWithdraw(t *testing.T) {
	svc, _ := newTestService(t)
	seedWallet(t, svc, "user-1", 0)

	res, err := svc.ApplyTransaction(context.Background(), ApplyRequest{
		UserID: "user-1",
		Type:   TxTopup,
		Amount: decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	require.True(t, res.NewBalance.Equal(decimal.NewFromInt(100)))

	res, err = svc.ApplyTransaction(context.Background(), ApplyRequest{
		UserID: "user-1",
		Type:   TxWithdraw,
		Amount: decimal.NewFromInt(30),
	})
	require.NoError(t, err)
	require.True(t, res.NewBalance.Equal(decimal.NewFromInt(70)))

	w, err := svc.GetWallet(context.Background(), "user-1")
	require.NoError(t, err)
	require.True(t, w.Balance.Equal(decimal.NewFromInt(70)))
}

func TestApplyTransactionRecordsBalanceAfter(t *testing.T) {
	svc, _ := newTestService(t)
	seedWallet(t, svc, "user-1", 50)

	res, err := svc.ApplyTransaction(context.Background(), ApplyRequest{
		UserID:      "user-1",
		Type:        TxWithdraw,
		Amount:      decimal.NewFromInt(20),
		Description: "withdraw",
	})
	require.NoError(t, err)

	entries, err := svc.transactions.Find(context.Background(), &Transaction{})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var withdraw *Transaction
	for _, e := range entries {
		if e.ID == res.TransactionID {
			withdraw = e
		}
	}
	require.NotNil(t, withdraw)
	require.Equal(t, TxWithdraw, withdraw.Type)
	require.True(t, withdraw.BalanceAfter.Equal(decimal.NewFromInt(30)))
	require.NotEmpty(t, withdraw.Code)
}

func TestApplyTransactionInsufficientBalance(t *testing.T) {
	svc, _ := newTestService(t)
	seedWallet(t, svc, "user-1", 10)

	_, err := svc.ApplyTransaction(context.Background(), ApplyRequest{
		UserID: "user-1",
		Type:   TxWithdraw,
		Amount: decimal.NewFromInt(25),
	})
	require.Error(t, err)

	var be errutil.BaseError
	require.True(t, errors.As(err, &be))
	require.Equal(t, errutil.StatusInsufficientBalance, be.Status())

	w, err := svc.GetWallet(context.Background(), "user-1")
	require.NoError(t, err)
	require.True(t, w.Balance.Equal(decimal.NewFromInt(10)))

	count, err := svc.transactions.Count(context.Background(), &Transaction{WalletID: w.ID})
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestApplyTransactionRejectsInvalidInput(t *testing.T) {
	svc, _ := newTestService(t)
	seedWallet(t, svc, "user-1", 10)

	_, err := svc.ApplyTransaction(context.Background(), ApplyRequest{
		UserID: "user-1",
		Type:   "refund",
		Amount: decimal.NewFromInt(5),
	})
	require.Error(t, err)

	var be errutil.BaseError
	require.True(t, errors.As(err, &be))
	require.Equal(t, errutil.StatusValidationFailed, be.Status())

	_, err = svc.ApplyTransaction(context.Background(), ApplyRequest{
		UserID: "user-1",
		Type:   TxTopup,
		Amount: decimal.NewFromInt(-5),
	})
	require.Error(t, err)
	require.True(t, errors.As(err, &be))
	require.Equal(t, errutil.StatusValidationFailed, be.Status())
}

func TestTransferMovesFundsAtomically(t *testing.T) {
	svc, _ := newTestService(t)
	seedWallet(t, svc, "sender", 100)
	seedWallet(t, svc, "receiver", 5)

	res, err := svc.Transfer(context.Background(), TransferRequest{
		SenderID:   "sender",
		ReceiverID: "receiver",
		Amount:     decimal.NewFromInt(40),
	})
	require.NoError(t, err)
	require.True(t, res.SenderBalance.Equal(decimal.NewFromInt(60)))
	require.True(t, res.ReceiverBalance.Equal(decimal.NewFromInt(45)))

	sender, err := svc.GetWallet(context.Background(), "sender")
	require.NoError(t, err)
	receiver, err := svc.GetWallet(context.Background(), "receiver")
	require.NoError(t, err)

	total := sender.Balance.Add(receiver.Balance)
	require.True(t, total.Equal(decimal.NewFromInt(105)))
}

func TestTransferInsufficientBalanceLeavesBothUntouched(t *testing.T) {
	svc, _ := newTestService(t)
	seedWallet(t, svc, "sender", 10)
	seedWallet(t, svc, "receiver", 0)

	_, err := svc.Transfer(context.Background(), TransferRequest{
		SenderID:   "sender",
		ReceiverID: "receiver",
		Amount:     decimal.NewFromInt(50),
	})
	require.Error(t, err)

	var be errutil.BaseError
	require.True(t, errors.As(err, &be))
	require.Equal(t, errutil.StatusInsufficientBalance, be.Status())

	sender, err := svc.GetWallet(context.Background(), "sender")
	require.NoError(t, err)
	require.True(t, sender.Balance.Equal(decimal.NewFromInt(10)))

	receiver, err := svc.GetWallet(context.Background(), "receiver")
	require.NoError(t, err)
	require.True(t, receiver.Balance.IsZero())
}

func TestTransferRejectsSelfTransfer(t *testing.T) {
	svc, _ := newTestService(t)
	seedWallet(t, svc, "user-1", 100)

	_, err := svc.Transfer(context.Background(), TransferRequest{
		SenderID:   "user-1",
		ReceiverID: "user-1",
		Amount:     decimal.NewFromInt(10),
	})
	require.Error(t, err)

	var be errutil.BaseError
	require.True(t, errors.As(err, &be))
	require.Equal(t, errutil.StatusValidationFailed, be.Status())
}

func TestListTransactionsPaginates(t *testing.T) {
	svc, _ := newTestService(t)
	seedWallet(t, svc, "user-1", 0)

	for i := 0; i < 5; i++ {
		_, err := svc.ApplyTransaction(context.Background(), ApplyRequest{
			UserID: "user-1",
			Type:   TxTopup,
			Amount: decimal.NewFromInt(int64(i + 1)),
		})
		require.NoError(t, err)
	}

	res, err := svc.ListTransactions(context.Background(), "user-1", 1, 2)
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	require.Equal(t, int64(5), res.Total)

	res, err = svc.ListTransactions(context.Background(), "user-1", 3, 2)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
}
