package transaction_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"brokerage/internal/document"
	"brokerage/internal/events"
	"brokerage/internal/objectstore/memory"
	"brokerage/internal/transaction"
	txmemory "brokerage/internal/transaction/store/memory"
	"brokerage/pkg/domain"
	dErrors "brokerage/pkg/domain-errors"
	"brokerage/pkg/platform/trial"
	"brokerage/pkg/testutil"
)

var aliases = map[string][]string{"upi": {"UPI_Payment"}}

type ServiceSuite struct {
	suite.Suite
	ctx      context.Context
	store    *txmemory.InMemoryStore
	objects  *memory.InMemoryStore
	recorder *events.Recorder
	service  *transaction.Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = testutil.ContextAt(testutil.FixedTime)
	s.store = txmemory.New("UPI_Payment", "Net_Banking", "Card_Payment", "Bank_Transfer")
	s.objects = memory.New("mem://objects", "documents")
	s.recorder = &events.Recorder{}
	s.service = s.newService(s.objects)
}

func (s *ServiceSuite) newService(objects document.ObjectStore) *transaction.Service {
	ingester, err := document.New(objects, []string{"kyc-documents", "documents"})
	s.Require().NoError(err)
	svc, err := transaction.New(s.store, ingester,
		transaction.WithModeAliases(aliases),
		transaction.WithPublisher(s.recorder),
	)
	s.Require().NoError(err)
	return svc
}

func deposit(amount, mode string) transaction.Request {
	return transaction.Request{Amount: decimal.RequireFromString(amount), Currency: "inr", PaymentMode: mode}
}

func (s *ServiceSuite) TestPaymentModeDiscoveredByTrial() {
	testutil.Given(s.T(), "a store that only accepts UPI_Payment", func(t *testing.T) {
		sub, err := s.service.SubmitDeposit(s.ctx, "id-1", deposit("500.00", "upi"), nil)
		require.NoError(t, err)

		testutil.Then(t, "the fourth encoding is persisted", func(t *testing.T) {
			assert.Equal(t, []string{"upi", "Upi", "UPI", "UPI_Payment"}, s.store.Attempts())
			require.NotNil(t, sub.Record.PaymentMode)
			assert.Equal(t, "UPI_Payment", *sub.Record.PaymentMode)
			assert.False(t, sub.UsedFallback)
			assert.Empty(t, sub.Warnings)
			assert.Equal(t, "INR", sub.Record.Currency)
			assert.Equal(t, transaction.StatusPending, sub.Record.Status)
		})

		testutil.When(t, "a second deposit is submitted", func(t *testing.T) {
			_, err := s.service.SubmitDeposit(s.ctx, "id-1", deposit("250.00", "upi"), nil)
			require.NoError(t, err)

			testutil.Then(t, "the trial runs again from the first encoding", func(t *testing.T) {
				assert.Equal(t, []string{"upi", "Upi", "UPI", "UPI_Payment", "upi", "Upi", "UPI", "UPI_Payment"}, s.store.Attempts())
				assert.Len(t, s.store.Records(), 2)
			})
		})
	})
}

func (s *ServiceSuite) TestDepositWithoutStorableProof() {
	s.service = s.newService(memory.New("mem://objects"))

	sub, err := s.service.SubmitDeposit(s.ctx, "id-1", deposit("100", "upi"),
		&document.File{Name: "receipt.png", Data: []byte("png")})

	s.Require().NoError(err)
	s.Nil(sub.Record.Proof)
	s.Len(s.store.Records(), 1)
	s.Require().Len(sub.Warnings, 1)
	s.Contains(sub.Warnings[0], "proof")
}

func (s *ServiceSuite) TestDepositWithProof() {
	sub, err := s.service.SubmitDeposit(s.ctx, "id-1", deposit("100", "upi"),
		&document.File{Name: "receipt.png", Data: []byte("png")})

	s.Require().NoError(err)
	s.Require().NotNil(sub.Record.Proof)
	s.Equal("documents", sub.Record.Proof.Bucket)
	s.Contains(sub.Record.Proof.Path, "id-1/transaction_proof/")
}

func (s *ServiceSuite) TestUnknownModeFallsBackToOmittingIt() {
	sub, err := s.service.SubmitWithdrawal(s.ctx, "id-1", deposit("10", "crypto"))

	s.Require().NoError(err)
	s.True(sub.UsedFallback)
	s.Nil(sub.Record.PaymentMode)
	s.Equal(transaction.KindWithdrawal, sub.Record.Kind)
	s.Equal([]string{"crypto", "Crypto", "CRYPTO", ""}, s.store.Attempts())
	s.Require().Len(sub.Warnings, 1)
	s.Contains(sub.Warnings[0], "crypto")
	s.Equal([]events.Type{events.TypeTransactionCreated}, s.recorder.Types())
}

func (s *ServiceSuite) TestValidation() {
	tests := []struct {
		name     string
		identity domain.Identity
		req      transaction.Request
	}{
		{name: "missing identity", req: deposit("1", "upi")},
		{name: "zero amount", identity: "id-1", req: deposit("0", "upi")},
		{name: "negative amount", identity: "id-1", req: deposit("-5", "upi")},
		{name: "bad currency", identity: "id-1", req: transaction.Request{Amount: decimal.NewFromInt(1), Currency: "RUPEE"}},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.service.SubmitWithdrawal(s.ctx, tt.identity, tt.req)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
	s.Empty(s.store.Attempts())
}

type brokenStore struct{ calls int }

func (b *brokenStore) Insert(context.Context, *transaction.Record) error {
	b.calls++
	return errors.New("relation \"transactions\" does not exist")
}

func TestEncodingExhaustedListsEveryEncoding(t *testing.T) {
	store := &brokenStore{}
	ingester, err := document.New(memory.New("mem://objects", "documents"), []string{"documents"})
	require.NoError(t, err)
	svc, err := transaction.New(store, ingester, transaction.WithModeAliases(aliases))
	require.NoError(t, err)

	_, err = svc.SubmitDeposit(testutil.ContextAt(testutil.FixedTime), "id-1", deposit("1", "upi"), nil)

	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeEncodingExhausted))
	assert.Contains(t, dErrors.MessageOf(err), "upi, Upi, UPI, UPI_Payment")
	var diag *trial.DiagnosticError
	require.ErrorAs(t, err, &diag)
	assert.Equal(t, []string{"upi", "Upi", "UPI", "UPI_Payment"}, diag.Candidates())
	assert.Equal(t, 5, store.calls)
}
