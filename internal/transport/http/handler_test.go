package httptransport_test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"brokerage/internal/document"
	"brokerage/internal/identity"
	identitymemory "brokerage/internal/identity/store/memory"
	jwttoken "brokerage/internal/jwt_token"
	"brokerage/internal/kyc"
	kycmemory "brokerage/internal/kyc/store/memory"
	objectmemory "brokerage/internal/objectstore/memory"
	"brokerage/internal/onboarding"
	"brokerage/internal/platform/middleware"
	"brokerage/internal/profile"
	profilememory "brokerage/internal/profile/store/memory"
	ratelimitmw "brokerage/internal/ratelimit/middleware"
	"brokerage/internal/ratelimit/models"
	"brokerage/internal/ratelimit/store/bucket"
	stagingmemory "brokerage/internal/staging/store/memory"
	"brokerage/internal/transaction"
	txmemory "brokerage/internal/transaction/store/memory"
	httptransport "brokerage/internal/transport/http"
	"brokerage/pkg/domain"
	"brokerage/pkg/testutil"
)

const secret = "correct-horse-battery"

type HandlerSuite struct {
	suite.Suite
	router       http.Handler
	profiles     *profile.Service
	transactions *txmemory.InMemoryStore
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.DiscardHandler)
	objects := objectmemory.New("mem://objects", "documents")

	provider, err := identity.NewLocal(identitymemory.New(), identity.WithCost(bcrypt.MinCost))
	s.Require().NoError(err)
	s.profiles, err = profile.New(profilememory.New())
	s.Require().NoError(err)
	ingester, err := document.New(objects, []string{"kyc-documents", "documents"})
	s.Require().NoError(err)
	kycService, err := kyc.New(kycmemory.New())
	s.Require().NoError(err)
	orchestrator, err := onboarding.New(stagingmemory.New(time.Hour), provider, s.profiles, ingester, kycService)
	s.Require().NoError(err)

	s.transactions = txmemory.New("UPI", "Net_Banking")
	txService, err := transaction.New(s.transactions, ingester,
		transaction.WithModeAliases(map[string][]string{"upi": {"UPI_Payment"}, "netbanking": {"Net_Banking"}}))
	s.Require().NoError(err)

	jwtService := jwttoken.NewJWTService("test-signing-key", "brokerage-test", time.Hour)
	limiter := ratelimitmw.New(bucket.New(), logger,
		ratelimitmw.WithLimit(models.ClassLogin, models.Limit{Requests: 3, Window: time.Minute}))
	handler := httptransport.New(orchestrator, txService, jwtService,
		jwttoken.NewJWTServiceAdapter(jwtService), logger, 1<<20,
		httptransport.WithRateLimiter(limiter))
	s.router = httptransport.NewRouter(handler, logger, httptransport.RouterConfig{})
}

func (s *HandlerSuite) send(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set(middleware.SessionHeader, token)
	}
	return testutil.DoRequest(s.router, req)
}

func (s *HandlerSuite) do(method, path, token string) *httptest.ResponseRecorder {
	return s.send(httptest.NewRequest(method, path, nil), token)
}

func (s *HandlerSuite) doJSON(method, path, token string, body any) *httptest.ResponseRecorder {
	return s.send(testutil.NewJSONRequest(s.T(), method, path, body), token)
}

func (s *HandlerSuite) decode(w *httptest.ResponseRecorder) map[string]any {
	return *testutil.UnmarshalResponse[map[string]any](s.T(), w)
}

func (s *HandlerSuite) register(email string) string {
	w := s.doJSON(http.MethodPost, "/onboarding/identity", "", map[string]string{"email": email, "secret": secret})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	token := w.Header().Get(middleware.SessionHeader)
	s.Require().NotEmpty(token)
	return token
}

func (s *HandlerSuite) TestRegistrationFlow() {
	token := s.register("jo@example.com")

	w := s.doJSON(http.MethodPut, "/onboarding/stages/basic_profile", token,
		map[string]any{"first_name": "Jo", "last_name": "Doe"})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.True(s.decode(w)["success"].(bool))

	w = s.doJSON(http.MethodPut, "/onboarding/stages/5", token, map[string]any{"account_number": "123456789"})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	req := testutil.NewMultipartRequest(s.T(), http.MethodPost, "/onboarding/documents/primary_identity",
		nil, "file", "passport.pdf", []byte("%PDF-1.7 passport"))
	w = s.send(req, token)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	details := s.decode(w)["details"].(map[string]any)
	s.Equal("documents", details["bucket"])

	w = s.do(http.MethodPost, "/onboarding/kyc/submit", token)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/onboarding/kyc/status", token)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Equal("unverified", s.decode(w)["message"])

	w = s.do(http.MethodPost, "/onboarding/finalize", token)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	res := s.decode(w)

	id := domain.Identity(res["identity"].(string))
	record, err := s.profiles.Get(s.T().Context(), id)
	s.Require().NoError(err)
	s.Equal("Jo", record.Fields["first_name"])
	s.Equal("123456789", record.Fields["account_number"])
	s.Equal(profile.OnboardingCompleted, record.Fields[profile.FieldOnboardingStatus])
}

func (s *HandlerSuite) TestSessionRequired() {
	s.Run("missing token", func() {
		w := s.doJSON(http.MethodPut, "/onboarding/stages/basic_profile", "", map[string]any{"first_name": "Jo"})
		testutil.AssertStatusAndError(s.T(), w, http.StatusUnauthorized, "unauthorized")
	})
	s.Run("forged token", func() {
		w := s.doJSON(http.MethodPut, "/onboarding/stages/basic_profile", "not-a-token", map[string]any{"first_name": "Jo"})
		s.Equal(http.StatusUnauthorized, w.Code)
	})
	s.Run("forged token on identity call", func() {
		w := s.doJSON(http.MethodPost, "/onboarding/identity", "not-a-token",
			map[string]string{"email": "x@example.com", "secret": secret})
		s.Equal(http.StatusUnauthorized, w.Code)
	})
}

func (s *HandlerSuite) TestStageErrors() {
	token := s.register("jo@example.com")

	s.Run("unknown stage", func() {
		w := s.doJSON(http.MethodPut, "/onboarding/stages/bogus", token, map[string]any{"a": "b"})
		s.Equal(http.StatusBadRequest, w.Code)
	})
	s.Run("missing required key", func() {
		w := s.doJSON(http.MethodPut, "/onboarding/stages/basic_profile", token, map[string]any{"last_name": "Doe"})
		s.Equal(http.StatusBadRequest, w.Code)
		res := s.decode(w)
		s.False(res["success"].(bool))
		s.Equal("validation_error", res["error"])
	})
	s.Run("malformed body", func() {
		req := httptest.NewRequest(http.MethodPut, "/onboarding/stages/basic_profile", strings.NewReader("{"))
		w := s.send(req, token)
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *HandlerSuite) TestDuplicateEmailThenLogin() {
	s.register("jo@example.com")

	w := s.doJSON(http.MethodPost, "/onboarding/identity", "", map[string]string{"email": "jo@example.com", "secret": secret})
	testutil.AssertStatusAndError(s.T(), w, http.StatusConflict, "identity_conflict")
	s.Empty(w.Header().Get(middleware.SessionHeader))

	w = s.doJSON(http.MethodPost, "/onboarding/login", "", map[string]string{"email": "jo@example.com", "secret": "wrong-secret"})
	s.Equal(http.StatusUnauthorized, w.Code)

	w = s.doJSON(http.MethodPost, "/onboarding/login", "", map[string]string{"email": "jo@example.com", "secret": secret})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	token := w.Header().Get(middleware.SessionHeader)
	s.Require().NotEmpty(token)

	w = s.doJSON(http.MethodPut, "/onboarding/stages/basic_profile", token, map[string]any{"first_name": "Jo"})
	s.Equal(http.StatusOK, w.Code, w.Body.String())
}

func (s *HandlerSuite) TestLoginIsRateLimited() {
	s.register("jo@example.com")
	creds := map[string]string{"email": "jo@example.com", "secret": "wrong-secret"}

	for range 3 {
		w := s.doJSON(http.MethodPost, "/onboarding/login", "", creds)
		s.Equal(http.StatusUnauthorized, w.Code)
	}
	w := s.doJSON(http.MethodPost, "/onboarding/login", "", creds)
	testutil.AssertStatusAndError(s.T(), w, http.StatusTooManyRequests, "rate_limited")
	s.NotEmpty(w.Header().Get("Retry-After"))
}

func (s *HandlerSuite) TestEndSession() {
	token := s.register("jo@example.com")

	w := s.do(http.MethodDelete, "/onboarding/session", token)
	s.Require().Equal(http.StatusOK, w.Code)

	w = s.doJSON(http.MethodPut, "/onboarding/stages/basic_profile", token, map[string]any{"first_name": "Jo"})
	testutil.AssertStatusAndError(s.T(), w, http.StatusPreconditionRequired, "sequence_error")
}

func (s *HandlerSuite) TestTransactions() {
	token := s.register("jo@example.com")

	s.Run("withdrawal records the accepted encoding", func() {
		w := s.doJSON(http.MethodPost, "/transactions/withdrawals", token,
			map[string]any{"amount": "250.00", "currency": "inr", "payment_mode": "upi"})
		s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
		res := s.decode(w)
		s.Equal("UPI", res["payment_mode"])
		s.Equal("INR", res["currency"])
		s.Equal("250", res["amount"])
		s.Equal(false, res["used_fallback"])
	})

	s.Run("unknown mode falls back without a mode", func() {
		w := s.doJSON(http.MethodPost, "/transactions/withdrawals", token,
			map[string]any{"amount": 10, "currency": "INR", "payment_mode": "cheque"})
		s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
		res := s.decode(w)
		s.Nil(res["payment_mode"])
		s.Equal(true, res["used_fallback"])
		s.NotEmpty(res["warnings"])
	})

	s.Run("deposit with proof", func() {
		req := testutil.NewMultipartRequest(s.T(), http.MethodPost, "/transactions/deposits",
			map[string]string{"amount": "1000", "currency": "INR", "payment_mode": "netbanking"},
			"proof", "receipt.png", []byte("\x89PNG\r\n\x1a\nreceipt"))
		w := s.send(req, token)
		s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
		res := s.decode(w)
		s.Equal("Net_Banking", res["payment_mode"])
		s.NotNil(res["proof"])
	})

	s.Run("invalid amount", func() {
		w := s.doJSON(http.MethodPost, "/transactions/deposits", token,
			map[string]any{"amount": "-5", "currency": "INR", "payment_mode": "upi"})
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Len(s.transactions.Records(), 3)
}

func (s *HandlerSuite) TestTransactionsRequireIdentity() {
	w := s.doJSON(http.MethodPost, "/transactions/withdrawals", "",
		map[string]any{"amount": "1", "currency": "INR", "payment_mode": "upi"})
	s.Equal(http.StatusUnauthorized, w.Code)
}
