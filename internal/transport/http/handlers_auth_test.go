package httptransport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"aureus/internal/auth"
	"aureus/internal/transport/http/mocks"
	dErrors "aureus/pkg/domain-errors"
)

//go:generate mockgen -source=handlers_auth.go -destination=mocks/auth-mocks.go -package=mocks AuthService
type AuthHandlerSuite struct {
	suite.Suite
	ctx context.Context
}

func (s *AuthHandlerSuite) SetupSuite() {
	s.ctx = context.Background()
}

func (s *AuthHandlerSuite) TestHandler_Token() {
	s.T().Run("valid credentials - 200 with bearer token", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Login(gomock.Any(), "alice", "s3cret", gomock.Any()).
			Return(&auth.TokenResult{AccessToken: "signed-token", TokenType: "bearer"}, nil)

		rr := s.doTokenRequest(t, router, url.Values{
			"username": {"alice"},
			"password": {"s3cret"},
		})

		assert.Equal(t, http.StatusOK, rr.Code)
		body := decodeBody(t, rr)
		assert.Equal(t, "signed-token", body["access_token"])
		assert.Equal(t, "bearer", body["token_type"])
	})

	s.T().Run("missing username - 400, service not called", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		rr := s.doTokenRequest(t, router, url.Values{"password": {"s3cret"}})

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	s.T().Run("missing password - 400, service not called", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		rr := s.doTokenRequest(t, router, url.Values{"username": {"alice"}})

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	s.T().Run("bad credentials - 401 with challenge header", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Login(gomock.Any(), "alice", "wrong", gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeUnauthorized, "Incorrect username or password"))

		rr := s.doTokenRequest(t, router, url.Values{
			"username": {"alice"},
			"password": {"wrong"},
		})

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, "Bearer", rr.Header().Get("WWW-Authenticate"))
		body := decodeBody(t, rr)
		assert.Equal(t, "Incorrect username or password", body["detail"])
	})

	s.T().Run("locked out - 429 with Retry-After", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Login(gomock.Any(), "alice", "wrong", gomock.Any()).
			Return(nil, &auth.LockedError{RetryAfter: 90 * time.Second})

		rr := s.doTokenRequest(t, router, url.Values{
			"username": {"alice"},
			"password": {"wrong"},
		})

		assert.Equal(t, http.StatusTooManyRequests, rr.Code)
		assert.Equal(t, "90", rr.Header().Get("Retry-After"))
	})

	s.T().Run("store unavailable - 503 without detail leak", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Login(gomock.Any(), "alice", "s3cret", gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeUnavailable, "find user: connection refused"))

		rr := s.doTokenRequest(t, router, url.Values{
			"username": {"alice"},
			"password": {"s3cret"},
		})

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		body := decodeBody(t, rr)
		assert.Equal(t, "service unavailable", body["detail"])
	})
}

func TestAuthHandlerSuite(t *testing.T) {
	suite.Run(t, new(AuthHandlerSuite))
}

func (s *AuthHandlerSuite) newHandler(t *testing.T) (*mocks.MockAuthService, *chi.Mux) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	mockService := mocks.NewMockAuthService(ctrl)
	handler := NewAuthHandler(mockService)
	r := chi.NewRouter()
	handler.Register(r)
	return mockService, r
}

func (s *AuthHandlerSuite) doTokenRequest(t *testing.T, router *chi.Mux, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	raw, err := io.ReadAll(rr.Body)
	require.NoError(t, err)

	body := map[string]string{}
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}
