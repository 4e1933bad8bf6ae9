package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agriregistration/internal/delivery/http/helpers"
	"agriregistration/internal/domain"
)

// fakeAuthService implements domain.AuthService for handler tests.
type fakeAuthService struct {
	token string
	err   error
}

func (f *fakeAuthService) Login(ctx context.Context, email, password string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.token, nil
}

func TestAuthController_Login(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		fake         *fakeAuthService
		wantStatus   int
		wantBodyCode string
		wantToken    string
	}{
		{
			name:       "success",
			body:       `{"email":"admin@example.com","password":"secret"}`,
			fake:       &fakeAuthService{token: "signed-token"},
			wantStatus: http.StatusOK,
			wantToken:  "signed-token",
		},
		{
			name:         "missing email",
			body:         `{"password":"secret"}`,
			fake:         &fakeAuthService{},
			wantStatus:   http.StatusBadRequest,
			wantBodyCode: helpers.ErrCodeBadRequest,
		},
		{
			name:         "missing password",
			body:         `{"email":"admin@example.com"}`,
			fake:         &fakeAuthService{},
			wantStatus:   http.StatusBadRequest,
			wantBodyCode: helpers.ErrCodeBadRequest,
		},
		{
			name:         "invalid credentials",
			body:         `{"email":"admin@example.com","password":"wrong"}`,
			fake:         &fakeAuthService{err: domain.ErrInvalidCredentials},
			wantStatus:   http.StatusUnauthorized,
			wantBodyCode: helpers.ErrCodeUnauthorized,
		},
		{
			name:         "issuer failure",
			body:         `{"email":"admin@example.com","password":"secret"}`,
			fake:         &fakeAuthService{err: assert.AnError},
			wantStatus:   http.StatusInternalServerError,
			wantBodyCode: helpers.ErrCodeInternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := NewAuthController(testControllerLogger(), tt.fake)

			req := httptest.NewRequest(http.MethodPost, "http://test/v1/admin/login", bytes.NewReader([]byte(tt.body)))
			rr := httptest.NewRecorder()
			ctrl.Login(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			var envelope helpers.APIResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))

			if tt.wantStatus == http.StatusOK {
				require.Nil(t, envelope.Error)
				dataBytes, err := json.Marshal(envelope.Data)
				require.NoError(t, err)
				var resp LoginResponse
				require.NoError(t, json.Unmarshal(dataBytes, &resp))
				assert.Equal(t, tt.wantToken, resp.Token)
				assert.Equal(t, "Bearer", resp.TokenType)
				return
			}
			require.NotNil(t, envelope.Error)
			assert.Equal(t, tt.wantBodyCode, envelope.Error.Code)
		})
	}
}
