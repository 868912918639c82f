package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"echochat-backend/internal/models"
)

func TestValidateRegistration(t *testing.T) {
	valid := func() models.RegisterRequest {
		return models.RegisterRequest{
			Username:        "alice",
			Email:           "a@x.com",
			Password:        "Str0ngP@ss",
			ConfirmPassword: "Str0ngP@ss",
		}
	}

	tests := []struct {
		name    string
		mutate  func(r *models.RegisterRequest)
		wantErr string
	}{
		{name: "valid", mutate: func(r *models.RegisterRequest) {}},
		{name: "whitespace around username is trimmed", mutate: func(r *models.RegisterRequest) { r.Username = "  alice  " }},
		{name: "empty username", mutate: func(r *models.RegisterRequest) { r.Username = "   " }, wantErr: "username is required"},
		{name: "short username", mutate: func(r *models.RegisterRequest) { r.Username = "al" }, wantErr: "username must be"},
		{name: "long username", mutate: func(r *models.RegisterRequest) { r.Username = "abcdefghijklmnopqrstu" }, wantErr: "username must be"},
		{name: "username with symbols", mutate: func(r *models.RegisterRequest) { r.Username = "al-ice" }, wantErr: "username must be"},
		{name: "empty email", mutate: func(r *models.RegisterRequest) { r.Email = "" }, wantErr: "email is required"},
		{name: "malformed email", mutate: func(r *models.RegisterRequest) { r.Email = "not-an-email" }, wantErr: "invalid email"},
		{name: "display name email", mutate: func(r *models.RegisterRequest) { r.Email = "Alice <a@x.com>" }, wantErr: "invalid email"},
		{name: "short password", mutate: func(r *models.RegisterRequest) { r.Password, r.ConfirmPassword = "S0@a", "S0@a" }, wantErr: "at least 8"},
		{name: "no symbol", mutate: func(r *models.RegisterRequest) { r.Password, r.ConfirmPassword = "Str0ngPass", "Str0ngPass" }, wantErr: "password needs"},
		{name: "no digit", mutate: func(r *models.RegisterRequest) { r.Password, r.ConfirmPassword = "StrongP@ss", "StrongP@ss" }, wantErr: "password needs"},
		{name: "password over 72 bytes", mutate: func(r *models.RegisterRequest) {
			r.Password = "Aa1!" + strings.Repeat("x", 76)
			r.ConfirmPassword = r.Password
		}, wantErr: "at most 72 bytes"},
		{name: "password of exactly 72 bytes", mutate: func(r *models.RegisterRequest) {
			r.Password = "Aa1!" + strings.Repeat("x", 68)
			r.ConfirmPassword = r.Password
		}},
		{name: "mismatch", mutate: func(r *models.RegisterRequest) { r.ConfirmPassword = "Str0ngP@ss!" }, wantErr: "do not match"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(&req)

			err := ValidateRegistration(&req)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrValidation)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
