package auth

import (
	"strings"

	"github.com/frahmantamala/company-authz/internal"
	"github.com/frahmantamala/company-authz/internal/core/common/validation"
)

// LoginDTO is the transport shape used by the HTTP handler to accept login requests.
type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshTokenDTO for refresh token requests
type RefreshTokenDTO struct {
	RefreshToken string `json:"refresh_token"`
}

func (d *LoginDTO) Normalize() {
	d.Email = strings.ToLower(strings.TrimSpace(d.Email))
}

func (d LoginDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().MaxLength(255).Custom(emailShape)
	v.Field("password", d.Password).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

func (d RefreshTokenDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("refresh_token", d.RefreshToken).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// emailShape only rejects values that cannot be an address; empty input is
// left to Required.
func emailShape(value interface{}) *internal.AppError {
	email, _ := value.(string)
	if email == "" {
		return nil
	}
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || !strings.Contains(domain, ".") {
		return internal.NewValidationFieldError("email", "email is not a valid address", internal.ErrCodeValidationFailed)
	}
	return nil
}
