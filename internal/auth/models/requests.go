package models

import (
	"strings"

	"github.com/asaskevich/govalidator"

	"auditflow/pkg/domain"
	dErrors "auditflow/pkg/domain-errors"
)

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Validate enforces the registration constraints before anything reaches
// storage. Messages name the offending field.
func (r *RegisterRequest) Validate() error {
	switch {
	case r.Username == "":
		return validation(`"username" is required`)
	case !govalidator.IsAlphanumeric(r.Username):
		return validation(`"username" must only contain alpha-numeric characters`)
	case !govalidator.StringLength(r.Username, "3", "30"):
		if len(r.Username) < 3 {
			return validation(`"username" length must be at least 3 characters long`)
		}
		return validation(`"username" length must be less than or equal to 30 characters long`)
	case r.Password == "":
		return validation(`"password" is required`)
	case !govalidator.MinStringLength(r.Password, "6"):
		return validation(`"password" length must be at least 6 characters long`)
	case r.Role == "":
		return validation(`"role" is required`)
	}
	if _, err := domain.ParseRole(r.Role); err != nil {
		return err
	}
	return nil
}

type RegisterResponse struct {
	Message string        `json:"message"`
	UserID  domain.UserID `json:"userId"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	if strings.TrimSpace(r.Username) == "" || r.Password == "" {
		return validation("Missing fields")
	}
	return nil
}

type LoginResponse struct {
	Message string          `json:"message"`
	User    domain.Identity `json:"user"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func validation(msg string) error {
	return dErrors.New(dErrors.CodeValidation, msg)
}
