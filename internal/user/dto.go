package user

import (
	"strings"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/core/common/validation"
)

// CreateUserDTO is the body of POST /users.
type CreateUserDTO struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (d *CreateUserDTO) Validate(usernameMinLen, passwordMinLen int) *internal.AppError {
	d.Username = strings.TrimSpace(d.Username)

	v := validation.NewValidator()
	v.Field("username", d.Username).
		Required(internal.ErrCodeInvalidUsername).
		MinLength(usernameMinLen, internal.ErrCodeInvalidUsername)
	v.Field("password", d.Password).
		Required(internal.ErrCodeInvalidPassword).
		MinLength(passwordMinLen, internal.ErrCodeInvalidPassword)
	return v.Validate()
}
