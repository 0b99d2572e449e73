package auth

import (
	"context"
	"strings"

	"github.com/cuemby/carebook/pkg/events"
	"github.com/cuemby/carebook/pkg/nav"
	"github.com/cuemby/carebook/pkg/types"
	"github.com/cuemby/carebook/pkg/validate"
)

// RegistrationForm is the sign-up form as entered by the user
type RegistrationForm struct {
	Email           string     `json:"email" validate:"required,email"`
	Password        string     `json:"password" validate:"min=6"`
	ConfirmPassword string     `json:"confirm_password" validate:"eqfield=Password"`
	FirstName       string     `json:"first_name" validate:"min=2"`
	LastName        string     `json:"last_name" validate:"min=2"`
	Role            types.Role `json:"role" validate:"oneof=CLIENT PROVIDER"`
	Phone           string     `json:"phone" validate:"omitempty,max=20"`
}

// Validate checks the form locally, on the values Registration will send.
// It returns nil or validate.Errors.
func (f *RegistrationForm) Validate() error {
	trimmed := f.trimmed()
	return validate.Struct(&trimmed)
}

// Registration converts the form to the backend payload
func (f *RegistrationForm) Registration() *types.Registration {
	trimmed := f.trimmed()
	return &types.Registration{
		Email:     trimmed.Email,
		Password:  trimmed.Password,
		Role:      trimmed.Role,
		FirstName: trimmed.FirstName,
		LastName:  trimmed.LastName,
		Phone:     trimmed.Phone,
	}
}

// trimmed copies the form with surrounding spaces removed. Passwords are kept as typed.
func (f *RegistrationForm) trimmed() RegistrationForm {
	out := *f
	out.Email = strings.TrimSpace(out.Email)
	out.FirstName = strings.TrimSpace(out.FirstName)
	out.LastName = strings.TrimSpace(out.LastName)
	out.Phone = strings.TrimSpace(out.Phone)
	return out
}

// Register validates form and creates the account. On success the user is
// sent to login; registering does not sign in.
func (c *Context) Register(ctx context.Context, form *RegistrationForm) (*types.User, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}

	user, err := c.api.Register(ctx, form.Registration())
	if err != nil {
		return nil, err
	}

	c.publish(events.EventAccountRegistered, "account created", map[string]string{
		events.MetaRoute: string(nav.RouteLogin),
		events.MetaRole:  string(user.Role),
	})
	c.logger.Info().Str("role", string(user.Role)).Msg("account registered")
	return user, nil
}
