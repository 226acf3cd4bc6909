// Package settings stores the per-user preferences of the portal.
package settings

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
)

var ErrNotFound = core.NewNotFoundError("preferences")

type (
	NotificationPrefs struct {
		Email bool `json:"email"`
		Push  bool `json:"push"`
		SMS   bool `json:"sms"`
	}

	Preferences struct {
		UserID          string                 `json:"user_id"`
		Theme           string                 `json:"theme" validate:"required,oneof=light dark system"`
		Language        string                 `json:"language" validate:"required,min=2,max=10"`
		Notifications   NotificationPrefs      `json:"notifications"`
		DashboardLayout map[string]interface{} `json:"dashboard_layout"`
		UpdatedAt       time.Time              `json:"updated_at"` // UTC
	}

	Repository interface {
		// GetPreferences returns ErrNotFound when the user never saved preferences.
		GetPreferences(ctx context.Context, userID string, exec ...core.DBExecutor) (Preferences, error)
		SavePreferences(ctx context.Context, p Preferences, exec ...core.DBExecutor) (Preferences, error)
		DeletePreferences(ctx context.Context, userID string, exec ...core.DBExecutor) error
	}

	Service interface {
		Get(ctx context.Context, userID string) (Preferences, error)
		Save(ctx context.Context, userID string, p Preferences) (Preferences, error)
		Reset(ctx context.Context, userID string) (Preferences, error)
	}

	service struct {
		repo Repository
	}
)

// Defaults returns the preferences of a user who never saved any.
func Defaults(userID string) Preferences {
	return Preferences{
		UserID:          userID,
		Theme:           "light",
		Language:        "en",
		Notifications:   NotificationPrefs{Email: true, Push: true},
		DashboardLayout: map[string]interface{}{},
	}
}

func (p *Preferences) Validate(validate *validator.Validate) error {
	p.Theme = core.CleanString(p.Theme, true /* lower */)
	p.Language = core.CleanString(p.Language, true /* lower */)
	if p.DashboardLayout == nil {
		p.DashboardLayout = map[string]interface{}{}
	}
	return validate.Struct(p)
}

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Get(ctx context.Context, userID string) (Preferences, error) {
	p, err := svc.repo.GetPreferences(ctx, userID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Defaults(userID), nil
		}
		return Preferences{}, err
	}
	return p, nil
}

func (svc *service) Save(ctx context.Context, userID string, p Preferences) (Preferences, error) {
	p.UserID = userID
	p.UpdatedAt = core.NowFunc().UTC()
	return svc.repo.SavePreferences(ctx, p)
}

func (svc *service) Reset(ctx context.Context, userID string) (Preferences, error) {
	if err := svc.repo.DeletePreferences(ctx, userID); err != nil && errors.Cause(err) != ErrNotFound {
		return Preferences{}, err
	}
	return Defaults(userID), nil
}
