package driver

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Cherry1177/cloudtribe/internal/models"
	"github.com/Cherry1177/cloudtribe/internal/session"
)

// ErrSignInRequired blocks the driver-application form for users without a
// real signed-in identity.
var ErrSignInRequired = &UserError{Message: "請先按右上角的登入"}

// OnboardingBackend is the slice of the REST client onboarding needs.
type OnboardingBackend interface {
	CreateDriver(ctx context.Context, driver models.Driver) (*models.Driver, error)
	MarkUserAsDriver(ctx context.Context, userID int) error
}

// Onboarding gates and runs the become-a-driver flow.
type Onboarding struct {
	store   session.Store
	backend OnboardingBackend
	logger  *zap.Logger
}

func NewOnboarding(store session.Store, backend OnboardingBackend, logger *zap.Logger) *Onboarding {
	return &Onboarding{store: store, backend: backend, logger: logger}
}

// CanApply permits opening the application form only for a signed-in user
// with a non-placeholder identity.
func CanApply(user *models.User) error {
	if !user.SignedIn() {
		return ErrSignInRequired
	}
	return nil
}

// Apply registers the driver profile for the signed-in user and marks the
// session user as a driver immediately, so every open screen reflects the
// change without a reload.
func (o *Onboarding) Apply(ctx context.Context, form models.Driver) (*models.Driver, error) {
	user := o.store.Current()
	if err := CanApply(user); err != nil {
		return nil, err
	}

	form.UserID = user.ID
	created, err := o.backend.CreateDriver(ctx, form)
	if err != nil {
		return nil, &UserError{Message: "司機申請失敗", Err: err}
	}

	if err := o.backend.MarkUserAsDriver(ctx, user.ID); err != nil {
		return nil, &UserError{Message: "司機申請失敗", Err: err}
	}

	user.IsDriver = true
	if err := o.store.Set(user); err != nil {
		return nil, fmt.Errorf("persisting driver flag: %w", err)
	}

	o.logger.Info("driver registered",
		zap.Int("user_id", user.ID),
		zap.Int("driver_id", created.ID))
	return created, nil
}
