package driver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/Cherry1177/cloudtribe/internal/models"
)

type mockStore struct {
	user *models.User
	sets []*models.User
}

func (m *mockStore) Current() *models.User { return m.user }

func (m *mockStore) Set(user *models.User) error {
	m.user = user
	m.sets = append(m.sets, user)
	return nil
}

func (m *mockStore) Clear() error { m.user = nil; return nil }

func (m *mockStore) Subscribe(func(*models.User)) func() { return func() {} }

type mockOnboardingBackend struct {
	CreateDriverFunc     func(ctx context.Context, driver models.Driver) (*models.Driver, error)
	MarkUserAsDriverFunc func(ctx context.Context, userID int) error
}

func (m *mockOnboardingBackend) CreateDriver(ctx context.Context, driver models.Driver) (*models.Driver, error) {
	return m.CreateDriverFunc(ctx, driver)
}

func (m *mockOnboardingBackend) MarkUserAsDriver(ctx context.Context, userID int) error {
	return m.MarkUserAsDriverFunc(ctx, userID)
}

func TestCanApply(t *testing.T) {
	tests := []struct {
		name    string
		user    *models.User
		blocked bool
	}{
		{"nil user", nil, true},
		{"placeholder id", &models.User{ID: 0, Name: "王小明", Phone: "0911000111"}, true},
		{"sentinel name", &models.User{ID: 3, Name: "empty", Phone: "0911000111"}, true},
		{"sentinel phone", &models.User{ID: 3, Name: "王小明", Phone: "empty"}, true},
		{"real identity", &models.User{ID: 3, Name: "王小明", Phone: "0911000111"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanApply(tt.user)
			if tt.blocked {
				assert.ErrorIs(t, err, ErrSignInRequired)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestApply_BlockedWithoutSignIn(t *testing.T) {
	store := &mockStore{}
	backend := &mockOnboardingBackend{
		CreateDriverFunc: func(context.Context, models.Driver) (*models.Driver, error) {
			t.Fatal("no call expected")
			return nil, nil
		},
	}
	o := NewOnboarding(store, backend, zap.NewNop())

	_, err := o.Apply(context.Background(), models.Driver{})
	assert.ErrorIs(t, err, ErrSignInRequired)
}

func TestApply_MarksSessionUserAsDriver(t *testing.T) {
	store := &mockStore{user: &models.User{ID: 3, Name: "王小明", Phone: "0911000111"}}
	backend := &mockOnboardingBackend{
		CreateDriverFunc: func(_ context.Context, form models.Driver) (*models.Driver, error) {
			assert.Equal(t, 3, form.UserID)
			created := form
			created.ID = 17
			return &created, nil
		},
		MarkUserAsDriverFunc: func(_ context.Context, userID int) error {
			assert.Equal(t, 3, userID)
			return nil
		},
	}
	o := NewOnboarding(store, backend, zap.NewNop())

	created, err := o.Apply(context.Background(), models.Driver{Name: "王小明", Phone: "0911000111"})

	assert.NoError(t, err)
	assert.Equal(t, 17, created.ID)
	// The session reflects driver status immediately, without a reload.
	assert.Len(t, store.sets, 1)
	assert.True(t, store.user.IsDriver)
}

func TestApply_BackendFailureDoesNotTouchSession(t *testing.T) {
	store := &mockStore{user: &models.User{ID: 3, Name: "王小明", Phone: "0911000111"}}
	backend := &mockOnboardingBackend{
		CreateDriverFunc: func(context.Context, models.Driver) (*models.Driver, error) {
			return nil, errors.New("boom")
		},
	}
	o := NewOnboarding(store, backend, zap.NewNop())

	_, err := o.Apply(context.Background(), models.Driver{})

	var ue *UserError
	assert.ErrorAs(t, err, &ue)
	assert.Empty(t, store.sets)
	assert.False(t, store.user.IsDriver)
}
