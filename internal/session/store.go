package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Cherry1177/cloudtribe/internal/models"
)

// Store keeps the signed-in user's identity and tells every subscriber
// whenever it changes. It replaces the browser localStorage record plus
// the window-wide "userDataChanged" event of the original client.
type Store interface {
	// Current returns the signed-in user, or nil when nobody is.
	Current() *models.User
	// Set persists the user and broadcasts the change.
	Set(user *models.User) error
	// Clear removes the persisted user and broadcasts a nil user.
	Clear() error
	// Subscribe registers a change listener. The returned func cancels it.
	Subscribe(fn func(*models.User)) (cancel func())
}

// notifier implements the subscribe/broadcast half shared by the stores.
type notifier struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(*models.User)
}

func (n *notifier) Subscribe(fn func(*models.User)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs == nil {
		n.subs = make(map[int]func(*models.User))
	}
	id := n.nextID
	n.nextID++
	n.subs[id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
}

func (n *notifier) broadcast(user *models.User) {
	n.mu.Lock()
	subs := make([]func(*models.User), 0, len(n.subs))
	for _, fn := range n.subs {
		subs = append(subs, fn)
	}
	n.mu.Unlock()

	for _, fn := range subs {
		fn(cloneUser(user))
	}
}

func cloneUser(user *models.User) *models.User {
	if user == nil {
		return nil
	}
	u := *user
	return &u
}

// rawUser shadows is_driver so legacy records survive decoding.
type rawUser struct {
	ID       int             `json:"id"`
	Name     string          `json:"name"`
	Phone    string          `json:"phone"`
	Location string          `json:"location"`
	IsDriver json.RawMessage `json:"is_driver"`
}

// decodeUser is the single place the legacy string-typed is_driver field
// is coerced back to a boolean. Old records were written with
// is_driver="true"/"false"; the coercion must not leak past this boundary.
func decodeUser(data []byte) (*models.User, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, nil
	}

	var raw rawUser
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding session user: %w", err)
	}

	user := &models.User{
		ID:       raw.ID,
		Name:     raw.Name,
		Phone:    raw.Phone,
		Location: raw.Location,
	}

	isDriver, err := coerceBool(raw.IsDriver)
	if err != nil {
		return nil, fmt.Errorf("decoding session user: %w", err)
	}
	user.IsDriver = isDriver

	return user, nil
}

func coerceBool(raw json.RawMessage) (bool, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return false, nil
	}

	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return false, fmt.Errorf("is_driver is neither bool nor string: %s", raw)
	}
	return s == "true", nil
}
