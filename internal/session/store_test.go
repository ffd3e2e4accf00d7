package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Cherry1177/cloudtribe/internal/models"
)

func TestDecodeUser_LegacyStringDriverFlag(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		isDriver bool
	}{
		{"bool true", `{"id":1,"name":"王小明","phone":"0911","is_driver":true}`, true},
		{"bool false", `{"id":1,"name":"王小明","phone":"0911","is_driver":false}`, false},
		{"string true", `{"id":1,"name":"王小明","phone":"0911","is_driver":"true"}`, true},
		{"string false", `{"id":1,"name":"王小明","phone":"0911","is_driver":"false"}`, false},
		{"absent", `{"id":1,"name":"王小明","phone":"0911"}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := decodeUser([]byte(tt.payload))
			assert.NoError(t, err)
			assert.Equal(t, tt.isDriver, user.IsDriver)
			assert.Equal(t, 1, user.ID)
		})
	}
}

func TestDecodeUser_EmptyAndNull(t *testing.T) {
	for _, payload := range []string{"", "  ", "null"} {
		user, err := decodeUser([]byte(payload))
		assert.NoError(t, err)
		assert.Nil(t, user)
	}
}

func TestDecodeUser_Malformed(t *testing.T) {
	_, err := decodeUser([]byte(`{"is_driver":42}`))
	assert.Error(t, err)
}

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	store, err := NewFileStore(path)
	assert.NoError(t, err)
	assert.Nil(t, store.Current())

	user := &models.User{ID: 3, Name: "王小明", Phone: "0911000111", IsDriver: true}
	assert.NoError(t, store.Set(user))
	assert.Equal(t, user, store.Current())

	// A fresh store sees the persisted record.
	reopened, err := NewFileStore(path)
	assert.NoError(t, err)
	assert.Equal(t, user, reopened.Current())

	assert.NoError(t, store.Clear())
	assert.Nil(t, store.Current())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFileStore_ReadsLegacyRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	legacy := `{"id":9,"name":"阿美","phone":"0922333444","is_driver":"true"}`
	assert.NoError(t, os.WriteFile(path, []byte(legacy), 0o600))

	store, err := NewFileStore(path)
	assert.NoError(t, err)

	user := store.Current()
	assert.True(t, user.IsDriver)
	assert.Equal(t, 9, user.ID)
}

func TestFileStore_BroadcastsChanges(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	assert.NoError(t, err)

	var seen []*models.User
	cancel := store.Subscribe(func(user *models.User) {
		seen = append(seen, user)
	})

	user := &models.User{ID: 3, Name: "王小明", Phone: "0911000111"}
	assert.NoError(t, store.Set(user))
	assert.NoError(t, store.Clear())

	assert.Len(t, seen, 2)
	assert.Equal(t, 3, seen[0].ID)
	assert.Nil(t, seen[1])

	// Subscribers get their own copy, not the cached record.
	seen[0].Name = "mutated"
	assert.Equal(t, "王小明", store.Current().Name)

	cancel()
	assert.NoError(t, store.Set(user))
	assert.Len(t, seen, 2)
}

func TestFileStore_MissingFileMeansSignedOut(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "absent.json"))
	assert.NoError(t, err)
	assert.Nil(t, store.Current())
}
