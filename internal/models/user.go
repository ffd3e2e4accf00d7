package models

const (
	// SentinelEmpty is what the backend stores for a user that signed up
	// without completing their profile.
	SentinelEmpty = "empty"
)

// User is the signed-in identity kept in the local session store.
type User struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Location string `json:"location,omitempty"`
	IsDriver bool   `json:"is_driver"`
}

// SignedIn reports whether the user carries a real identity rather than
// the placeholder record the client seeds before login.
func (u *User) SignedIn() bool {
	if u == nil {
		return false
	}
	return u.ID != 0 && u.Name != SentinelEmpty && u.Phone != SentinelEmpty
}
