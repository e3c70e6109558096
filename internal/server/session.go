package server

// SessionState is the per-browser-session authentication record, carried in
// the signed session cookie. It is written only when a callback completes
// (successfully or not) and cleared by logout.
type SessionState struct {
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
	Subject  string `json:"sub,omitempty"`
	Provider string `json:"provider,omitempty"`
	Origin   string `json:"origin,omitempty"`
	Error    string `json:"error,omitempty"`
	LoggedIn bool   `json:"logged_in"`
}

// IsLoggedIn reports whether this session belongs to an authenticated user.
func (s SessionState) IsLoggedIn() bool {
	return s.LoggedIn && s.Email != ""
}
