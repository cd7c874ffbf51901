package session

// Session is the access/refresh token pair identifying an authenticated user.
//
// The zero value is the unauthenticated session.
type Session struct {
	AccessToken  string
	RefreshToken string
}

// Empty reports whether the session carries no credentials.
func (s Session) Empty() bool {
	return s.AccessToken == "" && s.RefreshToken == ""
}

// Complete reports whether both tokens are present.
func (s Session) Complete() bool {
	return s.AccessToken != "" && s.RefreshToken != ""
}
