// Package session is the client's local session cache: a small sqlite
// key-value store holding the signed-in state. The identity service is its
// only writer; everything else treats it as read-only.
package session

// Session is the cached sign-in state. Invariant: SignedIn implies a
// non-empty UserID; Load repairs records that violate it by reporting them
// signed out.
type Session struct {
	SignedIn       bool
	UserID         string
	DisplayName    string
	AvatarEncoding string
}

// Anonymous is the signed-out session value.
func Anonymous() Session {
	return Session{}
}
