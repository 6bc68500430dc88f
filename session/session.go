// Package session owns the client-side authentication lifecycle: the current
// identity, the access/refresh token pair, and the operations that move a
// session between anonymous and authenticated states.
package session

import "time"

// TempUserID is the placeholder identity assigned between the initial auth
// response and completion of the profile fetch. It is a transient marker,
// never a stable identifier.
const TempUserID = "temp-id"

// User is the identity record held by the session and returned by the remote
// API's profile endpoint.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username,omitempty"`
	Firstname string    `json:"firstname,omitempty"`
	Lastname  string    `json:"lastname,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	PushToken string    `json:"fcmToken,omitempty"`
}

// State identifies where the session is in its lifecycle.
type State string

const (
	StateAnonymous      State = "anonymous"      // no tokens held
	StateAuthenticating State = "authenticating" // login/register in flight
	StateAuthenticated  State = "authenticated"  // access token present
	StateRefreshing     State = "refreshing"     // access token being renewed
)

// Session is a point-in-time snapshot of the manager's state. IsAuthenticated
// is always derived from token presence; the two never diverge.
type Session struct {
	User            *User
	AccessToken     string
	RefreshToken    string
	IsAuthenticated bool
	IsLoading       bool
	Err             string
}
