package goSession

// Actor selects one of the two independent dashboards.
type Actor string

const (
	ActorAdmin Actor = "admin"
	ActorTutor Actor = "tutor"
)

func (a Actor) Valid() bool {
	return a == ActorAdmin || a == ActorTutor
}

// User is the profile returned by the login endpoint, or the submitted username when
// the backend returns none.
type User struct {
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
}

// AuthState is the session state observed by guards.
//
// Loading is true from construction until Restore completes. While Loading, guards
// must not redirect.
type AuthState struct {
	IsAuthenticated bool
	Loading         bool
	User            *User
}
