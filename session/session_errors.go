package session

import "errors"

var (
	// InvalidCredentialsErr is the normalized sign-in failure. Authorization
	// failures from the sign-in endpoint all collapse to this message so
	// callers cannot probe whether an account exists.
	InvalidCredentialsErr = errors.New("invalid email or password")

	NotAuthenticatedErr  = errors.New("not authenticated")
	EmailRequiredErr     = errors.New("email is required")
	InvalidEmailErr      = errors.New("invalid email format")
	PasswordRequiredErr  = errors.New("password is required")
	ProviderTokenErr     = errors.New("identity provider token is required")
	InvalidProfileErr    = errors.New("invalid user data received")
	SamePasswordErr      = errors.New("new password must differ from the old password")
)
