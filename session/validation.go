package session

import "strings"

// Input validation catches malformed user input before any network call is
// made. Validation failures never mutate session state.

func validateCredentials(email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return EmailRequiredErr
	}
	if !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		return InvalidEmailErr
	}
	if password == "" {
		return PasswordRequiredErr
	}
	return nil
}

func validatePasswordChange(oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return PasswordRequiredErr
	}
	if oldPassword == newPassword {
		return SamePasswordErr
	}
	return nil
}
