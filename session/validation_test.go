package session

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateCredentials(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{name: "valid", email: "a@b.com", password: "secret"},
		{name: "surrounding whitespace trimmed", email: "  a@b.com  ", password: "secret"},
		{name: "empty email", email: "", password: "secret", wantErr: EmailRequiredErr},
		{name: "whitespace only email", email: "   ", password: "secret", wantErr: EmailRequiredErr},
		{name: "missing at sign", email: "ab.com", password: "secret", wantErr: InvalidEmailErr},
		{name: "missing dot", email: "a@bcom", password: "secret", wantErr: InvalidEmailErr},
		{name: "empty password", email: "a@b.com", password: "", wantErr: PasswordRequiredErr},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := validateCredentials(tc.email, tc.password)
			if tc.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestValidatePasswordChange(t *testing.T) {
	require.NoError(t, validatePasswordChange("old", "new"))
	require.ErrorIs(t, validatePasswordChange("", "new"), PasswordRequiredErr)
	require.ErrorIs(t, validatePasswordChange("old", ""), PasswordRequiredErr)
	require.ErrorIs(t, validatePasswordChange("same", "same"), SamePasswordErr)
}
