package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTokenFactory struct{}

func (fakeTokenFactory) Generate(username string) (string, error) {
	return "token-for-" + username, nil
}

func TestAdminLogin(t *testing.T) {
	admin := NewAdmin(AdminConfig{Username: "admin", Password: "s3cret"}, fakeTokenFactory{})

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{
			name:     "valid credentials",
			username: "admin",
			password: "s3cret",
		},
		{
			name:     "wrong password",
			username: "admin",
			password: "wrong",
			wantErr:  ErrInvalidCredentials,
		},
		{
			name:     "wrong username",
			username: "root",
			password: "s3cret",
			wantErr:  ErrInvalidCredentials,
		},
		{
			name:     "empty credentials",
			username: "",
			password: "",
			wantErr:  ErrInvalidCredentials,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			token, err := admin.Login(context.Background(), test.username, test.password)
			if test.wantErr != nil {
				assert.ErrorIs(t, err, test.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "token-for-admin", token)
		})
	}
}
