package service

import (
	"context"
	"crypto/subtle"
	"fmt"
)

type AdminConfig struct {
	Username string
	Password string
}

type Admin struct {
	cfg          AdminConfig
	tokenFactory TokenFactory
}

func NewAdmin(cfg AdminConfig, tokenFactory TokenFactory) *Admin {
	return &Admin{
		cfg:          cfg,
		tokenFactory: tokenFactory,
	}
}

func (a *Admin) Login(_ context.Context, username, password string) (string, error) {
	usernameMatches := subtle.ConstantTimeCompare([]byte(username), []byte(a.cfg.Username)) == 1
	passwordMatches := subtle.ConstantTimeCompare([]byte(password), []byte(a.cfg.Password)) == 1
	if !usernameMatches || !passwordMatches {
		return "", ErrInvalidCredentials
	}

	token, err := a.tokenFactory.Generate(username)
	if err != nil {
		return "", fmt.Errorf("error generating token: %w", err)
	}
	return token, nil
}
