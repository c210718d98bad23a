package auth

import (
	"errors"
	"os"
	"strings"
)

var ErrCredentialsNotFound = errors.New("spotify credentials not found")

type Credentials struct {
	ClientID     string
	ClientSecret string
}

type CredentialsResolver struct {
	Getenv func(string) string
}

func ResolveCredentials() (Credentials, error) {
	return CredentialsResolver{Getenv: os.Getenv}.Resolve()
}

func (r CredentialsResolver) Resolve() (Credentials, error) {
	getenv := r.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	creds := Credentials{
		ClientID:     strings.TrimSpace(getenv("SPOTIFY_CLIENT_ID")),
		ClientSecret: strings.TrimSpace(getenv("SPOTIFY_CLIENT_SECRET")),
	}
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return Credentials{}, ErrCredentialsNotFound
	}
	return creds, nil
}
