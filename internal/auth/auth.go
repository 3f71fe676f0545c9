// Package auth runs the OAuth flows for the remote backends and keeps their
// credentials and tokens under ~/.drivesync.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"
	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
)

type Provider interface {
	Name() string
	Authorize() error
}

type GDriveProvider interface {
	Provider
	NewService(ctx context.Context) (*drive.Service, error)
}

type DropboxProvider interface {
	Provider
	NewClient(ctx context.Context) (files.Client, error)
}

var (
	GDrive  GDriveProvider  = &gdriveProvider{}
	Dropbox DropboxProvider = &dropboxProvider{}
)

// Lookup returns the provider registered under name.
func Lookup(name string) (Provider, error) {
	for _, p := range []Provider{GDrive, Dropbox} {
		if p.Name() == name {
			return p, nil
		}
	}

	return nil, fmt.Errorf("unknown provider: %s", name)
}

// Dir returns ~/.drivesync, creating it when missing.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	dir := filepath.Join(home, ".drivesync")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}

	return dir, nil
}

func saveToken(name string, token *oauth2.Token) (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}

	b, err := json.Marshal(token)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, b, 0600); err != nil {
		return "", fmt.Errorf("failed to save token: %w", err)
	}

	return path, nil
}

func loadToken(name string) (*oauth2.Token, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}

	b, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return nil, err
	}

	var token oauth2.Token
	if err := json.Unmarshal(b, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	return &token, nil
}

func readCredentials(name string) ([]byte, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}

	b, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("%s not found in ~/.drivesync: %w", name, err)
	}

	return b, nil
}

// refresh returns a token source that persists rotated tokens.
func refresh(ctx context.Context, cfg *oauth2.Config, token *oauth2.Token, file string) (oauth2.TokenSource, error) {
	tokenSource := cfg.TokenSource(ctx, token)

	newToken, err := tokenSource.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}

	if newToken.AccessToken != token.AccessToken {
		_, _ = saveToken(file, newToken)
	}

	return tokenSource, nil
}
