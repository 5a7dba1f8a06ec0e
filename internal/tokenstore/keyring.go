package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"os/user"
	"strings"

	"github.com/zalando/go-keyring"
)

// DefaultKeyringService is the keyring service name tokens are stored under.
const DefaultKeyringService = "gitbruv-github-token"

// KeyringStore caches the token in the OS credential store
// (macOS Keychain, Windows Credential Manager, Linux Secret Service).
type KeyringStore struct {
	service string
	account string
}

var _ TokenStore = (*KeyringStore)(nil)

// NewKeyringStore returns a store for the keyring entry service/account.
// An empty account falls back to the name of the current OS user.
func NewKeyringStore(service, account string) (*KeyringStore, error) {
	if service == "" {
		return nil, errors.New("keyring service cannot be empty")
	}

	if account == "" {
		u, err := user.Current()
		if err != nil {
			return nil, fmt.Errorf("resolving keyring account: %w", err)
		}
		account = u.Username
	}

	return &KeyringStore{service: service, account: account}, nil
}

func (k *KeyringStore) String() string {
	return "keyring " + k.service + "/" + k.account
}

// Read returns the cached token. A missing or blank entry yields ErrNotFound.
func (k *KeyringStore) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	secret, err := keyring.Get(k.service, k.account)
	switch {
	case errors.Is(err, keyring.ErrNotFound):
		return "", ErrNotFound
	case err != nil:
		return "", fmt.Errorf("reading %s: %w", k, err)
	}

	if secret = strings.TrimSpace(secret); secret == "" {
		return "", ErrNotFound
	}
	return secret, nil
}

// Write replaces the keyring entry with token.
func (k *KeyringStore) Write(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("refusing to store an empty token")
	}

	if err := keyring.Set(k.service, k.account, token); err != nil {
		return fmt.Errorf("writing %s: %w", k, err)
	}
	return nil
}
