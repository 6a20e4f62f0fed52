package config

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

// ServiceName namespaces notiondb entries in the OS keyring.
const ServiceName = "notiondb"

// keyToken is the keyring item holding the API token.
const keyToken = "api_token"

// ErrNoToken is returned when no token is stored.
var ErrNoToken = errors.New("no token stored")

// TokenStore keeps the API token outside the config file.
type TokenStore interface {
	Get() (string, error)
	Set(token string) error
	Delete() error
}

// KeyringStore stores the token in a keyring.
type KeyringStore struct {
	ring keyring.Keyring
}

// NewKeyringStore wraps an open keyring.
func NewKeyringStore(ring keyring.Keyring) *KeyringStore {
	return &KeyringStore{ring: ring}
}

// OpenKeyring opens the OS keyring, using whichever native backend the
// platform offers.
func OpenKeyring() (*KeyringStore, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName:              ServiceName,
		KeychainTrustApplication: true,
		PassPrefix:               ServiceName,
		WinCredPrefix:            ServiceName,
		LibSecretCollectionName:  ServiceName,
	})
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	return NewKeyringStore(ring), nil
}

// Get returns the stored token or ErrNoToken.
func (s *KeyringStore) Get() (string, error) {
	item, err := s.ring.Get(keyToken)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", err
	}
	return string(item.Data), nil
}

// Set stores the token, replacing any previous one.
func (s *KeyringStore) Set(token string) error {
	if token == "" {
		return errors.New("token is empty")
	}
	return s.ring.Set(keyring.Item{
		Key:         keyToken,
		Data:        []byte(token),
		Label:       "notiondb API token",
		Description: "Notion integration token used by notiondb",
	})
}

// Delete removes the token. Deleting a missing token is not an error.
func (s *KeyringStore) Delete() error {
	err := s.ring.Remove(keyToken)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil
	}
	return err
}
