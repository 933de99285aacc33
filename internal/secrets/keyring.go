// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

package secrets

import (
	"encoding/json"
	"errors"
	"log/slog"
	"slices"

	scribeerr "github.com/scribe-dev/scribe/pkg/errors"
	"github.com/zalando/go-keyring"
)

// keysIndexSuffix names the entry holding a JSON list of stored keys, since
// go-keyring cannot enumerate.
const keysIndexSuffix = "::keys-index"

// KeyringStore implements Store on top of the OS keyring (Keychain,
// secret-service or Credential Manager).
type KeyringStore struct{}

// NewKeyringStore returns a KeyringStore.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{}
}

func (s *KeyringStore) Store(service, key, value string) error {
	if err := checkKey("store", service, key); err != nil {
		return err
	}

	if err := keyring.Set(service, key, value); err != nil {
		return scribeerr.Wrapf(err, scribeerr.CodeSecretStoreFailure, "storing secret %s/%s", service, key)
	}

	return s.addToIndex(service, key)
}

func (s *KeyringStore) Retrieve(service, key string) (string, error) {
	if err := checkKey("retrieve", service, key); err != nil {
		return "", err
	}

	val, err := keyring.Get(service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", scribeerr.Errorf(scribeerr.CodeSecretNotFound, "secret %s/%s not found", service, key)
		}
		return "", scribeerr.Wrapf(err, scribeerr.CodeSecretStoreFailure, "retrieving secret %s/%s", service, key)
	}
	return val, nil
}

func (s *KeyringStore) Delete(service, key string) error {
	if err := checkKey("delete", service, key); err != nil {
		return err
	}

	if err := keyring.Delete(service, key); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return scribeerr.Errorf(scribeerr.CodeSecretNotFound, "secret %s/%s not found", service, key)
		}
		return scribeerr.Wrapf(err, scribeerr.CodeSecretDeleteFailure, "deleting secret %s/%s", service, key)
	}

	return s.removeFromIndex(service, key)
}

// List returns the key names stored for service, in insertion order.
func (s *KeyringStore) List(service string) ([]string, error) {
	if service == "" {
		return nil, scribeerr.New(scribeerr.CodeSecretInvalidInput, "secret list: service must not be empty")
	}
	return s.loadIndex(service)
}

func checkKey(op, service, key string) error {
	if service == "" {
		return scribeerr.Errorf(scribeerr.CodeSecretInvalidInput, "secret %s: service must not be empty", op)
	}
	if key == "" {
		return scribeerr.Errorf(scribeerr.CodeSecretInvalidInput, "secret %s: key must not be empty", op)
	}
	return nil
}

// loadIndex reads the stored key names for service.
func (s *KeyringStore) loadIndex(service string) ([]string, error) {
	raw, err := keyring.Get(service, service+keysIndexSuffix)
	switch {
	case errors.Is(err, keyring.ErrNotFound):
		return nil, nil
	case err != nil:
		return nil, scribeerr.Wrapf(err, scribeerr.CodeSecretListFailure, "loading key index for %s", service)
	}

	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return nil, scribeerr.Wrapf(err, scribeerr.CodeSecretListFailure, "decoding key index for %s", service)
	}
	return keys, nil
}

// updateIndex applies fn to the key index and persists the result. An empty
// index is removed from the keyring.
func (s *KeyringStore) updateIndex(service string, fn func([]string) []string) error {
	keys, err := s.loadIndex(service)
	if err != nil {
		return err
	}
	keys = fn(keys)
	indexKey := service + keysIndexSuffix

	if len(keys) == 0 {
		if err := keyring.Delete(service, indexKey); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			slog.Debug("removing empty key index", "service", service, "error", err)
		}
		return nil
	}

	data, err := json.Marshal(keys)
	if err != nil {
		return scribeerr.Wrapf(err, scribeerr.CodeSecretListFailure, "encoding key index for %s", service)
	}
	if err := keyring.Set(service, indexKey, string(data)); err != nil {
		return scribeerr.Wrapf(err, scribeerr.CodeSecretListFailure, "saving key index for %s", service)
	}
	return nil
}

func (s *KeyringStore) addToIndex(service, key string) error {
	return s.updateIndex(service, func(keys []string) []string {
		if slices.Contains(keys, key) {
			return keys
		}
		return append(keys, key)
	})
}

func (s *KeyringStore) removeFromIndex(service, key string) error {
	return s.updateIndex(service, func(keys []string) []string {
		return slices.DeleteFunc(keys, func(k string) bool { return k == key })
	})
}
