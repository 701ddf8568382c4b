package config

import (
	"errors"

	"github.com/termai-dev/termai/internal/store"
)

// ErrNotFound is returned by Fetch when the key has never been written.
var ErrNotFound = errors.New("config: not found")

// Store is the subset of *store.Store the config service depends on,
// named as an interface so tests can fake it without an on-disk database.
type Store interface {
	FetchByKey(key string) (string, error)
	Upsert(key, value string) error
}

// Service is the thin typed façade described by the Config Service
// component: no TTL policy lives here, that belongs to Token Manager and
// the models cache.
type Service struct {
	store Store
}

// New wraps a Store (or *store.Store) behind the Service façade.
func New(s Store) *Service {
	return &Service{store: s}
}

// Fetch returns the value for key, or ErrNotFound.
func (s *Service) Fetch(key string) (string, error) {
	v, err := s.store.FetchByKey(key)
	if err == store.ErrNotFound {
		return "", ErrNotFound
	}
	return v, err
}

// Write performs fetch-then-update-or-insert. Writing an empty string
// clears the entry.
func (s *Service) Write(key, value string) error {
	return s.store.Upsert(key, value)
}
