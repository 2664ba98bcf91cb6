// Copyright (c) 2026 the strongbox-keystore-go authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package keystore

import (
	"bytes"
	"context"
	"crypto/x509"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	log "github.com/sirupsen/logrus"

	"github.com/strongbox/strongbox-keystore-go/keyderiv"
	prom "github.com/strongbox/strongbox-keystore-go/prometheus"
)

// Entry is a loaded key store entry: the certificate, the algorithm of the
// key pair and the sealed private key.
type Entry struct {
	Certificate *x509.Certificate
	Algorithm   Algorithm
	SealedKey   []byte
}

// Manager owns a loaded key store: the in-memory working copy of the
// entries, the master password and the backend holding the authoritative
// persisted copy. Reads take a shared lock, mutations and persists are
// serialized by an exclusive lock. Opening the same container through two
// managers concurrently is not coordinated here.
type Manager struct {
	backend    Backend
	path       string
	password   []byte
	algorithms []Algorithm
	kdfParams  keyderiv.ScryptParams
	derivator  *keyderiv.ScryptKeyDerivator

	storeMutex *sync.RWMutex
	store      map[string]Entry
}

// Open loads an existing key store from a file at the given path with the
// default configuration.
func Open(path, password string) (*Manager, error) {
	return OpenWithConfig(&Config{StorePath: path, StorePassword: password})
}

// OpenWithConfig loads an existing key store as configured, selecting the
// backend by store kind. A missing, unreadable or tampered container and a
// wrong password all fail with *LoadError.
func OpenWithConfig(c *Config) (*Manager, error) {
	if err := c.applyDefaults(); err != nil {
		return nil, err
	}

	backend, err := GetBackend(c)
	if err != nil {
		return nil, err
	}

	m, err := NewManager(backend, c)
	if err != nil {
		closeBackend(backend)
		return nil, err
	}

	return m, nil
}

// Create initializes a new, empty key store file at the given path with the
// default configuration.
func Create(path, password string) (*Manager, error) {
	return CreateWithConfig(&Config{StorePath: path, StorePassword: password})
}

// CreateWithConfig initializes a new, empty key store as configured. It
// fails if a container already exists at the configured location.
func CreateWithConfig(c *Config) (*Manager, error) {
	if err := c.applyDefaults(); err != nil {
		return nil, err
	}

	backend, err := GetBackend(c)
	if err != nil {
		return nil, err
	}

	exists, err := backend.Exists()
	if err != nil {
		closeBackend(backend)
		return nil, err
	}
	if exists {
		closeBackend(backend)
		return nil, fmt.Errorf("key store %s already exists", c.StorePath)
	}

	m := newManager(backend, c)
	if err = m.Persist(); err != nil {
		closeBackend(backend)
		return nil, err
	}

	log.Infof("created new key store %s", c.StorePath)
	return m, nil
}

// NewManager loads a key store from the given backend. This is the entry
// point for custom Backend implementations; Open and Create cover the
// built-in store kinds.
func NewManager(backend Backend, c *Config) (*Manager, error) {
	if err := c.applyDefaults(); err != nil {
		return nil, err
	}

	m := newManager(backend, c)
	if err := m.load(); err != nil {
		return nil, err
	}

	return m, nil
}

func newManager(backend Backend, c *Config) *Manager {
	return &Manager{
		backend:    backend,
		path:       c.StorePath,
		password:   []byte(c.StorePassword),
		algorithms: c.Algorithms,
		kdfParams:  c.kdfParams,
		derivator:  keyderiv.NewScryptKeyDerivator(c.MaxKeyDerivationMemMiB),
		storeMutex: &sync.RWMutex{},
		store:      map[string]Entry{},
	}
}

func closeBackend(b Backend) {
	if err := b.Close(); err != nil {
		log.Errorf("failed to close key store backend: %v", err)
	}
}

// load replaces the in-memory store with the persisted state.
func (m *Manager) load() error {
	blob, err := m.backend.Load()
	if err != nil {
		return &LoadError{Path: m.path, Err: err}
	}

	entries, err := openContainer(context.Background(), m.derivator, blob, m.password)
	if err != nil {
		return &LoadError{Path: m.path, Err: err}
	}

	store := make(map[string]Entry, len(entries))
	for alias, e := range entries {
		cert, err := x509.ParseCertificate(e.Cert)
		if err != nil {
			return &LoadError{Path: m.path, Err: fmt.Errorf("invalid certificate for alias %q: %v", alias, err)}
		}
		store[alias] = Entry{
			Certificate: cert,
			Algorithm:   Algorithm(e.Algorithm),
			SealedKey:   e.SealedKey,
		}
	}

	m.storeMutex.Lock()
	m.store = store
	m.storeMutex.Unlock()

	prom.StoreLoadCounter.Inc()
	log.Debugf("loaded %d entries from key store %s", len(store), m.path)

	return nil
}

// StoreHandle is a read view on the loaded key store.
type StoreHandle struct {
	m *Manager
}

// Handle exposes the loaded store for read access.
func (m *Manager) Handle() StoreHandle {
	return StoreHandle{m: m}
}

// Aliases returns every alias in the store. The order is not stable between
// calls.
func (h StoreHandle) Aliases() []string {
	h.m.storeMutex.RLock()
	defer h.m.storeMutex.RUnlock()

	aliases := make([]string, 0, len(h.m.store))
	for alias := range h.m.store {
		aliases = append(aliases, alias)
	}
	return aliases
}

// Entry returns the entry stored under the alias.
func (h StoreHandle) Entry(alias string) (Entry, bool) {
	h.m.storeMutex.RLock()
	defer h.m.storeMutex.RUnlock()

	entry, found := h.m.store[alias]
	return entry, found
}

// FindPrivateKey looks up the private key whose entry certificate carries
// exactly the given public key and recovers it with the entry password.
// Entries are enumerated in no particular order; the first match wins. A
// store without a matching entry returns found == false, which is not an
// error.
func (m *Manager) FindPrivateKey(pub *PublicKey, entryPassword string) (key *PrivateKey, found bool, err error) {
	if pub == nil {
		return nil, false, fmt.Errorf("public key is nil")
	}

	timer := prometheus.NewTimer(prom.KeyLookupDuration)
	defer timer.ObserveDuration()

	m.storeMutex.RLock()
	defer m.storeMutex.RUnlock()

	encoded := pub.Encoded()

	for alias, entry := range m.store {
		if !bytes.Equal(entry.Certificate.RawSubjectPublicKeyInfo, encoded) {
			continue
		}

		key, err = m.recoverKey(alias, entry, []byte(entryPassword))
		if err != nil {
			return nil, false, err
		}
		return key, true, nil
	}

	log.Debugf("no entry with matching public key in key store %s", m.path)
	return nil, false, nil
}

// recoverKey unseals and parses the private key of an entry.
func (m *Manager) recoverKey(alias string, entry Entry, pw []byte) (*PrivateKey, error) {
	configured := false
	for _, alg := range m.algorithms {
		if alg == entry.Algorithm {
			configured = true
			break
		}
	}
	if !configured {
		return nil, &AlgorithmUnavailableError{Algorithm: entry.Algorithm}
	}
	if _, err := codecFor(entry.Algorithm); err != nil {
		return nil, err
	}

	der, err := openKey(context.Background(), m.derivator, entry.SealedKey, pw)
	if err != nil {
		return nil, &UnrecoverableKeyError{Alias: alias, Err: err}
	}

	key, err := PrivateKeyFromDER(der, entry.Algorithm)
	if err != nil {
		// the seal authenticated, so the password was right and the stored
		// key material itself is unusable
		return nil, &UnrecoverableKeyError{Alias: alias, Err: err}
	}

	return key, nil
}

// AddEntry stores a private key with its certificate under the alias,
// overwriting any existing entry, and persists the store. The private key is
// sealed with the container password. A failed persist leaves the in-memory
// store and the backend potentially diverged; callers recover by re-opening.
func (m *Manager) AddEntry(alias string, cert *x509.Certificate, key *PrivateKey) error {
	if alias == "" {
		return &EncodingError{Err: fmt.Errorf("alias is empty")}
	}
	if cert == nil || len(cert.Raw) == 0 {
		return &EncodingError{Err: fmt.Errorf("certificate is missing its raw encoding")}
	}
	if key == nil {
		return &EncodingError{Err: fmt.Errorf("private key is nil")}
	}

	sealed, err := sealKey(context.Background(), m.derivator, m.kdfParams, key.encoded, m.password)
	if err != nil {
		return &EncodingError{Err: err}
	}

	m.storeMutex.Lock()
	defer m.storeMutex.Unlock()

	m.store[alias] = Entry{
		Certificate: cert,
		Algorithm:   key.algorithm,
		SealedKey:   sealed,
	}

	if err = m.persist(); err != nil {
		return err
	}

	prom.EntryCreationCounter.Inc()
	log.Debugf("added entry %q to key store %s", alias, m.path)

	return nil
}

// DeleteEntry removes the entry stored under the alias and persists the
// store. A missing alias is not an error; the store is persisted either
// way.
func (m *Manager) DeleteEntry(alias string) error {
	m.storeMutex.Lock()
	defer m.storeMutex.Unlock()

	_, found := m.store[alias]
	delete(m.store, alias)

	if err := m.persist(); err != nil {
		return err
	}

	if found {
		prom.EntryDeletionCounter.Inc()
		log.Debugf("deleted entry %q from key store %s", alias, m.path)
	} else {
		log.Debugf("no entry %q in key store %s", alias, m.path)
	}

	return nil
}

// Persist re-serializes the full store and writes it to the backend under
// the container password.
func (m *Manager) Persist() error {
	m.storeMutex.Lock()
	defer m.storeMutex.Unlock()

	return m.persist()
}

// persist expects the write lock to be held.
func (m *Manager) persist() error {
	timer := prometheus.NewTimer(prom.PersistDuration)
	defer timer.ObserveDuration()

	entries := make(map[string]storedEntry, len(m.store))
	for alias, e := range m.store {
		entries[alias] = storedEntry{
			Algorithm: string(e.Algorithm),
			Cert:      e.Certificate.Raw,
			SealedKey: e.SealedKey,
		}
	}

	blob, err := sealContainer(context.Background(), m.derivator, m.kdfParams, entries, m.password)
	if err != nil {
		return &PersistError{Path: m.path, Err: err}
	}

	if err = m.backend.Persist(blob); err != nil {
		return &PersistError{Path: m.path, Err: err}
	}

	log.Debugf("persisted %d entries to key store %s", len(entries), m.path)

	return nil
}

// Close releases the backend resources. The in-memory entries stay readable,
// but the store can not be persisted or reloaded afterwards.
func (m *Manager) Close() error {
	return m.backend.Close()
}
