package keystore

import (
	"fmt"
)

const (
	StoreKindFile      = "file"
	StoreKindPostgres  = "postgres"
	StoreKindCouchbase = "couchbase"
)

// Backend is the persistence location of a sealed key store container. The
// container bytes are opaque to the backend; sealing and unsealing happen in
// the manager, so every backend stores the same password-protected format.
type Backend interface {
	// Load reads the persisted container. A backend without a persisted
	// container returns ErrStoreNotExist.
	Load() ([]byte, error)

	// Persist writes the full serialized container, replacing any previous
	// state.
	Persist(blob []byte) error

	// Exists reports whether a persisted container is present.
	Exists() (bool, error)

	// Close releases backend resources.
	Close() error
}

// GetBackend returns the backend for the configured store kind. For the
// postgres and couchbase kinds the store path acts as the container name.
func GetBackend(c *Config) (Backend, error) {
	switch c.StoreKind {
	case "", StoreKindFile:
		return NewFileBackend(c.StorePath, c.AtomicPersist), nil
	case StoreKindPostgres:
		return NewDatabaseBackend(c.PostgresDSN, PostgresContainerTableName, c.StorePath, c.dbParams)
	case StoreKindCouchbase:
		return NewCouchbaseBackend(c)
	default:
		return nil, fmt.Errorf("unsupported store kind: %s", c.StoreKind)
	}
}
