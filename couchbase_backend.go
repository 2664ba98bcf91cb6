package keystore

import (
	"errors"
	"fmt"
	"time"

	"github.com/couchbase/gocb/v2"

	log "github.com/sirupsen/logrus"
)

const couchbaseReadyTimeout = 5 * time.Second

// containerDocument is the couchbase document shape holding a sealed
// container.
type containerDocument struct {
	Container []byte `json:"container"`
}

// CouchbaseBackend keeps the sealed container as a single document in a
// couchbase collection, keyed by container name.
type CouchbaseBackend struct {
	cluster    *gocb.Cluster
	collection *gocb.Collection
	name       string
}

// Ensure CouchbaseBackend implements the Backend interface
var _ Backend = (*CouchbaseBackend)(nil)

func NewCouchbaseBackend(c *Config) (*CouchbaseBackend, error) {
	log.Infof("preparing couchbase usage")

	options := gocb.ClusterOptions{
		Authenticator: gocb.PasswordAuthenticator{
			Username: c.CouchbaseUsername,
			Password: c.CouchbasePassword,
		},
	}

	cluster, err := gocb.Connect(c.CouchbaseConnStr, options)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %v", err)
	}

	bucket := cluster.Bucket(c.CouchbaseBucket)

	err = bucket.WaitUntilReady(couchbaseReadyTimeout, nil)
	if err != nil {
		return nil, fmt.Errorf("bucket connection timeout: %v", err)
	}

	collection := bucket.Scope(c.CouchbaseScope).Collection(c.CouchbaseCollection)

	return &CouchbaseBackend{
		cluster:    cluster,
		collection: collection,
		name:       c.StorePath,
	}, nil
}

func (cb *CouchbaseBackend) Load() ([]byte, error) {
	res, err := cb.collection.Get(cb.name, nil)
	if err != nil {
		if errors.Is(err, gocb.ErrDocumentNotFound) {
			return nil, ErrStoreNotExist
		}
		return nil, err
	}

	var doc containerDocument
	if err = res.Content(&doc); err != nil {
		return nil, err
	}

	return doc.Container, nil
}

func (cb *CouchbaseBackend) Persist(blob []byte) error {
	_, err := cb.collection.Upsert(cb.name, containerDocument{Container: blob}, &gocb.UpsertOptions{})
	return err
}

func (cb *CouchbaseBackend) Exists() (bool, error) {
	res, err := cb.collection.Exists(cb.name, nil)
	if err != nil {
		return false, err
	}
	return res.Exists(), nil
}

func (cb *CouchbaseBackend) Close() error {
	err := cb.cluster.Close(nil)
	if err != nil {
		log.Errorf("failed to close couchbase cluster connection: %v", err)
	}
	return err
}
