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
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	log "github.com/sirupsen/logrus"
)

const (
	PostgreSql                 string = "postgres"
	PostgresContainerTableName string = "keystore_container"
)

const createContainerTable = "CREATE TABLE IF NOT EXISTS %s(" +
	"name VARCHAR(255) NOT NULL PRIMARY KEY, " +
	"container BYTEA NOT NULL);"

func CreateContainerTable(tableName string) string {
	return fmt.Sprintf(createContainerTable, tableName)
}

// DatabaseBackend keeps the sealed container as a single row in a postgres
// table, keyed by container name. The row is swapped atomically on persist.
type DatabaseBackend struct {
	db        *sql.DB
	tableName string
	name      string
}

type DatabaseParams struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Ensure DatabaseBackend implements the Backend interface
var _ Backend = (*DatabaseBackend)(nil)

// NewDatabaseBackend takes a database connection string and the container
// name, returns a new initialized database backend.
func NewDatabaseBackend(dataSourceName, tableName, name string, dbParams *DatabaseParams) (*DatabaseBackend, error) {
	log.Infof("preparing postgres usage")

	pg, err := sql.Open(PostgreSql, dataSourceName)
	if err != nil {
		return nil, err
	}
	pg.SetMaxOpenConns(dbParams.MaxOpenConns)
	pg.SetMaxIdleConns(dbParams.MaxIdleConns)
	pg.SetConnMaxLifetime(dbParams.ConnMaxLifetime)
	pg.SetConnMaxIdleTime(dbParams.ConnMaxIdleTime)

	log.Debugf("MaxOpenConns: %d", dbParams.MaxOpenConns)
	log.Debugf("MaxIdleConns: %d", dbParams.MaxIdleConns)
	log.Debugf("ConnMaxLifetime: %s", dbParams.ConnMaxLifetime.String())
	log.Debugf("ConnMaxIdleTime: %s", dbParams.ConnMaxIdleTime.String())

	dm := &DatabaseBackend{
		db:        pg,
		tableName: tableName,
		name:      name,
	}

	if err = pg.Ping(); err != nil {
		if strings.Contains(err.Error(), "connection refused") {
			// if there is no connection to the database yet, continue anyway.
			log.Warnf("connection to the database could not yet be established: %v", err)
		} else {
			return nil, err
		}
	} else {
		_, err = dm.db.Exec(CreateContainerTable(tableName))
		if err != nil {
			return nil, fmt.Errorf("creating DB table failed: %v", err)
		}
	}

	return dm, nil
}

func (dm *DatabaseBackend) IsReady() error {
	if err := dm.db.Ping(); err != nil {
		return fmt.Errorf("database not ready: %v", err)
	}

	// create table if it does not exist yet
	_, err := dm.db.Exec(CreateContainerTable(dm.tableName))
	if err != nil {
		return fmt.Errorf("database connection was established but creating table failed: %v", err)
	}
	return nil
}

func (dm *DatabaseBackend) Load() ([]byte, error) {
	var blob []byte

	query := fmt.Sprintf("SELECT container FROM %s WHERE name = $1;", dm.tableName)

	err := dm.db.QueryRow(query, dm.name).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, ErrStoreNotExist
	}

	return blob, err
}

func (dm *DatabaseBackend) Persist(blob []byte) error {
	query := fmt.Sprintf(
		"INSERT INTO %s (name, container) VALUES ($1, $2) "+
			"ON CONFLICT (name) DO UPDATE SET container = EXCLUDED.container;",
		dm.tableName)

	_, err := dm.db.Exec(query, dm.name, blob)

	return err
}

func (dm *DatabaseBackend) Exists() (bool, error) {
	var exists bool

	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE name = $1);", dm.tableName)

	err := dm.db.QueryRow(query, dm.name).Scan(&exists)

	return exists, err
}

func (dm *DatabaseBackend) Close() error {
	err := dm.db.Close()
	if err != nil {
		return fmt.Errorf("failed to close database: %v", err)
	}
	return nil
}
