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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	log "github.com/sirupsen/logrus"

	"github.com/strongbox/strongbox-keystore-go/keyderiv"
)

const (
	defaultDbMaxOpenConns    = 10
	defaultDbMaxIdleConns    = 10
	defaultDbConnMaxLifetime = 10
	defaultDbConnMaxIdleTime = 1

	defaultCouchbaseScope      = "_default"
	defaultCouchbaseCollection = "_default"

	defaultMaxKeyDerivationMemMiB = 128
)

type Config struct {
	StorePath              string      `json:"storePath" envconfig:"STORE_PATH"`                            // path of the key store container file; acts as the container name for non-file store kinds (mandatory)
	StorePassword          string      `json:"storePassword" envconfig:"STORE_PASSWORD"`                    // master password protecting the container (mandatory)
	StoreKind              string      `json:"storeKind" envconfig:"STORE_KIND"`                            // backend holding the container [file, postgres, couchbase], defaults to 'file'
	Algorithms             []Algorithm `json:"algorithms" envconfig:"ALGORITHMS"`                           // supported key algorithms in probe order, defaults to [RSA, DSA]
	AtomicPersist          bool        `json:"atomicPersist" envconfig:"ATOMIC_PERSIST"`                    // write the container to a temporary file and rename, file store kind only, defaults to 'false'
	PostgresDSN            string      `json:"postgresDSN" envconfig:"POSTGRES_DSN"`                        // data source name for postgres database
	DbMaxOpenConns         string      `json:"dbMaxOpenConns" envconfig:"DB_MAX_OPEN_CONNS"`                // maximum number of open connections to the database
	DbMaxIdleConns         string      `json:"dbMaxIdleConns" envconfig:"DB_MAX_IDLE_CONNS"`                // maximum number of connections in the idle connection pool
	DbConnMaxLifetime      string      `json:"dbConnMaxLifetime" envconfig:"DB_CONN_MAX_LIFETIME"`          // maximum amount of time in minutes a connection may be reused
	DbConnMaxIdleTime      string      `json:"dbConnMaxIdleTime" envconfig:"DB_CONN_MAX_IDLE_TIME"`         // maximum amount of time in minutes a connection may be idle
	CouchbaseConnStr       string      `json:"couchbaseConnStr" envconfig:"COUCHBASE_CONN_STR"`             // couchbase connection string
	CouchbaseUsername      string      `json:"couchbaseUsername" envconfig:"COUCHBASE_USERNAME"`            // couchbase user
	CouchbasePassword      string      `json:"couchbasePassword" envconfig:"COUCHBASE_PASSWORD"`            // couchbase password
	CouchbaseBucket        string      `json:"couchbaseBucket" envconfig:"COUCHBASE_BUCKET"`                // couchbase bucket holding the containers
	CouchbaseScope         string      `json:"couchbaseScope" envconfig:"COUCHBASE_SCOPE"`                  // couchbase scope, defaults to '_default'
	CouchbaseCollection    string      `json:"couchbaseCollection" envconfig:"COUCHBASE_COLLECTION"`        // couchbase collection, defaults to '_default'
	ScryptN                int         `json:"scryptN" envconfig:"SCRYPT_N"`                                // scrypt CPU/memory cost parameter, defaults to 32768
	ScryptR                int         `json:"scryptR" envconfig:"SCRYPT_R"`                                // scrypt block size parameter, defaults to 8
	ScryptP                int         `json:"scryptP" envconfig:"SCRYPT_P"`                                // scrypt parallelization parameter, defaults to 1
	MaxKeyDerivationMemMiB uint32      `json:"maxKeyDerivationMemMiB" envconfig:"MAX_KEY_DERIVATION_MEM_MIB"` // total memory budget for concurrent key derivations in MiB, 0 disables the bound, defaults to 128
	Debug                  bool        `json:"debug"`                                                       // enable extended debug output, defaults to 'false'
	LogTextFormat          bool        `json:"logTextFormat"`                                               // log in text format for better human readability, default format is JSON
	configDir              string      // directory where config and .env files are looked up (set automatically)
	dbParams               *DatabaseParams
	kdfParams              keyderiv.ScryptParams
}

func (c *Config) Load(configDir, filename string) error {
	c.configDir = configDir

	// optional .env file for local development
	if err := godotenv.Load(filepath.Join(configDir, ".env")); err != nil {
		log.Debugf("no .env file loaded from %s", configDir)
	}

	// assume that we want to load from env instead of config files, if
	// we have the KEYSTORE_STORE_PASSWORD env variable set.
	var err error
	if os.Getenv("KEYSTORE_STORE_PASSWORD") != "" {
		err = c.loadEnv()
	} else {
		err = c.loadFile(filename)
	}
	if err != nil {
		return err
	}

	if c.Debug {
		log.SetLevel(log.DebugLevel)
	}

	if c.LogTextFormat {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05.000 -0700"})
	}

	err = c.checkMandatory()
	if err != nil {
		return err
	}

	return c.applyDefaults()
}

// loadEnv reads the configuration from environment variables
func (c *Config) loadEnv() error {
	log.Infof("loading configuration from environment variables")
	return envconfig.Process("keystore", c)
}

// loadFile reads the configuration from a json file
func (c *Config) loadFile(filename string) error {
	configFile := filepath.Join(c.configDir, filename)
	log.Infof("loading configuration from file: %s", configFile)

	fileHandle, err := os.Open(configFile)
	if err != nil {
		return err
	}
	defer fileHandle.Close()

	return json.NewDecoder(fileHandle).Decode(c)
}

func (c *Config) checkMandatory() error {
	if len(c.StorePassword) == 0 {
		return fmt.Errorf("missing 'storePassword' / 'KEYSTORE_STORE_PASSWORD' in configuration")
	}

	if len(c.StorePath) == 0 {
		return fmt.Errorf("missing 'storePath' in configuration")
	}

	switch c.StoreKind {
	case "", StoreKindFile:
	case StoreKindPostgres:
		if len(c.PostgresDSN) == 0 {
			return fmt.Errorf("missing 'postgresDSN' for store kind %s", c.StoreKind)
		}
	case StoreKindCouchbase:
		if len(c.CouchbaseConnStr) == 0 {
			return fmt.Errorf("missing 'couchbaseConnStr' for store kind %s", c.StoreKind)
		}
		if len(c.CouchbaseBucket) == 0 {
			return fmt.Errorf("missing 'couchbaseBucket' for store kind %s", c.StoreKind)
		}
	default:
		return fmt.Errorf("unsupported store kind: %s", c.StoreKind)
	}

	return nil
}

// applyDefaults resolves the derived configuration. It is called by Load and
// by the Open/Create entry points, so a Config assembled in code works
// without a Load.
func (c *Config) applyDefaults() error {
	if c.StoreKind == "" {
		c.StoreKind = StoreKindFile
	}
	log.Debugf("store kind: %s", c.StoreKind)

	if len(c.Algorithms) == 0 {
		c.Algorithms = DefaultAlgorithms()
	}
	log.Debugf("supported algorithms: %v", c.Algorithms)

	if c.CouchbaseScope == "" {
		c.CouchbaseScope = defaultCouchbaseScope
	}
	if c.CouchbaseCollection == "" {
		c.CouchbaseCollection = defaultCouchbaseCollection
	}

	if c.MaxKeyDerivationMemMiB == 0 {
		c.MaxKeyDerivationMemMiB = defaultMaxKeyDerivationMemMiB
	}

	c.setKdfParams()

	return c.setDbParams()
}

func (c *Config) setKdfParams() {
	c.kdfParams = keyderiv.DefaultParams()

	if c.ScryptN != 0 {
		c.kdfParams.N = c.ScryptN
	}
	if c.ScryptR != 0 {
		c.kdfParams.R = c.ScryptR
	}
	if c.ScryptP != 0 {
		c.kdfParams.P = c.ScryptP
	}

	log.Debugf("scrypt parameters: N=%d, r=%d, p=%d", c.kdfParams.N, c.kdfParams.R, c.kdfParams.P)
}

func (c *Config) setDbParams() error {
	c.dbParams = &DatabaseParams{}

	if c.DbMaxOpenConns == "" {
		c.dbParams.MaxOpenConns = defaultDbMaxOpenConns
	} else {
		i, err := strconv.Atoi(c.DbMaxOpenConns)
		if err != nil {
			return fmt.Errorf("failed to set DB parameter MaxOpenConns: %v", err)
		}
		c.dbParams.MaxOpenConns = i
	}

	if c.DbMaxIdleConns == "" {
		c.dbParams.MaxIdleConns = defaultDbMaxIdleConns
	} else {
		i, err := strconv.Atoi(c.DbMaxIdleConns)
		if err != nil {
			return fmt.Errorf("failed to set DB parameter MaxIdleConns: %v", err)
		}
		c.dbParams.MaxIdleConns = i
	}

	if c.DbConnMaxLifetime == "" {
		c.dbParams.ConnMaxLifetime = defaultDbConnMaxLifetime * time.Minute
	} else {
		i, err := strconv.Atoi(c.DbConnMaxLifetime)
		if err != nil {
			return fmt.Errorf("failed to set DB parameter ConnMaxLifetime: %v", err)
		}
		c.dbParams.ConnMaxLifetime = time.Duration(i) * time.Minute
	}

	if c.DbConnMaxIdleTime == "" {
		c.dbParams.ConnMaxIdleTime = defaultDbConnMaxIdleTime * time.Minute
	} else {
		i, err := strconv.Atoi(c.DbConnMaxIdleTime)
		if err != nil {
			return fmt.Errorf("failed to set DB parameter ConnMaxIdleTime: %v", err)
		}
		c.dbParams.ConnMaxIdleTime = time.Duration(i) * time.Minute
	}

	return nil
}
