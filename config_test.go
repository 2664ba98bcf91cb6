package keystore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strongbox/strongbox-keystore-go/keyderiv"
)

func writeConfigFile(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(content), 0644))
}

func TestConfigLoad_File(t *testing.T) {
	t.Setenv("KEYSTORE_STORE_PASSWORD", "")

	dir := t.TempDir()
	writeConfigFile(t, dir, `{"storePassword":"file secret","storePath":"test.keystore","scryptN":1024}`)

	c := &Config{}
	require.NoError(t, c.Load(dir, "config.json"))

	assert.Equal(t, "file secret", c.StorePassword)
	assert.Equal(t, "test.keystore", c.StorePath)
	assert.Equal(t, StoreKindFile, c.StoreKind)
	assert.Equal(t, DefaultAlgorithms(), c.Algorithms)
	assert.Equal(t, uint32(defaultMaxKeyDerivationMemMiB), c.MaxKeyDerivationMemMiB)
	assert.Equal(t, 1024, c.kdfParams.N)
	assert.Equal(t, keyderiv.DefaultParams().R, c.kdfParams.R)
	require.NotNil(t, c.dbParams)
	assert.Equal(t, defaultDbMaxOpenConns, c.dbParams.MaxOpenConns)
}

func TestConfigLoad_Env(t *testing.T) {
	t.Setenv("KEYSTORE_STORE_PASSWORD", "env secret")
	t.Setenv("KEYSTORE_STORE_PATH", "env.keystore")
	t.Setenv("KEYSTORE_ALGORITHMS", "RSA")

	c := &Config{}
	require.NoError(t, c.Load(t.TempDir(), "config.json"))

	assert.Equal(t, "env secret", c.StorePassword)
	assert.Equal(t, "env.keystore", c.StorePath)
	assert.Equal(t, []Algorithm{RSA}, c.Algorithms)
}

func TestConfigLoad_FileNotFound(t *testing.T) {
	t.Setenv("KEYSTORE_STORE_PASSWORD", "")

	err := (&Config{}).Load(t.TempDir(), "no_existing_file.json")
	assert.Error(t, err)
}

func TestConfigLoad_MissingPassword(t *testing.T) {
	t.Setenv("KEYSTORE_STORE_PASSWORD", "")

	dir := t.TempDir()
	writeConfigFile(t, dir, `{"storePath":"test.keystore"}`)

	err := (&Config{}).Load(dir, "config.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storePassword")
}

func TestConfigLoad_MissingStorePath(t *testing.T) {
	t.Setenv("KEYSTORE_STORE_PASSWORD", "")

	dir := t.TempDir()
	writeConfigFile(t, dir, `{"storePassword":"secret"}`)

	err := (&Config{}).Load(dir, "config.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storePath")
}

func TestConfigLoad_PostgresRequiresDSN(t *testing.T) {
	t.Setenv("KEYSTORE_STORE_PASSWORD", "")

	dir := t.TempDir()
	writeConfigFile(t, dir, `{"storePassword":"secret","storePath":"test.keystore","storeKind":"postgres"}`)

	err := (&Config{}).Load(dir, "config.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgresDSN")
}

func TestConfigLoad_CouchbaseRequiresConnStr(t *testing.T) {
	t.Setenv("KEYSTORE_STORE_PASSWORD", "")

	dir := t.TempDir()
	writeConfigFile(t, dir, `{"storePassword":"secret","storePath":"test.keystore","storeKind":"couchbase"}`)

	err := (&Config{}).Load(dir, "config.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "couchbaseConnStr")
}

func TestConfigLoad_UnsupportedStoreKind(t *testing.T) {
	t.Setenv("KEYSTORE_STORE_PASSWORD", "")

	dir := t.TempDir()
	writeConfigFile(t, dir, `{"storePassword":"secret","storePath":"test.keystore","storeKind":"redis"}`)

	err := (&Config{}).Load(dir, "config.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store kind")
}

func TestConfig_DbParams(t *testing.T) {
	c := &Config{
		DbMaxOpenConns:    "77",
		DbConnMaxLifetime: "2",
	}
	require.NoError(t, c.applyDefaults())

	assert.Equal(t, 77, c.dbParams.MaxOpenConns)
	assert.Equal(t, defaultDbMaxIdleConns, c.dbParams.MaxIdleConns)
	assert.Equal(t, 2*time.Minute, c.dbParams.ConnMaxLifetime)
	assert.Equal(t, defaultDbConnMaxIdleTime*time.Minute, c.dbParams.ConnMaxIdleTime)
}

func TestConfig_DbParamsInvalid(t *testing.T) {
	c := &Config{DbMaxOpenConns: "many"}

	err := c.applyDefaults()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MaxOpenConns")
}

func TestConfig_KdfParams(t *testing.T) {
	c := &Config{}
	require.NoError(t, c.applyDefaults())
	assert.Equal(t, keyderiv.DefaultParams(), c.kdfParams)

	c = &Config{ScryptN: 2048, ScryptP: 2}
	require.NoError(t, c.applyDefaults())
	assert.Equal(t, 2048, c.kdfParams.N)
	assert.Equal(t, keyderiv.DefaultParams().R, c.kdfParams.R)
	assert.Equal(t, 2, c.kdfParams.P)
}

func TestConfig_CouchbaseDefaults(t *testing.T) {
	c := &Config{
		StoreKind:        StoreKindCouchbase,
		CouchbaseConnStr: "couchbase://localhost",
		CouchbaseBucket:  "keystores",
	}
	require.NoError(t, c.applyDefaults())

	assert.Equal(t, defaultCouchbaseScope, c.CouchbaseScope)
	assert.Equal(t, defaultCouchbaseCollection, c.CouchbaseCollection)
}
