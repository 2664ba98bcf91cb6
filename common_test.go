package keystore

import (
	"context"
	"crypto/dsa"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"math"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/strongbox/strongbox-keystore-go/keyderiv"
)

const testPassword = "test-store-password"

// light scrypt parameters to keep key derivation cheap in tests
const (
	testScryptN = 1024
	testScryptR = 1
	testScryptP = 1
)

var testError = errors.New("test error")

// testConfig returns a file store configuration with cheap key derivation
// parameters.
func testConfig(t *testing.T, path string) *Config {
	c := &Config{
		StorePath:     path,
		StorePassword: testPassword,
		ScryptN:       testScryptN,
		ScryptR:       testScryptR,
		ScryptP:       testScryptP,
	}
	require.NoError(t, c.applyDefaults())
	return c
}

func testKdfParams() keyderiv.ScryptParams {
	return keyderiv.ScryptParams{
		N: testScryptN,
		R: testScryptR,
		P: testScryptP,
	}
}

func testDerivator() *keyderiv.ScryptKeyDerivator {
	return keyderiv.NewScryptKeyDerivator(0)
}

var (
	rsaKeyOnce  sync.Once
	rsaTestKeys [2]*rsa.PrivateKey

	dsaKeyOnce sync.Once
	dsaTestKey *dsa.PrivateKey
)

// testRSAKey returns a shared RSA test key. Two distinct keys are available
// for tests which need entries with different key material.
func testRSAKey(t *testing.T, i int) *rsa.PrivateKey {
	t.Helper()
	rsaKeyOnce.Do(func() {
		for n := range rsaTestKeys {
			key, err := rsa.GenerateKey(rand.Reader, 2048)
			if err != nil {
				panic(err)
			}
			rsaTestKeys[n] = key
		}
	})
	return rsaTestKeys[i]
}

// testDSAKey returns a shared DSA test key. Parameter generation is slow, so
// the key is only generated once per test binary.
func testDSAKey(t *testing.T) *dsa.PrivateKey {
	t.Helper()
	dsaKeyOnce.Do(func() {
		key := new(dsa.PrivateKey)
		if err := dsa.GenerateParameters(&key.Parameters, rand.Reader, dsa.L1024N160); err != nil {
			panic(err)
		}
		if err := dsa.GenerateKey(key, rand.Reader); err != nil {
			panic(err)
		}
		dsaTestKey = key
	})
	return dsaTestKey
}

// testCertificate self-signs a certificate over the given RSA key.
func testCertificate(t *testing.T, key *rsa.PrivateKey, cn string) *x509.Certificate {
	t.Helper()

	serial, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	return cert
}

// sealedTestContainer serializes the entries the way a persist would, for
// seeding test backends.
func sealedTestContainer(t *testing.T, c *Config, entries map[string]storedEntry) []byte {
	t.Helper()

	blob, err := sealContainer(context.Background(), testDerivator(), c.kdfParams, entries, []byte(c.StorePassword))
	require.NoError(t, err)

	return blob
}
