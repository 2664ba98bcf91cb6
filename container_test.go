package keystore

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEntries() map[string]storedEntry {
	return map[string]storedEntry{
		"alias one": {Algorithm: "RSA", Cert: []byte("certificate one"), SealedKey: []byte("sealed key one")},
		"alias two": {Algorithm: "DSA", Cert: []byte("certificate two"), SealedKey: []byte("sealed key two")},
	}
}

func TestSealOpenContainer(t *testing.T) {
	kd := testDerivator()
	entries := testEntries()

	blob, err := sealContainer(context.Background(), kd, testKdfParams(), entries, []byte(testPassword))
	require.NoError(t, err)

	opened, err := openContainer(context.Background(), kd, blob, []byte(testPassword))
	require.NoError(t, err)
	assert.Equal(t, entries, opened)
}

func TestSealOpenContainer_Empty(t *testing.T) {
	kd := testDerivator()

	blob, err := sealContainer(context.Background(), kd, testKdfParams(), map[string]storedEntry{}, []byte(testPassword))
	require.NoError(t, err)

	opened, err := openContainer(context.Background(), kd, blob, []byte(testPassword))
	require.NoError(t, err)
	assert.Empty(t, opened)
}

func TestSealContainer_EnvelopeFormat(t *testing.T) {
	blob, err := sealContainer(context.Background(), testDerivator(), testKdfParams(), testEntries(), []byte(testPassword))
	require.NoError(t, err)

	var envelope containerEnvelope
	require.NoError(t, json.Unmarshal(blob, &envelope))

	assert.Equal(t, containerFormatVersion, envelope.Version)
	assert.Equal(t, testScryptN, envelope.KDF.N)
	assert.Equal(t, testScryptR, envelope.KDF.R)
	assert.Equal(t, testScryptP, envelope.KDF.P)
	assert.Len(t, envelope.KDF.Salt, containerSaltLen)
	assert.Len(t, envelope.MAC, sha256.Size)
	assert.NotEmpty(t, envelope.Payload)
}

func TestSealContainer_FreshSalt(t *testing.T) {
	kd := testDerivator()
	entries := testEntries()

	blob1, err := sealContainer(context.Background(), kd, testKdfParams(), entries, []byte(testPassword))
	require.NoError(t, err)

	blob2, err := sealContainer(context.Background(), kd, testKdfParams(), entries, []byte(testPassword))
	require.NoError(t, err)

	assert.NotEqual(t, blob1, blob2)
}

func TestOpenContainer_WrongPassword(t *testing.T) {
	kd := testDerivator()

	blob, err := sealContainer(context.Background(), kd, testKdfParams(), testEntries(), []byte(testPassword))
	require.NoError(t, err)

	_, err = openContainer(context.Background(), kd, blob, []byte("wrong password"))
	assert.Equal(t, errIntegrityCheckFailed, err)
}

func TestOpenContainer_TamperedPayload(t *testing.T) {
	kd := testDerivator()

	blob, err := sealContainer(context.Background(), kd, testKdfParams(), testEntries(), []byte(testPassword))
	require.NoError(t, err)

	var envelope containerEnvelope
	require.NoError(t, json.Unmarshal(blob, &envelope))
	envelope.Payload[0] ^= 0xff
	tampered, err := json.Marshal(envelope)
	require.NoError(t, err)

	_, err = openContainer(context.Background(), kd, tampered, []byte(testPassword))
	assert.Equal(t, errIntegrityCheckFailed, err)
}

func TestOpenContainer_UnsupportedVersion(t *testing.T) {
	kd := testDerivator()

	blob, err := sealContainer(context.Background(), kd, testKdfParams(), testEntries(), []byte(testPassword))
	require.NoError(t, err)

	var envelope containerEnvelope
	require.NoError(t, json.Unmarshal(blob, &envelope))
	envelope.Version = containerFormatVersion + 1
	future, err := json.Marshal(envelope)
	require.NoError(t, err)

	_, err = openContainer(context.Background(), kd, future, []byte(testPassword))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported container version")
}

func TestOpenContainer_InvalidFormat(t *testing.T) {
	_, err := openContainer(context.Background(), testDerivator(), []byte("not a container"), []byte(testPassword))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid container format")
}
