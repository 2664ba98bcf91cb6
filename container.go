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
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/strongbox/strongbox-keystore-go/keyderiv"
)

// containerFormatVersion is the version of the persisted container layout.
// Unknown versions are rejected on load.
const containerFormatVersion = 1

const containerSaltLen = 32

// errIntegrityCheckFailed marks a container whose MAC does not verify. A
// wrong master password and a corrupted container are indistinguishable.
var errIntegrityCheckFailed = errors.New("integrity check failed: wrong password or corrupted key store")

// storedEntry is the wire form of a single key store entry.
type storedEntry struct {
	Algorithm string `cbor:"alg"`
	Cert      []byte `cbor:"cert"`
	SealedKey []byte `cbor:"key"`
}

// containerEnvelope is the persisted form of a whole key store: the CBOR
// entry payload wrapped with the KDF parameters and an HMAC-SHA256 tag keyed
// from the master password.
type containerEnvelope struct {
	Version int       `json:"version"`
	KDF     kdfHeader `json:"kdf"`
	MAC     []byte    `json:"mac"`
	Payload []byte    `json:"payload"`
}

// sealContainer serializes the entries and wraps them with an integrity tag.
// Every call draws a fresh salt, so two persists of the same content differ
// on disk.
func sealContainer(ctx context.Context, kd *keyderiv.ScryptKeyDerivator, params keyderiv.ScryptParams, entries map[string]storedEntry, pw []byte) ([]byte, error) {
	payload, err := cbor.Marshal(entries)
	if err != nil {
		return nil, err
	}

	salt := make([]byte, containerSaltLen)
	if _, err = rand.Read(salt); err != nil {
		return nil, err
	}

	params.KeyLen = sha256.Size
	macKey, err := kd.DeriveKey(ctx, pw, salt, params)
	if err != nil {
		return nil, err
	}

	mac := hmac.New(sha256.New, macKey)
	mac.Write(payload)

	return json.Marshal(containerEnvelope{
		Version: containerFormatVersion,
		KDF:     kdfHeader{N: params.N, R: params.R, P: params.P, Salt: salt},
		MAC:     mac.Sum(nil),
		Payload: payload,
	})
}

// openContainer verifies and deserializes a persisted container.
func openContainer(ctx context.Context, kd *keyderiv.ScryptKeyDerivator, blob, pw []byte) (map[string]storedEntry, error) {
	var envelope containerEnvelope
	if err := json.Unmarshal(blob, &envelope); err != nil {
		return nil, fmt.Errorf("invalid container format: %v", err)
	}

	if envelope.Version != containerFormatVersion {
		return nil, fmt.Errorf("unsupported container version: %d", envelope.Version)
	}

	params := keyderiv.ScryptParams{
		N:      envelope.KDF.N,
		R:      envelope.KDF.R,
		P:      envelope.KDF.P,
		KeyLen: sha256.Size,
	}
	macKey, err := kd.DeriveKey(ctx, pw, envelope.KDF.Salt, params)
	if err != nil {
		return nil, err
	}

	mac := hmac.New(sha256.New, macKey)
	mac.Write(envelope.Payload)
	if !hmac.Equal(mac.Sum(nil), envelope.MAC) {
		return nil, errIntegrityCheckFailed
	}

	entries := map[string]storedEntry{}
	if err := cbor.Unmarshal(envelope.Payload, &entries); err != nil {
		return nil, fmt.Errorf("invalid container payload: %v", err)
	}

	return entries, nil
}
