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
	"crypto"
	"crypto/dsa"
	"crypto/rsa"
	"crypto/x509"
	"fmt"
)

// PublicKey is an algorithm-tagged public key. The encoded form is the PKIX
// subject public key info DER; two public keys are equal exactly when their
// encoded forms are byte-equal.
type PublicKey struct {
	algorithm Algorithm
	encoded   []byte
	key       crypto.PublicKey
}

// NewPublicKey wraps a parsed public key. Supported types are *rsa.PublicKey
// and *dsa.PublicKey.
func NewPublicKey(key crypto.PublicKey) (*PublicKey, error) {
	var alg Algorithm
	switch key.(type) {
	case *rsa.PublicKey:
		alg = RSA
	case *dsa.PublicKey:
		alg = DSA
	default:
		return nil, fmt.Errorf("unsupported public key type %T", key)
	}

	codec, err := codecFor(alg)
	if err != nil {
		return nil, err
	}

	encoded, err := codec.marshalPublic(key)
	if err != nil {
		return nil, &EncodingError{Err: err}
	}

	return &PublicKey{algorithm: alg, encoded: encoded, key: key}, nil
}

// PublicKeyFromDER decodes PKIX DER, probing the given algorithms in order.
// An empty algorithm list means DefaultAlgorithms.
func PublicKeyFromDER(der []byte, algorithms ...Algorithm) (*PublicKey, error) {
	attempted := probeOrder(algorithms)
	for _, alg := range attempted {
		codec, err := codecFor(alg)
		if err != nil {
			return nil, err
		}
		key, err := codec.parsePublic(der)
		if err != nil {
			continue
		}
		return &PublicKey{
			algorithm: alg,
			encoded:   append([]byte(nil), der...),
			key:       key,
		}, nil
	}
	return nil, &UnsupportedKeyFormatError{Attempted: attempted}
}

// PublicKeyFromCertificate extracts the certificate's subject public key in
// its exact encoded form.
func PublicKeyFromCertificate(cert *x509.Certificate) (*PublicKey, error) {
	if cert == nil {
		return nil, fmt.Errorf("certificate is nil")
	}

	var alg Algorithm
	switch cert.PublicKeyAlgorithm {
	case x509.RSA:
		alg = RSA
	case x509.DSA:
		alg = DSA
	default:
		return nil, &UnsupportedKeyFormatError{Attempted: DefaultAlgorithms()}
	}

	return &PublicKey{
		algorithm: alg,
		encoded:   append([]byte(nil), cert.RawSubjectPublicKeyInfo...),
		key:       cert.PublicKey,
	}, nil
}

func (k *PublicKey) Algorithm() Algorithm { return k.algorithm }

// Encoded returns a copy of the PKIX DER encoding.
func (k *PublicKey) Encoded() []byte {
	return append([]byte(nil), k.encoded...)
}

// Key returns the parsed standard library key, *rsa.PublicKey or
// *dsa.PublicKey.
func (k *PublicKey) Key() crypto.PublicKey { return k.key }

func (k *PublicKey) Equal(other *PublicKey) bool {
	return other != nil && bytes.Equal(k.encoded, other.encoded)
}

// PrivateKey is an algorithm-tagged private key. The encoded form is the
// PKCS#8 DER.
type PrivateKey struct {
	algorithm Algorithm
	encoded   []byte
	key       crypto.PrivateKey
}

// NewPrivateKey wraps a parsed private key. Supported types are
// *rsa.PrivateKey and *dsa.PrivateKey.
func NewPrivateKey(key crypto.PrivateKey) (*PrivateKey, error) {
	var alg Algorithm
	switch key.(type) {
	case *rsa.PrivateKey:
		alg = RSA
	case *dsa.PrivateKey:
		alg = DSA
	default:
		return nil, fmt.Errorf("unsupported private key type %T", key)
	}

	codec, err := codecFor(alg)
	if err != nil {
		return nil, err
	}

	encoded, err := codec.marshalPrivate(key)
	if err != nil {
		return nil, &EncodingError{Err: err}
	}

	return &PrivateKey{algorithm: alg, encoded: encoded, key: key}, nil
}

// PrivateKeyFromDER decodes PKCS#8 DER, probing the given algorithms in
// order. An empty algorithm list means DefaultAlgorithms.
func PrivateKeyFromDER(der []byte, algorithms ...Algorithm) (*PrivateKey, error) {
	attempted := probeOrder(algorithms)
	for _, alg := range attempted {
		codec, err := codecFor(alg)
		if err != nil {
			return nil, err
		}
		key, err := codec.parsePrivate(der)
		if err != nil {
			continue
		}
		return &PrivateKey{
			algorithm: alg,
			encoded:   append([]byte(nil), der...),
			key:       key,
		}, nil
	}
	return nil, &UnsupportedKeyFormatError{Attempted: attempted}
}

func (k *PrivateKey) Algorithm() Algorithm { return k.algorithm }

// Encoded returns a copy of the PKCS#8 DER encoding.
func (k *PrivateKey) Encoded() []byte {
	return append([]byte(nil), k.encoded...)
}

// Key returns the parsed standard library key, *rsa.PrivateKey or
// *dsa.PrivateKey.
func (k *PrivateKey) Key() crypto.PrivateKey { return k.key }

// Public returns the public counterpart of the private key.
func (k *PrivateKey) Public() (*PublicKey, error) {
	switch key := k.key.(type) {
	case *rsa.PrivateKey:
		return NewPublicKey(key.Public())
	case *dsa.PrivateKey:
		return NewPublicKey(&key.PublicKey)
	default:
		return nil, fmt.Errorf("unsupported private key type %T", k.key)
	}
}
