package keystore

import (
	"crypto"
	"crypto/rsa"
	"crypto/x509"
	"fmt"
)

// Algorithm identifies a supported asymmetric key algorithm.
type Algorithm string

const (
	RSA Algorithm = "RSA"
	DSA Algorithm = "DSA"
)

// DefaultAlgorithms returns the supported algorithms in probe order. Decoding
// helpers try RSA strictly before DSA unless the caller passes an explicit
// algorithm list.
func DefaultAlgorithms() []Algorithm {
	return []Algorithm{RSA, DSA}
}

type algorithmCodec struct {
	parsePublic    func(der []byte) (crypto.PublicKey, error)
	marshalPublic  func(pub crypto.PublicKey) ([]byte, error)
	parsePrivate   func(der []byte) (crypto.PrivateKey, error)
	marshalPrivate func(priv crypto.PrivateKey) ([]byte, error)
}

var algorithmCodecs = map[Algorithm]algorithmCodec{
	RSA: {
		parsePublic:    parseRSAPublicKey,
		marshalPublic:  marshalRSAPublicKey,
		parsePrivate:   parseRSAPrivateKey,
		marshalPrivate: marshalRSAPrivateKey,
	},
	DSA: {
		parsePublic:    parseDSAPublicKey,
		marshalPublic:  marshalDSAPublicKey,
		parsePrivate:   parseDSAPrivateKey,
		marshalPrivate: marshalDSAPrivateKey,
	},
}

func codecFor(alg Algorithm) (algorithmCodec, error) {
	codec, found := algorithmCodecs[alg]
	if !found {
		return algorithmCodec{}, &AlgorithmUnavailableError{Algorithm: alg}
	}
	return codec, nil
}

// probeOrder resolves the caller-supplied algorithm list. An empty list means
// DefaultAlgorithms, a non-empty list is probed in the order given.
func probeOrder(algorithms []Algorithm) []Algorithm {
	if len(algorithms) == 0 {
		return DefaultAlgorithms()
	}
	return algorithms
}

// parseRSAPublicKey asserts the parsed key type so that DSA subject public
// key info, which the PKIX parser also understands, does not satisfy the RSA
// probe.
func parseRSAPublicKey(der []byte) (crypto.PublicKey, error) {
	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, err
	}
	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("not an RSA public key")
	}
	return pub, nil
}

func marshalRSAPublicKey(pub crypto.PublicKey) ([]byte, error) {
	key, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("not an RSA public key")
	}
	return x509.MarshalPKIXPublicKey(key)
}

func parseRSAPrivateKey(der []byte) (crypto.PrivateKey, error) {
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, err
	}
	priv, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("not an RSA private key")
	}
	return priv, nil
}

func marshalRSAPrivateKey(priv crypto.PrivateKey) ([]byte, error) {
	key, ok := priv.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("not an RSA private key")
	}
	return x509.MarshalPKCS8PrivateKey(key)
}
