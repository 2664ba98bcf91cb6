package keystore

// ASN.1 encodings for DSA keys. The standard library parses DSA subject
// public key info but can not marshal it and has no PKCS#8 support for DSA
// at all, so those encodings are assembled here. The PKCS#8 layout matches
// what the JCA KeyFactory for DSA produces: the privateKey octet string
// contains a single ASN.1 INTEGER holding the private value x.

import (
	"crypto"
	"crypto/dsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"math/big"
)

// oidPublicKeyDSA is id-dsa as defined in RFC 3279, section 2.3.2.
var oidPublicKeyDSA = asn1.ObjectIdentifier{1, 2, 840, 10040, 4, 1}

// subjectPublicKeyInfo mirrors the X.509 SubjectPublicKeyInfo structure.
type subjectPublicKeyInfo struct {
	Algorithm pkix.AlgorithmIdentifier
	PublicKey asn1.BitString
}

// pkcs8 mirrors the PKCS#8 PrivateKeyInfo structure from RFC 5208.
type pkcs8 struct {
	Version    int
	Algo       pkix.AlgorithmIdentifier
	PrivateKey []byte
}

func dsaAlgorithmIdentifier(params dsa.Parameters) (pkix.AlgorithmIdentifier, error) {
	paramBytes, err := asn1.Marshal(params)
	if err != nil {
		return pkix.AlgorithmIdentifier{}, err
	}
	return pkix.AlgorithmIdentifier{
		Algorithm:  oidPublicKeyDSA,
		Parameters: asn1.RawValue{FullBytes: paramBytes},
	}, nil
}

func parseDSAPublicKey(der []byte) (crypto.PublicKey, error) {
	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, err
	}
	pub, ok := key.(*dsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("not a DSA public key")
	}
	return pub, nil
}

func marshalDSAPublicKey(pub crypto.PublicKey) ([]byte, error) {
	key, ok := pub.(*dsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("not a DSA public key")
	}

	algo, err := dsaAlgorithmIdentifier(key.Parameters)
	if err != nil {
		return nil, err
	}

	y, err := asn1.Marshal(key.Y)
	if err != nil {
		return nil, err
	}

	return asn1.Marshal(subjectPublicKeyInfo{
		Algorithm: algo,
		PublicKey: asn1.BitString{Bytes: y, BitLength: 8 * len(y)},
	})
}

func parseDSAPrivateKey(der []byte) (crypto.PrivateKey, error) {
	var info pkcs8
	rest, err := asn1.Unmarshal(der, &info)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("trailing data after PKCS#8 structure")
	}

	if info.Version != 0 {
		return nil, fmt.Errorf("unsupported PKCS#8 version: %d", info.Version)
	}
	if !info.Algo.Algorithm.Equal(oidPublicKeyDSA) {
		return nil, fmt.Errorf("not a DSA private key")
	}

	priv := new(dsa.PrivateKey)

	rest, err = asn1.Unmarshal(info.Algo.Parameters.FullBytes, &priv.Parameters)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("trailing data after DSA parameters")
	}

	rest, err = asn1.Unmarshal(info.PrivateKey, &priv.X)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("trailing data after DSA private value")
	}

	// the public value is not part of the PKCS#8 encoding
	priv.Y = new(big.Int).Exp(priv.G, priv.X, priv.P)

	return priv, nil
}

func marshalDSAPrivateKey(priv crypto.PrivateKey) ([]byte, error) {
	key, ok := priv.(*dsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("not a DSA private key")
	}

	algo, err := dsaAlgorithmIdentifier(key.Parameters)
	if err != nil {
		return nil, err
	}

	x, err := asn1.Marshal(key.X)
	if err != nil {
		return nil, err
	}

	return asn1.Marshal(pkcs8{
		Version:    0,
		Algo:       algo,
		PrivateKey: x,
	})
}
