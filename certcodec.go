package keystore

import (
	"crypto/x509"
	"encoding/base64"
	"strings"
)

// CertificateFromBase64 parses an X.509 certificate from its raw base64
// encoded DER. No PEM armor is expected or stripped. Both undecodable base64
// and unparsable DER fail with *CertificateFormatError.
func CertificateFromBase64(text string) (*x509.Certificate, error) {
	der, err := base64.StdEncoding.DecodeString(strings.TrimSpace(text))
	if err != nil {
		return nil, &CertificateFormatError{Err: err}
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, &CertificateFormatError{Err: err}
	}

	return cert, nil
}

// CertificateToBase64 renders the certificate's DER encoding as raw base64.
func CertificateToBase64(cert *x509.Certificate) string {
	return base64.StdEncoding.EncodeToString(cert.Raw)
}
