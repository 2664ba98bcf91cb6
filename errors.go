package keystore

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreNotExist is returned by a backend when no container exists at
	// the configured location.
	ErrStoreNotExist = errors.New("key store does not exist")
)

// LoadError reports that a key store container could not be loaded. An
// unreadable backend, a malformed container and a failed integrity check all
// map here. A wrong password is indistinguishable from a corrupted container.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading key store %s failed: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// PersistError reports that writing the serialized container to the backend
// failed. The in-memory store and the persisted state may have diverged.
type PersistError struct {
	Path string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persisting key store %s failed: %v", e.Path, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// UnrecoverableKeyError reports that a stored private key could not be
// recovered, either because the entry password is wrong or because the
// sealed key material is corrupt.
type UnrecoverableKeyError struct {
	Alias string
	Err   error
}

func (e *UnrecoverableKeyError) Error() string {
	return fmt.Sprintf("private key entry %q can not be recovered: %v", e.Alias, e.Err)
}

func (e *UnrecoverableKeyError) Unwrap() error { return e.Err }

// AlgorithmUnavailableError reports that an entry requires a key algorithm
// which is not part of the configured algorithm set.
type AlgorithmUnavailableError struct {
	Algorithm Algorithm
}

func (e *AlgorithmUnavailableError) Error() string {
	return fmt.Sprintf("key algorithm %s is not available", e.Algorithm)
}

// InvalidKeyError reports malformed textual key input, i.e. base64 which does
// not decode.
type InvalidKeyError struct {
	Err error
}

func (e *InvalidKeyError) Error() string {
	return fmt.Sprintf("invalid key encoding: %v", e.Err)
}

func (e *InvalidKeyError) Unwrap() error { return e.Err }

// UnsupportedKeyFormatError reports that key material decoded cleanly but
// could not be parsed by any of the attempted algorithms.
type UnsupportedKeyFormatError struct {
	Attempted []Algorithm
}

func (e *UnsupportedKeyFormatError) Error() string {
	return fmt.Sprintf("key format not supported by any of the attempted algorithms %v", e.Attempted)
}

// CertificateFormatError reports malformed certificate input, either base64
// which does not decode or DER which does not parse as an X.509 certificate.
type CertificateFormatError struct {
	Err error
}

func (e *CertificateFormatError) Error() string {
	return fmt.Sprintf("invalid certificate encoding: %v", e.Err)
}

func (e *CertificateFormatError) Unwrap() error { return e.Err }

// EncodingError reports that an entry could not be brought into its storable
// representation.
type EncodingError struct {
	Err error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("entry can not be encoded for storage: %v", e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }
