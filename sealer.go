package keystore

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/strongbox/strongbox-keystore-go/keyderiv"
)

const sealSaltLen = 16

// errWrongEntryPassword marks a failed authentication when opening a sealed
// private key.
var errWrongEntryPassword = errors.New("wrong entry password or corrupt sealed key")

// kdfHeader carries the scrypt parameters and salt a sealed key blob or
// container envelope was derived with.
type kdfHeader struct {
	N    int    `cbor:"n" json:"n"`
	R    int    `cbor:"r" json:"r"`
	P    int    `cbor:"p" json:"p"`
	Salt []byte `cbor:"salt" json:"salt"`
}

// sealedKey is the encrypted at-rest form of a private key's PKCS#8 DER.
type sealedKey struct {
	KDF    kdfHeader `cbor:"kdf"`
	Cipher []byte    `cbor:"cipher"`
}

// sealKey encrypts a private key DER under the password with
// ChaCha20-Poly1305. Each call draws a fresh salt; the derived key is unique
// per salt, so the all-zero nonce is never reused under the same key. The
// salt doubles as associated data.
func sealKey(ctx context.Context, kd *keyderiv.ScryptKeyDerivator, params keyderiv.ScryptParams, der, pw []byte) ([]byte, error) {
	salt := make([]byte, sealSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}

	params.KeyLen = chacha20poly1305.KeySize
	key, err := kd.DeriveKey(ctx, pw, salt, params)
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	blob := sealedKey{
		KDF:    kdfHeader{N: params.N, R: params.R, P: params.P, Salt: salt},
		Cipher: aead.Seal(nil, nonce, der, salt),
	}

	return cbor.Marshal(blob)
}

// openKey decrypts a sealed private key blob with the password, returning
// the PKCS#8 DER. A failed authentication returns errWrongEntryPassword.
func openKey(ctx context.Context, kd *keyderiv.ScryptKeyDerivator, blob, pw []byte) ([]byte, error) {
	var sealed sealedKey
	if err := cbor.Unmarshal(blob, &sealed); err != nil {
		return nil, fmt.Errorf("invalid sealed key blob: %v", err)
	}

	params := keyderiv.ScryptParams{
		N:      sealed.KDF.N,
		R:      sealed.KDF.R,
		P:      sealed.KDF.P,
		KeyLen: chacha20poly1305.KeySize,
	}
	key, err := kd.DeriveKey(ctx, pw, sealed.KDF.Salt, params)
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	der, err := aead.Open(nil, nonce, sealed.Cipher, sealed.KDF.Salt)
	if err != nil {
		return nil, errWrongEntryPassword
	}

	return der, nil
}
