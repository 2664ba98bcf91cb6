package keyderiv

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/scrypt"
	"golang.org/x/sync/semaphore"

	log "github.com/sirupsen/logrus"

	prom "github.com/strongbox/strongbox-keystore-go/prometheus"
)

// ScryptParams are the scrypt cost parameters together with the length of
// the derived key in byte.
type ScryptParams struct {
	N, R, P, KeyLen int
}

// DefaultParams returns the recommended parameters for interactive use as of
// 2017: N=32768, r=8 and p=1.
func DefaultParams() ScryptParams {
	return ScryptParams{
		N:      32 * 1024,
		R:      8,
		P:      1,
		KeyLen: 32,
	}
}

// memoryKiB is the approximate scrypt working memory for the parameters,
// 128 * N * r byte.
func (p ScryptParams) memoryKiB() int64 {
	return int64(128) * int64(p.N) * int64(p.R) / 1024
}

// ScryptKeyDerivator derives encryption and integrity keys from passwords
// via scrypt. A weighted semaphore bounds the total memory used by
// concurrent derivations.
type ScryptKeyDerivator struct {
	sem *semaphore.Weighted
}

// NewScryptKeyDerivator sets up a derivator with a total memory budget in
// MiB for concurrent key derivations. A budget of 0 disables the bound.
func NewScryptKeyDerivator(maxTotalMemMiB uint32) *ScryptKeyDerivator {
	kd := &ScryptKeyDerivator{}
	if maxTotalMemMiB != 0 {
		kd.sem = semaphore.NewWeighted(int64(maxTotalMemMiB) * 1024)
		log.Debugf("scrypt key derivation memory budget: %d MiB", maxTotalMemMiB)
	}
	return kd
}

// DeriveKey derives a key of length params.KeyLen from the password and
// salt. The derivation is deterministic for identical inputs.
func (kd *ScryptKeyDerivator) DeriveKey(ctx context.Context, pw, salt []byte, params ScryptParams) ([]byte, error) {
	timerWithWait := prometheus.NewTimer(prom.KeyDerivationWithWaitDuration)
	defer timerWithWait.ObserveDuration()

	if kd.sem != nil {
		err := kd.sem.Acquire(ctx, params.memoryKiB())
		if err != nil {
			return nil, fmt.Errorf("failed to acquire semaphore for key derivation: %v", err)
		}
		defer kd.sem.Release(params.memoryKiB())
	}

	timer := prometheus.NewTimer(prom.KeyDerivationDuration)
	dk, err := scrypt.Key(pw, salt, params.N, params.R, params.P, params.KeyLen)
	timer.ObserveDuration()
	if err != nil {
		return nil, fmt.Errorf("scrypt key derivation error: %v", err)
	}

	return dk, nil
}
