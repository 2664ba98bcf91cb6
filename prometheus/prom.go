package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var StoreLoadCounter = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "keystore_load_success",
		Help: "Number of key store containers which have been successfully loaded.",
	})

var EntryCreationCounter = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "keystore_entry_creation_success",
		Help: "Number of key entries which have been successfully added and persisted.",
	})

var EntryDeletionCounter = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "keystore_entry_deletion_success",
		Help: "Number of key entries which have been successfully deleted.",
	})

var KeyLookupDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "keystore_key_lookup_duration",
		Help:    "Duration of a private key lookup including entry key recovery.",
		Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	})

var PersistDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "keystore_persist_duration",
		Help:    "Duration of a full key store serialization and backend write.",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	})

var KeyDerivationDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "keystore_key_derivation_duration",
		Help:    "Duration of a scrypt key derivation.",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	})

var KeyDerivationWithWaitDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "keystore_key_derivation_with_wait_duration",
		Help:    "Duration of a scrypt key derivation including waiting time for the memory guard.",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	})
