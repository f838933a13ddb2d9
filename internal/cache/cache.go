// Package cache provee una abstracción chica de caching con backends
// memory (in-process) y redis (distribuido). Lo consume el permission
// gate para amortiguar lecturas de grants.
package cache

import "time"

// Cache es un key-value con TTL. Get reporta miss con ok=false.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration)
	Delete(key string)
}
