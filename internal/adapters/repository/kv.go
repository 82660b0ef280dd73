// Package repository persists session progression in a key/value backend.
package repository

import "context"

// KV is the minimal string key/value surface each driver implements.
type KV interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Put overwrites the value stored under key.
	Put(ctx context.Context, key, value string) error
	Close() error
}

// Driver names accepted by Open.
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)
