package kvasync

import "github.com/goliatone/kvengine/kvstore"

// Config is kvstore.Config as-is: MaxWorkers and ReadPoolSize are
// already part of it (sized for this package specifically), so the
// async façade takes the exact same configuration the storage core
// does rather than wrapping it a second time.
type Config = kvstore.Config

// DefaultConfig mirrors kvstore.DefaultConfig.
func DefaultConfig() Config {
	return kvstore.DefaultConfig()
}
