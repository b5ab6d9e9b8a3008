package session

import (
	"fmt"
	"log/slog"
	"time"
)

const (
	StoreTypeMemory = "memory"
	StoreTypeRedis  = "redis"
)

func NewStore(storeType, address string, ttl time.Duration) (Store, error) {
	switch storeType {
	case "", StoreTypeMemory:
		slog.Info("using in-memory session store", "ttl", ttl)
		return NewMemoryStore(ttl), nil
	case StoreTypeRedis:
		slog.Info("using redis session store", "address", address, "ttl", ttl)
		store, err := NewRedisStore(address, ttl)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis session store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported session store type: %s", storeType)
	}
}
