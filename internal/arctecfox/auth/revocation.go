package auth

import (
	"context"
	"time"
)

const revokedKeyPrefix = "revoked:access_token:"

// KeyValueStore is the subset of the cache client used for revocation.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RevocationList remembers signed-out tokens until they would have expired.
type RevocationList struct {
	store KeyValueStore
}

func NewRevocationList(store KeyValueStore) *RevocationList {
	return &RevocationList{store: store}
}

// Revoke marks the token id as signed out for ttl.
func (l *RevocationList) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return l.store.Set(ctx, revokedKeyPrefix+tokenID, []byte("1"), ttl)
}

// IsRevoked reports whether the token id was signed out.
func (l *RevocationList) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	data, err := l.store.Get(ctx, revokedKeyPrefix+tokenID)
	if err != nil {
		return false, err
	}
	return data != nil, nil
}
