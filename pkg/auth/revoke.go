package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/insightslm/insightslm/pkg/types"
	"github.com/insightslm/insightslm/pkg/utils"
)

func revokedKey(token string) string {
	return fmt.Sprintf("auth:revoked:%s", utils.MD5(token))
}

// Revoke marks token as signed out until it would have expired anyway.
// Revoking a token twice, or one that already expired, succeeds.
func Revoke(ctx context.Context, cache types.Cache, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return cache.SetEx(ctx, revokedKey(token), "1", ttl)
}

// Revoked reports whether token was signed out.
func Revoked(ctx context.Context, cache types.Cache, token string) (bool, error) {
	v, err := cache.Get(ctx, revokedKey(token))
	if errors.Is(err, types.ErrCacheMiss) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v != "", nil
}
