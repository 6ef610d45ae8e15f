package redis

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// Redis serializes reserve calls on the same fee across service
// instances with a per-fee SetNX lock. The lock only narrows the window
// of contention; the database transaction stays the final authority on
// capacity.
type Redis struct {
	Client *redis.Client
	Logger *log.Logger
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{
		Client: client,
		Logger: log.Default(),
	}
}

// getFeeLockTTL returns the lock TTL from the environment or the default.
func (r *Redis) getFeeLockTTL() time.Duration {
	defaultTTL := 10 * time.Second

	ttlStr := os.Getenv("FEE_LOCK_TTL_SECONDS")
	if ttlStr == "" {
		return defaultTTL
	}

	ttlSec, err := strconv.Atoi(ttlStr)
	if err != nil || ttlSec <= 0 {
		r.Logger.Println("REDIS: Invalid FEE_LOCK_TTL_SECONDS value '" + ttlStr + "', using default 10 seconds")
		return defaultTTL
	}
	return time.Duration(ttlSec) * time.Second
}

// LockFee tries to take the lock for one fee. Returns false when another
// reserve call currently holds it.
func (r *Redis) LockFee(feeID, token string) (bool, error) {
	key := "fee_lock:" + feeID
	return r.Client.SetNX(context.Background(), key, token, r.getFeeLockTTL()).Result()
}

// UnlockFee releases the lock, but only for the holder that took it.
func (r *Redis) UnlockFee(feeID, token string) error {
	ctx := context.Background()
	key := fmt.Sprintf("fee_lock:%s", feeID)
	val, err := r.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil // already released or expired
	}
	if err != nil {
		return err
	}
	if val == token {
		_, err := r.Client.Del(ctx, key).Result()
		return err
	}
	return nil
}

// AcquireFeeLock polls LockFee until it succeeds or the wait budget runs
// out. A false result means the caller should surface a transient error.
func (r *Redis) AcquireFeeLock(feeID, token string, wait time.Duration) (bool, error) {
	deadline := time.Now().Add(wait)
	for {
		ok, err := r.LockFee(feeID, token)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		time.Sleep(20 * time.Millisecond)
	}
}

// ReleaseFeeLock releases the lock taken by AcquireFeeLock.
func (r *Redis) ReleaseFeeLock(feeID, token string) error {
	return r.UnlockFee(feeID, token)
}
