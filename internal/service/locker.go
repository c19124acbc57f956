package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ErrLockBusy 在 context 结束前没有拿到锁
var ErrLockBusy = errors.New("lock busy")

// Locker 按 (user, activity) 串行化状态迁移
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

func lockKey(userID, activityID uint) string {
	return fmt.Sprintf("crucible:lock:attempt:%d:%d", userID, activityID)
}

// attemptLockKey 同一尝试的拥有者与加入者共用
func attemptLockKey(attemptID uint) string {
	return fmt.Sprintf("crucible:lock:attempt:id:%d", attemptID)
}

const lockRetry = 50 * time.Millisecond

// RedisLocker 多实例部署使用，SETNX 加锁，Lua 脚本校验 token 后释放
type RedisLocker struct {
	Redis *redis.Client
	TTL   time.Duration
}

func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{Redis: rdb, TTL: ttl}
}

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	end
	return 0
`)

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	for {
		ok, err := l.Redis.SetNX(ctx, key, token, l.TTL).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %s", ErrLockBusy, key)
			}
			return nil, err
		}
		if ok {
			return func() {
				// 请求 context 可能已取消，释放锁使用独立的 context
				releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				releaseScript.Run(releaseCtx, l.Redis, []string{key}, token)
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", ErrLockBusy, key)
		case <-time.After(lockRetry):
		}
	}
}

// LocalLocker 单实例部署与测试使用
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]chan struct{})}
}

func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	for {
		l.mu.Lock()
		held, busy := l.locks[key]
		if !busy {
			ch := make(chan struct{})
			l.locks[key] = ch
			l.mu.Unlock()
			var once sync.Once
			return func() {
				once.Do(func() {
					l.mu.Lock()
					delete(l.locks, key)
					l.mu.Unlock()
					close(ch)
				})
			}, nil
		}
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", ErrLockBusy, key)
		case <-held:
		}
	}
}
