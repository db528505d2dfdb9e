package lock

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// ============================================================================
// Redis 互斥锁
// ============================================================================
//
// 多个 cafehub 实例共用一个数据库时，本地消息表只允许一个实例在同一轮中投递，
// 否则同一条事件会被多个实例同时发出。
//
// 加锁：SET key value NX PX ttl
//   - value 是实例标识，释放时校验，过期后被别人拿到的锁不会被误删
//   - ttl 防止持有者崩溃后锁永不释放
//
// 释放：Lua 脚本里比较 value 再删除，保证原子性
//
// ============================================================================

var ErrNotHeld = errors.New("锁不属于当前持有者")

// 比较并删除
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Mutex 基于单个 Redis key 的互斥锁
type Mutex struct {
	client redis.UniversalClient
	key    string
	owner  string
	ttl    time.Duration
}

func NewMutex(client redis.UniversalClient, key, owner string, ttl time.Duration) *Mutex {
	return &Mutex{client: client, key: key, owner: owner, ttl: ttl}
}

// TryLock 非阻塞获取，已被他人持有时返回 false
func (m *Mutex) TryLock(ctx context.Context) (bool, error) {
	return m.client.SetNX(ctx, m.key, m.owner, m.ttl).Result()
}

// Unlock 只删除自己持有的锁
func (m *Mutex) Unlock(ctx context.Context) error {
	n, err := unlockScript.Run(ctx, m.client, []string{m.key}, m.owner).Int64()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotHeld
	}
	return nil
}

// NewOutboxRelayLock 本地消息投递的全局锁
func NewOutboxRelayLock(client redis.UniversalClient, instanceID string, ttl time.Duration) *Mutex {
	return NewMutex(client, "cafehub:outbox:relay", instanceID, ttl)
}
