package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"cafehub/internal/config"

	"gorm.io/gorm"
)

// ============================================================================
// 共享连接池句柄
// ============================================================================
//
// 进程内只有一个 Pool，由 main 创建并显式传给各个仓储和任务。
//
// 【热切换】
//   Swap 只在很短的写锁内替换指针；已经拿到旧 *gorm.DB 的事务继续在旧池上
//   执行，旧池在 grace 之后才关闭，不会阻塞正在进行的事务。
//
// ============================================================================

var ErrPoolClosed = errors.New("数据库连接池已关闭")

// Provider 提供当前可用的连接池
type Provider interface {
	DB() *gorm.DB
}

type Pool struct {
	mu     sync.RWMutex
	db     *gorm.DB
	grace  time.Duration
	closed bool
	wg     sync.WaitGroup
}

func NewPool(db *gorm.DB, grace time.Duration) *Pool {
	return &Pool{db: db, grace: grace}
}

// DB 返回当前连接池。每个请求开始时取一次，整个请求都用同一个句柄。
func (p *Pool) DB() *gorm.DB {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.db
}

// Swap 替换连接池，旧池延迟关闭
func (p *Pool) Swap(next *gorm.DB) error {
	return p.swap(next, 0)
}

// swap grace > 0 时先更新宽限期，再按新的宽限期回收旧池
func (p *Pool) swap(next *gorm.DB, grace time.Duration) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	if grace > 0 {
		p.grace = grace
	}
	old := p.db
	p.db = next
	// Add 必须和 closed 检查在同一个写锁内，Close 的 Wait 才能看到它
	retire := old != nil && old != next
	if retire {
		p.wg.Add(1)
	}
	grace = p.grace
	p.mu.Unlock()

	if retire {
		go p.retire(old, grace)
	}
	return nil
}

// Reconnect 按新配置建立连接池，迁移成功后再切换
func (p *Pool) Reconnect(ctx context.Context, cfg *config.DatabaseConfig) error {
	if err := Ping(ctx, cfg); err != nil {
		return err
	}
	next, err := Open(cfg)
	if err != nil {
		return err
	}
	if err := p.swap(next, cfg.SwapGrace()); err != nil {
		Close(next)
		return err
	}
	log.Printf("[Database] 连接池已切换: driver=%s", cfg.Driver)
	return nil
}

func (p *Pool) retire(old *gorm.DB, grace time.Duration) {
	defer p.wg.Done()
	if grace > 0 {
		time.Sleep(grace)
	}
	if err := Close(old); err != nil {
		log.Printf("[Database] 关闭旧连接池失败: %v", err)
	}
}

// Close 关闭当前连接池，并等待被替换下来的旧池关闭完成
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	db := p.db
	p.mu.Unlock()

	p.wg.Wait()
	if db == nil {
		return nil
	}
	if err := Close(db); err != nil {
		return fmt.Errorf("关闭连接池失败: %w", err)
	}
	return nil
}
