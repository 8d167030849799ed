package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/LouYuanbo1/socialagent/internal/faults"
	"github.com/LouYuanbo1/socialagent/internal/infra/browser"
)

// Factory 创建新的浏览器驱动实例
type Factory func(ctx context.Context) (browser.Driver, error)

type Status struct {
	Healthy        bool      `json:"healthy"`
	Authenticated  bool      `json:"authenticated"`
	StartedAt      time.Time `json:"started_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	ErrorCount     int       `json:"error_count"`
}

// Manager 共享浏览器会话的生命周期管理,进程内单例,显式注入给消费方
// 会话只被交互队列串行使用,Manager本身不做并发调度
type Manager interface {
	// GetInstance 返回健康的现有会话(刷新活跃时间),不健康则清理后重建
	GetInstance(ctx context.Context) (browser.Driver, error)
	IsHealthy() bool
	// RecordError 累计操作错误,达到上限时强制清理并重建;重建失败返回错误,
	// 但Manager保持可用,下一次调用会再次尝试
	RecordError(ctx context.Context, err error) error
	// Cleanup 尽力关闭浏览器,无论关闭是否成功都无条件重置全部会话字段
	Cleanup()
	SetAuthenticationStatus(authenticated bool)
	Status() Status
}

type manager struct {
	factory   Factory
	timeout   time.Duration
	maxErrors int
	log       *zap.Logger

	sf singleflight.Group

	mu             sync.Mutex
	inst           browser.Driver
	authenticated  bool
	startedAt      time.Time
	lastActivityAt time.Time
	errorCount     int
}

func InitManager(factory Factory, timeout time.Duration, maxErrors int, log *zap.Logger) Manager {
	return &manager{
		factory:   factory,
		timeout:   timeout,
		maxErrors: maxErrors,
		log:       log.Named("session"),
	}
}

func (m *manager) GetInstance(ctx context.Context) (browser.Driver, error) {
	m.mu.Lock()
	if m.healthyLocked() {
		m.lastActivityAt = time.Now()
		inst := m.inst
		m.mu.Unlock()
		return inst, nil
	}
	m.mu.Unlock()

	// 并发到达的不健康调用只触发一次重建
	v, err, _ := m.sf.Do("recreate", func() (any, error) {
		m.mu.Lock()
		if m.healthyLocked() {
			inst := m.inst
			m.mu.Unlock()
			return inst, nil
		}
		m.mu.Unlock()

		m.Cleanup()
		m.log.Info("重建浏览器会话")
		inst, err := m.factory(ctx)
		if err != nil {
			return nil, faults.Mark(faults.Browser, err, "重建浏览器会话失败")
		}
		now := time.Now()
		m.mu.Lock()
		m.inst = inst
		m.authenticated = false
		m.errorCount = 0
		m.startedAt = now
		m.lastActivityAt = now
		m.mu.Unlock()
		return inst, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(browser.Driver), nil
}

// healthyLocked 调用前必须持有m.mu
func (m *manager) healthyLocked() bool {
	if m.inst == nil {
		return false
	}
	if !m.inst.IsConnected() || m.inst.IsPageClosed() {
		return false
	}
	evalCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := m.inst.Evaluate(evalCtx, `'ok'`); err != nil {
		return false
	}
	return time.Since(m.startedAt) <= m.timeout
}

func (m *manager) IsHealthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.healthyLocked()
}

func (m *manager) RecordError(ctx context.Context, err error) error {
	m.mu.Lock()
	m.errorCount++
	count := m.errorCount
	m.mu.Unlock()

	m.log.Warn("会话操作错误", zap.Int("error_count", count), zap.Error(err))
	if count < m.maxErrors {
		return nil
	}

	m.log.Warn("错误次数达到上限,强制重建会话", zap.Int("max_errors", m.maxErrors))
	m.Cleanup()
	if _, rerr := m.GetInstance(ctx); rerr != nil {
		return faults.Mark(faults.Browser, rerr, "强制重建会话失败")
	}
	return nil
}

func (m *manager) Cleanup() {
	m.mu.Lock()
	inst := m.inst
	m.inst = nil
	m.authenticated = false
	m.errorCount = 0
	m.startedAt = time.Time{}
	m.lastActivityAt = time.Time{}
	m.mu.Unlock()

	if inst == nil {
		return
	}
	// 关闭失败只记日志,字段已经重置,Manager不会把死会话当成活的
	func() {
		defer func() {
			if r := recover(); r != nil {
				m.log.Warn("关闭浏览器时panic", zap.Any("recover", r))
			}
		}()
		inst.Close()
	}()
}

func (m *manager) SetAuthenticationStatus(authenticated bool) {
	m.mu.Lock()
	m.authenticated = authenticated
	m.mu.Unlock()
}

func (m *manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		Healthy:        m.healthyLocked(),
		Authenticated:  m.authenticated,
		StartedAt:      m.startedAt,
		LastActivityAt: m.lastActivityAt,
		ErrorCount:     m.errorCount,
	}
}
