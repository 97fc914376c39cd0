package plot

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"fiberatt/internal/logger"
)

// ErrRendererOpen 表示渲染器连续失败后处于冷却期。
var ErrRendererOpen = errors.New("renderer disabled after repeated failures")

// renderGuard 在连续 threshold 次失败后暂停渲染 cooldown 时长，
// 冷却结束放行一次试探，成功即恢复。
type renderGuard struct {
	mu        sync.Mutex
	name      string
	threshold int
	cooldown  time.Duration
	failures  int
	openUntil time.Time
	now       func() time.Time
}

func newRenderGuard(name string, threshold int, cooldown time.Duration) *renderGuard {
	if threshold <= 0 {
		threshold = 2
	}
	return &renderGuard{name: name, threshold: threshold, cooldown: cooldown, now: time.Now}
}

func (g *renderGuard) allow() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.openUntil.IsZero() || !g.now().Before(g.openUntil) {
		return nil
	}
	return fmt.Errorf("%s: %w (retry in %s)", g.name, ErrRendererOpen, g.openUntil.Sub(g.now()).Round(time.Second))
}

func (g *renderGuard) record(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err == nil {
		g.failures = 0
		g.openUntil = time.Time{}
		return
	}
	g.failures++
	if g.failures >= g.threshold {
		g.openUntil = g.now().Add(g.cooldown)
		logger.Warnf("%s renderer paused for %s after %d failures: %v", g.name, g.cooldown, g.failures, err)
	}
}
