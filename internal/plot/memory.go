package plot

import (
	"context"
	"sync"
)

// MemorySink 保存收到的 Figure，不做渲染。
type MemorySink struct {
	mu      sync.Mutex
	figures []Figure
}

func (m *MemorySink) Plot(_ context.Context, fig Figure) (Artifact, error) {
	m.mu.Lock()
	m.figures = append(m.figures, fig)
	m.mu.Unlock()
	return Artifact{Figure: fig.Name, Domain: fig.Domain, Format: "memory"}, nil
}

func (m *MemorySink) Figures() []Figure {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Figure(nil), m.figures...)
}
