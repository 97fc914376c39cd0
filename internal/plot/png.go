package plot

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

// PNGSink 先渲染 echarts HTML，再用无头 Chrome 截图为 PNG。
type PNGSink struct {
	Dir     string
	Size    ChartSize
	Timeout time.Duration

	guard *renderGuard
}

func NewPNGSink(dir string, size ChartSize, timeout time.Duration) *PNGSink {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &PNGSink{
		Dir:     dir,
		Size:    size.orDefault(),
		Timeout: timeout,
		guard:   newRenderGuard("png", 2, time.Minute),
	}
}

func (s *PNGSink) Plot(ctx context.Context, fig Figure) (Artifact, error) {
	html, err := RenderHTML(fig, s.Size)
	if err != nil {
		return Artifact{}, err
	}
	if s.guard != nil {
		if err := s.guard.allow(); err != nil {
			return Artifact{}, err
		}
	}
	if err := EnsureHeadlessAvailable(ctx); err != nil {
		if ctx.Err() == nil && s.guard != nil {
			s.guard.record(err)
		}
		return Artifact{}, fmt.Errorf("headless chrome unavailable: %w", err)
	}
	png, err := renderHTMLToPNG(ctx, html, s.Size.Width, s.Size.Height, s.Timeout)
	if s.guard != nil {
		s.guard.record(err)
	}
	if err != nil {
		return Artifact{}, fmt.Errorf("render %s/%s png: %w", fig.Name, fig.Domain, err)
	}
	path, err := writeArtifact(s.Dir, fig, "png", png)
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{Figure: fig.Name, Domain: fig.Domain, Path: path, Format: "png", Bytes: png}, nil
}

const headlessProbeTimeout = 30 * time.Second

var (
	headlessMu    sync.Mutex
	headlessOK    bool
	headlessProbe = probeHeadless
)

// EnsureHeadlessAvailable 检查本机能否启动 Chrome。只缓存成功结果，失败后下次调用会重新探测。
// 探测不随调用方取消而中断，避免把一次取消误记为 Chrome 不可用。
func EnsureHeadlessAvailable(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	headlessMu.Lock()
	defer headlessMu.Unlock()
	if headlessOK {
		return nil
	}
	if err := headlessProbe(context.WithoutCancel(ctx)); err != nil {
		return err
	}
	headlessOK = true
	return nil
}

func probeHeadless(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, headlessProbeTimeout)
	defer cancel()
	browser, cancelBrowser := chromedp.NewContext(ctx)
	defer cancelBrowser()
	return chromedp.Run(browser)
}

func renderHTMLToPNG(ctx context.Context, html []byte, width, height int, timeout time.Duration) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	parent, cancel := chromedp.NewContext(ctx)
	defer cancel()

	timeoutCtx, cancelTimeout := context.WithTimeout(parent, timeout)
	defer cancelTimeout()

	dataURI := "data:text/html;base64," + base64.StdEncoding.EncodeToString(html)
	var screenshot []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(width), int64(height)),
		chromedp.Navigate(dataURI),
		chromedp.WaitReady("body", chromedp.ByQuery),
		// echarts 首帧动画
		chromedp.Sleep(1500 * time.Millisecond),
		chromedp.FullScreenshot(&screenshot, 0),
	}
	if err := chromedp.Run(timeoutCtx, tasks...); err != nil {
		return nil, err
	}
	return screenshot, nil
}
