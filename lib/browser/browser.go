// Package browser drives a headless Chrome through go-rod for pages that
// only render their content with javascript.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("radarbot.lib.browser")

type Config struct {
	// Bin is the chrome executable, when empty rod looks one up (or downloads it).
	Bin               string        `json:"bin"`
	Headless          *bool         `json:"headless"`
	WindowWidth       int           `json:"window_width"`
	WindowHeight      int           `json:"window_height"`
	NoSandbox         bool          `json:"no_sandbox"`
	NavigationTimeout time.Duration `json:"-"`
}

func (c Config) headless() bool {
	if c.Headless == nil {
		return true
	}
	return *c.Headless
}

func (c Config) windowSize() (int, int) {
	w, h := c.WindowWidth, c.WindowHeight
	if w <= 0 {
		w = 1920
	}
	if h <= 0 {
		h = 1080
	}
	return w, h
}

func (c Config) navigationTimeout() time.Duration {
	if c.NavigationTimeout <= 0 {
		return 30 * time.Second
	}
	return c.NavigationTimeout
}

type Browser struct {
	cfg      Config
	launcher *launcher.Launcher
	rod      *rod.Browser
}

func Launch(ctx context.Context, cfg Config) (*Browser, error) {
	ctx, span := tracer.Start(ctx, "Launch")
	defer span.End()

	width, height := cfg.windowSize()
	l := launcher.New().
		Headless(cfg.headless()).
		Set("disable-gpu").
		Set("window-size", fmt.Sprintf("%d,%d", width, height))
	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	}
	if cfg.NoSandbox {
		l = l.NoSandbox(true)
	}

	controlURL, err := l.Launch()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to launch chrome")
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	err = b.Connect()
	if err != nil {
		l.Kill()
		l.Cleanup()
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to connect to chrome")
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	return &Browser{
		cfg:      cfg,
		launcher: l,
		rod:      b,
	}, nil
}

// Close shuts chrome down, the process is killed even when the
// devtools connection is already gone.
func (b *Browser) Close() error {
	err := b.rod.Close()
	b.launcher.Kill()
	b.launcher.Cleanup()
	return err
}

type LoadOptions struct {
	Retries int
	Delay   time.Duration
}

var DefaultLoadOptions = LoadOptions{
	Retries: 3,
	Delay:   2 * time.Second,
}

// Open navigates a new tab to url, trying again up to opts.Retries times.
func (b *Browser) Open(ctx context.Context, url string, opts LoadOptions) (*Page, error) {
	ctx, span := tracer.Start(ctx, "Open", trace.WithAttributes(
		attribute.String("url", url),
	))
	defer span.End()

	if opts.Retries <= 0 {
		opts.Retries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= opts.Retries; attempt++ {
		page, err := b.open(ctx, url)
		if err == nil {
			return page, nil
		}
		lastErr = err
		slog.WarnContext(ctx, "failed to load page", "url", url, "attempt", attempt, "err", err)

		if attempt == opts.Retries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(opts.Delay):
		}
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, "failed to load page")
	return nil, fmt.Errorf("load %s after %d attempts: %w", url, opts.Retries, lastErr)
}

func (b *Browser) open(ctx context.Context, url string) (*Page, error) {
	page, err := b.rod.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, err
	}

	width, height := b.cfg.windowSize()
	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		page.Close()
		return nil, err
	}

	nav := page.Timeout(b.cfg.navigationTimeout())
	err = nav.Navigate(url)
	if err == nil {
		err = nav.WaitLoad()
	}
	if err != nil {
		page.Close()
		return nil, err
	}

	return &Page{rod: page}, nil
}
