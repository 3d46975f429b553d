package radar

import (
	"context"
	"fmt"
	"radarbot-backend/internal/assert"
	"radarbot-backend/internal/chrono"
	"radarbot-backend/internal/telemetry"
	"radarbot-backend/lib/browser"
	"radarbot-backend/lib/imageutil"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	report_check_wait_content   = "check.wait-content"
	report_check_parse          = "check.parse"
	report_capture_cookies      = "capture.reject-cookies"
	report_capture_hide         = "capture.hide-controls"
	report_capture_screenshot   = "capture.screenshot"
	report_inspect_capture      = "inspect.capture"
	report_inspect_no_capturing = "inspect.no-capturing"
)

var tracer = otel.Tracer("radarbot.lib.scrapers.radar")

const (
	contentSelector  = ".span12"
	canvasSelector   = "canvas.ol-unselectable"
	cookieButton     = "button"
	cookieRejectText = "Rechazar todo"
)

// map controls drawn over the canvas
var overlaySelectors = []string{
	"#SimpleBaseLayerSelectPlugin_c",
	".ol-attribution",
	".ol-zoom",
}

// DefaultInsets removes the page chrome around the map from a 1920x1080 screenshot.
var DefaultInsets = imageutil.Insets{Left: 31, Top: 1, Right: 48, Bottom: 52}

// Source is anything able to report the radar status and, when asked, a map image.
type Source interface {
	// Inspect checks the status and captures the map if wantMap(status) is true.
	// A failed capture is reported and returns a nil image, not an error.
	Inspect(ctx context.Context, wantMap func(Status) bool) (Status, []byte, error)
}

// Page is a loaded browser tab.
type Page interface {
	WaitFor(selector string, timeout time.Duration) error
	HTML() (string, error)
	ClickText(selector, pattern string, timeout time.Duration) error
	Hide(selector string) error
	ScrollIntoView(selector string, timeout time.Duration) error
	Screenshot() ([]byte, error)
	Close() error
}

type Opener interface {
	Open(ctx context.Context, url string) (Page, error)
}

// BrowserOpener opens pages in a go-rod browser.
type BrowserOpener struct {
	Browser *browser.Browser
	Load    browser.LoadOptions
}

func (o BrowserOpener) Open(ctx context.Context, url string) (Page, error) {
	page, err := o.Browser.Open(ctx, url, o.Load)
	if err != nil {
		return nil, err
	}
	return page, nil
}

type PageScraper struct {
	opener Opener
	url    string
	clock  chrono.TimeAPI
	tel    telemetry.API

	WaitTimeout   time.Duration
	CookieTimeout time.Duration
	MapTimeout    time.Duration
	Settle        time.Duration
	Insets        imageutil.Insets
}

func NewPageScraper(opener Opener, url string, clock chrono.TimeAPI, tel telemetry.API) *PageScraper {
	assert.NotNil(opener, "opener")
	assert.NotNil(clock, "clock")
	assert.NotNil(tel, "tel")
	assert.NotEmptyStr(url, "url")

	return &PageScraper{
		opener:        opener,
		url:           url,
		clock:         clock,
		tel:           telemetry.NewScopedAPI("radar_scraper", tel),
		WaitTimeout:   10 * time.Second,
		CookieTimeout: 2 * time.Second,
		MapTimeout:    5 * time.Second,
		Settle:        2 * time.Second,
		Insets:        DefaultInsets,
	}
}

func (s *PageScraper) Check(ctx context.Context) (Status, error) {
	status, _, err := s.Inspect(ctx, nil)
	return status, err
}

func (s *PageScraper) Inspect(ctx context.Context, wantMap func(Status) bool) (Status, []byte, error) {
	ctx, span := tracer.Start(ctx, "Inspect")
	defer span.End()

	page, err := s.opener.Open(ctx, s.url)
	if err != nil {
		return Status{}, nil, fmt.Errorf("radar: open page: %w", err)
	}
	defer page.Close()

	status, err := s.status(page)
	if err != nil {
		return Status{}, nil, err
	}
	span.SetAttributes(
		attribute.String("state", string(status.State)),
		attribute.Int("locations", len(status.Locations)),
	)

	if wantMap == nil || !wantMap(status) {
		return status, nil, nil
	}
	image, err := s.capture(ctx, page)
	if err != nil {
		s.tel.ReportBroken(report_inspect_capture, err)
		return status, nil, nil
	}
	return status, image, nil
}

// CaptureMap loads the page and returns the cropped map, regardless of the status.
func (s *PageScraper) CaptureMap(ctx context.Context) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "CaptureMap")
	defer span.End()

	page, err := s.opener.Open(ctx, s.url)
	if err != nil {
		return nil, fmt.Errorf("radar: open page: %w", err)
	}
	defer page.Close()

	return s.capture(ctx, page)
}

func (s *PageScraper) status(page Page) (Status, error) {
	err := page.WaitFor(contentSelector, s.WaitTimeout)
	if err != nil {
		// the classification below still runs, a page without content is "unknown"
		s.tel.ReportWarning(report_check_wait_content, err)
	}

	html, err := page.HTML()
	if err != nil {
		s.tel.ReportBroken(report_check_parse, err)
		return Status{}, fmt.Errorf("radar: read page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		s.tel.ReportBroken(report_check_parse, err)
		return Status{}, fmt.Errorf("radar: parse page: %w", err)
	}

	status := ParseStatus(doc, s.clock.Now())
	s.tel.ReportDebug("radar status", status.State, status.Locations)
	return status, nil
}

func (s *PageScraper) capture(ctx context.Context, page Page) ([]byte, error) {
	_, span := tracer.Start(ctx, "capture", trace.WithAttributes(
		attribute.String("url", s.url),
	))
	defer span.End()

	err := page.ClickText(cookieButton, cookieRejectText, s.CookieTimeout)
	if err != nil {
		s.tel.ReportWarning(report_capture_cookies, err)
	}

	for _, selector := range overlaySelectors {
		err = page.Hide(selector)
		if err != nil {
			s.tel.ReportBroken(report_capture_hide, err)
			return nil, fmt.Errorf("radar: hide map controls: %w", err)
		}
	}

	err = page.ScrollIntoView(canvasSelector, s.MapTimeout)
	if err != nil {
		return nil, fmt.Errorf("radar: scroll to map: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(s.Settle):
	}

	shot, err := page.Screenshot()
	if err != nil {
		s.tel.ReportBroken(report_capture_screenshot, err)
		return nil, fmt.Errorf("radar: screenshot: %w", err)
	}
	cropped, err := imageutil.Crop(shot, s.Insets)
	if err != nil {
		s.tel.ReportBroken(report_capture_screenshot, err)
		return nil, fmt.Errorf("radar: crop screenshot: %w", err)
	}
	return cropped, nil
}
