package radar

import (
	"bytes"
	"context"
	"fmt"
	"radarbot-backend/internal/assert"
	"radarbot-backend/internal/chrono"
	"radarbot-backend/internal/telemetry"
	"radarbot-backend/lib/restyutil"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

const report_static_fetch = "static.fetch"

// StaticScraper reads the page over plain HTTP. It works as long as the
// radar list is in the server-rendered markup and it cannot capture the map.
type StaticScraper struct {
	http  *resty.Client
	url   string
	clock chrono.TimeAPI
	tel   telemetry.API
}

func NewStaticScraper(url string, clock chrono.TimeAPI, tel telemetry.API, output restyutil.InstrumentOutput) *StaticScraper {
	assert.NotEmptyStr(url, "url")
	assert.NotNil(clock, "clock")
	assert.NotNil(tel, "tel")

	tel = telemetry.NewScopedAPI("radar_scraper", tel)

	client := resty.New()
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetTimeout(30 * time.Second)
	client.SetRetryCount(2)
	client.SetRetryWaitTime(2 * time.Second)

	telemetry.InstrumentResty(client, tel)
	restyutil.InstrumentClient(client, tracer, output)

	return &StaticScraper{
		http:  client,
		url:   url,
		clock: clock,
		tel:   tel,
	}
}

func (s *StaticScraper) Check(ctx context.Context) (Status, error) {
	ctx, span := tracer.Start(ctx, "StaticCheck")
	defer span.End()

	res, err := s.http.R().
		SetContext(ctx).
		Get(s.url)
	if err != nil {
		s.tel.ReportBroken(report_static_fetch, err)
		return Status{}, fmt.Errorf("radar: fetch page: %w", err)
	}
	if res.IsError() {
		err = fmt.Errorf("radar: fetch page: unexpected status %s", res.Status())
		s.tel.ReportBroken(report_static_fetch, err)
		return Status{}, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		s.tel.ReportBroken(report_check_parse, err)
		return Status{}, fmt.Errorf("radar: parse page: %w", err)
	}
	return ParseStatus(doc, s.clock.Now()), nil
}

func (s *StaticScraper) Inspect(ctx context.Context, wantMap func(Status) bool) (Status, []byte, error) {
	status, err := s.Check(ctx)
	if err != nil {
		return Status{}, nil, err
	}
	if wantMap != nil && wantMap(status) {
		s.tel.ReportWarning(report_inspect_no_capturing, "the static scraper cannot capture the map")
	}
	return status, nil, nil
}
