package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"radarbot-backend/internal/chrono"
	"radarbot-backend/internal/notifier"
	"radarbot-backend/internal/store"
	internaltel "radarbot-backend/internal/telemetry"
	"radarbot-backend/lib/browser"
	"radarbot-backend/lib/mailer"
	"radarbot-backend/lib/restyutil"
	"radarbot-backend/lib/scrapers/radar"
	"radarbot-backend/lib/telegram"
	"radarbot-backend/lib/twilio"
	"time"
)

var tel internaltel.API = internaltel.SlogAPI{}

// dumpOutput returns where the HTTP exchanges of one client are written, nil
// when --http-dump was not given.
func dumpOutput(name string) (restyutil.InstrumentOutput, error) {
	if httpDump == "" {
		return nil, nil
	}
	out, err := restyutil.NewFilesystemOutput(filepath.Join(httpDump, name))
	if err != nil {
		return nil, fmt.Errorf("create http dump directory: %w", err)
	}
	return out, nil
}

func newTelegramClient() (*telegram.Client, error) {
	output, err := dumpOutput("telegram")
	if err != nil {
		return nil, err
	}
	return telegram.NewClient(telegram.ClientOptions{
		Token:             cfg.Telegram.Token,
		BaseUrl:           cfg.Telegram.BaseUrl,
		RequestsPerSecond: cfg.Telegram.RequestsPerSecond,
		InstrumentOutput:  output,
	}, tel)
}

func openStore(ctx context.Context) (store.Store, error) {
	s, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return s, nil
}

type radarSource interface {
	radar.Source
	Check(ctx context.Context) (radar.Status, error)
}

// newRadarSource creates the scraper selected by radar.mode, the returned
// function releases the browser when one was launched.
func newRadarSource(ctx context.Context, clock chrono.TimeAPI) (radarSource, *radar.PageScraper, func(), error) {
	if cfg.Radar.Url == "" {
		return nil, nil, nil, fmt.Errorf("the radar page url was not specified (radar.url or DONOSTI_RADAR_WEB)")
	}

	switch cfg.Radar.Mode {
	case RadarModeStatic:
		output, err := dumpOutput("radar")
		if err != nil {
			return nil, nil, nil, err
		}
		return radar.NewStaticScraper(cfg.Radar.Url, clock, tel, output), nil, func() {}, nil
	case RadarModeBrowser, "":
	default:
		return nil, nil, nil, fmt.Errorf("unknown radar mode %q", cfg.Radar.Mode)
	}

	browserCfg := cfg.Radar.Browser
	if cfg.Radar.NavigationTimeoutSeconds > 0 {
		browserCfg.NavigationTimeout = time.Duration(cfg.Radar.NavigationTimeoutSeconds) * time.Second
	}
	b, err := browser.Launch(ctx, browserCfg)
	if err != nil {
		return nil, nil, nil, err
	}

	load := browser.DefaultLoadOptions
	if cfg.Radar.LoadRetries > 0 {
		load.Retries = cfg.Radar.LoadRetries
	}
	scraper := radar.NewPageScraper(
		radar.BrowserOpener{Browser: b, Load: load},
		cfg.Radar.Url,
		clock,
		tel,
	)
	return scraper, scraper, func() {
		err := b.Close()
		if err != nil {
			tel.ReportWarning("browser.close", err)
		}
	}, nil
}

func newNotifier(source radar.Source, bot notifier.Bot, s store.Store, clock chrono.TimeAPI, opts notifier.Options) (*notifier.Notifier, error) {
	err := opts.Validate()
	if err != nil {
		return nil, fmt.Errorf("notify config: %w", err)
	}
	n := notifier.New(source, bot, s, clock, tel, opts)

	if cfg.Twilio.Configured() && len(opts.WhatsAppTo) > 0 {
		output, err := dumpOutput("twilio")
		if err != nil {
			return nil, err
		}
		client, err := twilio.NewClient(twilio.ClientOptions{
			AccountSid:       cfg.Twilio.AccountSid,
			AuthToken:        cfg.Twilio.AuthToken,
			From:             cfg.Twilio.From,
			BaseUrl:          cfg.Twilio.BaseUrl,
			InstrumentOutput: output,
		}, tel)
		if err != nil {
			return nil, err
		}
		n.WithWhatsApp(client)
	}

	if cfg.Smtp.Configured() && len(opts.EmailTo) > 0 {
		m, err := mailer.New(cfg.Smtp)
		if err != nil {
			return nil, err
		}
		n.WithMailer(m)
	}
	return n, nil
}
