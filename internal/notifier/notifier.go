// Package notifier tells the bot's users whether mobile radars are deployed today.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"radarbot-backend/internal/assert"
	"radarbot-backend/internal/chrono"
	"radarbot-backend/internal/store"
	"radarbot-backend/internal/telemetry"
	"radarbot-backend/lib/mailer"
	"radarbot-backend/lib/scrapers/radar"
	"radarbot-backend/lib/telegram"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	report_check      = "check"
	report_recipients = "recipients"
	report_send_text  = "send.message"
	report_send_photo = "send.photo"
	report_whatsapp   = "send.whatsapp"
	report_email      = "send.email"
	report_record     = "record"
	report_count_sent = "notify.sent"
	report_count_fail = "notify.failed"
)

var tracer = otel.Tracer("radarbot.internal.notifier")

type Bot interface {
	GetUpdates(ctx context.Context, params telegram.GetUpdatesParams) ([]telegram.Update, error)
	SendMessage(ctx context.Context, params telegram.SendMessageParams) error
	SendPhoto(ctx context.Context, params telegram.SendPhotoParams) error
}

type WhatsApp interface {
	SendWhatsApp(ctx context.Context, to, body string) (string, error)
}

type Mailer interface {
	Send(ctx context.Context, mail mailer.Mail) error
}

type Result struct {
	Status     radar.Status
	Message    string
	Recipients []int64
	IDsSent    []int64
	IDsError   []int64
	// Map is the cropped capture, nil when it was not taken.
	Map          []byte
	PhotosSent   int
	WhatsAppSent int
	Emailed      bool
	ReportID     string
}

type Notifier struct {
	source radar.Source
	bot    Bot
	store  store.Store
	clock  chrono.TimeAPI
	tel    telemetry.API
	opts   Options

	whatsapp WhatsApp
	mailer   Mailer
}

// New creates a Notifier, `s` may be nil when recipients do not come from
// the store and reports are not recorded (dry runs).
func New(source radar.Source, bot Bot, s store.Store, clock chrono.TimeAPI, tel telemetry.API, opts Options) *Notifier {
	assert.NotNil(source, "source")
	assert.NotNil(bot, "bot")
	assert.NotNil(clock, "clock")
	assert.NotNil(tel, "tel")

	return &Notifier{
		source: source,
		bot:    bot,
		store:  s,
		clock:  clock,
		tel:    telemetry.NewScopedAPI("notifier", tel),
		opts:   opts.withDefaults(),
	}
}

func (n *Notifier) WithWhatsApp(w WhatsApp) *Notifier {
	n.whatsapp = w
	return n
}

func (n *Notifier) WithMailer(m Mailer) *Notifier {
	n.mailer = m
	return n
}

// Recipients resolves the chat ids that should be notified.
func (n *Notifier) Recipients(ctx context.Context) ([]int64, error) {
	switch n.opts.Recipients {
	case RecipientsStatic:
		return n.opts.StaticRecipients, nil
	case RecipientsUpdates:
		updates, err := n.bot.GetUpdates(ctx, telegram.GetUpdatesParams{})
		if err != nil {
			return nil, fmt.Errorf("get updates: %w", err)
		}
		var ids []int64
		seen := map[int64]bool{}
		for _, update := range updates {
			if update.Message == nil || update.Message.From == nil {
				continue
			}
			id := update.Message.From.ID
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
		return ids, nil
	default:
		if n.store == nil {
			return nil, fmt.Errorf("recipients come from the store but no store is configured")
		}
		return n.store.ListChatIDs(ctx, true)
	}
}

func (n *Notifier) hasAudience(recipients []int64) bool {
	return len(recipients) > 0 ||
		(n.whatsapp != nil && len(n.opts.WhatsAppTo) > 0) ||
		(n.mailer != nil && len(n.opts.EmailTo) > 0)
}

func (n *Notifier) Run(ctx context.Context) (Result, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	// recipients are resolved once the status is known, the map is only
	// captured when someone will receive it
	var (
		recipients    []int64
		recipientsErr error
		resolved      bool
	)
	resolve := func() {
		if resolved {
			return
		}
		resolved = true
		recipients, recipientsErr = n.Recipients(ctx)
	}
	wantMap := func(status radar.Status) bool {
		resolve()
		return recipientsErr == nil && n.hasAudience(recipients) && n.opts.Capture.Matches(status)
	}

	status, image, err := n.source.Inspect(ctx, wantMap)
	if err != nil {
		n.tel.ReportBroken(report_check, err)
		return Result{}, fmt.Errorf("check radar status: %w", err)
	}
	n.tel.ReportDebug("radar status", "state", status.State, "locations", status.Locations)

	result := Result{
		Status:  status,
		Message: ComposeMessage(status),
		Map:     image,
	}

	resolve()
	if recipientsErr != nil {
		n.tel.ReportBroken(report_recipients, recipientsErr)
		return result, fmt.Errorf("resolve recipients: %w", recipientsErr)
	}
	result.Recipients = recipients
	span.SetAttributes(
		attribute.String("state", string(status.State)),
		attribute.Int("recipients", len(recipients)),
		attribute.Bool("map", image != nil),
	)

	if n.opts.DryRun {
		n.tel.ReportDebug("dry run, nothing is sent", "message", result.Message, "recipients", recipients)
		return result, nil
	}

	if len(recipients) == 0 {
		n.tel.ReportWarning(report_recipients, "there are no users to notify")
	}
	n.sendMessages(ctx, &result)
	n.sendPhotos(ctx, &result)

	var errs []error
	errs = append(errs, n.sendWhatsApp(ctx, &result))
	errs = append(errs, n.sendEmail(ctx, &result))

	if n.store == nil {
		n.tel.ReportWarning(report_record, "no store is configured, the report is not recorded")
		return result, errors.Join(errs...)
	}
	report := store.Report{
		ScrappingTime: n.clock.Now().UTC(),
		Status:        string(status.State),
		HasRadar:      status.HasRadar(),
		IDsSent:       result.IDsSent,
		IDsError:      result.IDsError,
	}
	if status.HasRadar() {
		report.Locations = status.Locations
	}
	if len(recipients) > 0 {
		report.MessageSent = result.Message
	}
	result.ReportID, err = n.store.InsertReport(ctx, report)
	if err != nil {
		n.tel.ReportBroken(report_record, err)
		errs = append(errs, fmt.Errorf("record report: %w", err))
	}

	return result, errors.Join(errs...)
}

func (n *Notifier) sendMessages(ctx context.Context, result *Result) {
	for _, id := range result.Recipients {
		err := n.bot.SendMessage(ctx, telegram.SendMessageParams{
			ChatID:    id,
			Text:      result.Message,
			ParseMode: telegram.ParseModeMarkdown,
		})
		if err != nil {
			n.tel.ReportWarning(report_send_text, id, err)
			result.IDsError = append(result.IDsError, id)
			continue
		}
		result.IDsSent = append(result.IDsSent, id)
	}
	n.tel.ReportCount(report_count_sent, int64(len(result.IDsSent)))
	n.tel.ReportCount(report_count_fail, int64(len(result.IDsError)))
}

func (n *Notifier) sendPhotos(ctx context.Context, result *Result) {
	if result.Map == nil {
		return
	}
	for _, id := range result.Recipients {
		err := n.bot.SendPhoto(ctx, telegram.SendPhotoParams{
			ChatID:   id,
			FileName: n.opts.PhotoName,
			Photo:    result.Map,
		})
		if err != nil {
			n.tel.ReportWarning(report_send_photo, id, err)
			continue
		}
		result.PhotosSent++
	}
}

func (n *Notifier) sendWhatsApp(ctx context.Context, result *Result) error {
	if n.whatsapp == nil || len(n.opts.WhatsAppTo) == 0 {
		return nil
	}
	var errs []error
	for _, to := range n.opts.WhatsAppTo {
		_, err := n.whatsapp.SendWhatsApp(ctx, to, result.Message)
		if err != nil {
			n.tel.ReportBroken(report_whatsapp, to, err)
			errs = append(errs, err)
			continue
		}
		result.WhatsAppSent++
	}
	return errors.Join(errs...)
}

func (n *Notifier) sendEmail(ctx context.Context, result *Result) error {
	if n.mailer == nil || len(n.opts.EmailTo) == 0 {
		return nil
	}

	text := fmt.Sprintf(
		"%s\n\nEstado: %s\nEnviado a: %d\nErrores: %d\n",
		result.Message,
		result.Status.State,
		len(result.IDsSent),
		len(result.IDsError),
	)
	mail := mailer.Mail{
		To:      n.opts.EmailTo,
		Subject: fmt.Sprintf("Radares móviles %s", result.Status.Date),
		Text:    text,
	}
	if result.Map != nil {
		mail.Attachments = append(mail.Attachments, mailer.Attachment{
			FileName:    n.opts.PhotoName,
			ContentType: "image/png",
			Content:     result.Map,
		})
	}

	err := n.mailer.Send(ctx, mail)
	if err != nil {
		n.tel.ReportBroken(report_email, err)
		return err
	}
	result.Emailed = true
	return nil
}
