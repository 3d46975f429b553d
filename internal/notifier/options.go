package notifier

import (
	"fmt"
	"radarbot-backend/lib/scrapers/radar"
)

// CapturePolicy decides for which statuses the map is captured and sent.
type CapturePolicy string

const (
	CapturePresent CapturePolicy = "present"
	CaptureAbsent  CapturePolicy = "absent"
	CaptureAlways  CapturePolicy = "always"
	CaptureNever   CapturePolicy = "never"
)

func (p CapturePolicy) Matches(status radar.Status) bool {
	switch p {
	case CapturePresent, "":
		return status.HasRadar()
	case CaptureAbsent:
		return status.State == radar.StateAbsent
	case CaptureAlways:
		return true
	default:
		return false
	}
}

// RecipientSource is where the chat ids to notify come from.
type RecipientSource string

const (
	// RecipientsStore notifies every active chat saved by the interactions updater.
	RecipientsStore RecipientSource = "store"
	// RecipientsUpdates notifies every user found in the pending bot updates.
	RecipientsUpdates RecipientSource = "updates"
	// RecipientsStatic notifies a fixed list of chat ids.
	RecipientsStatic RecipientSource = "static"
)

type Options struct {
	Recipients       RecipientSource `json:"recipients"`
	StaticRecipients []int64         `json:"static_recipients"`
	Capture          CapturePolicy   `json:"capture"`
	// PhotoName is the file name of the map sent to users.
	PhotoName string `json:"photo_name"`
	// DryRun composes the message without sending or recording anything.
	DryRun     bool     `json:"dry_run"`
	WhatsAppTo []string `json:"whatsapp_to"`
	EmailTo    []string `json:"email_to"`
}

func (o Options) withDefaults() Options {
	if o.Recipients == "" {
		o.Recipients = RecipientsStore
	}
	if o.Capture == "" {
		o.Capture = CapturePresent
	}
	if o.PhotoName == "" {
		o.PhotoName = "mapa_recortado.png"
	}
	return o
}

func (o Options) Validate() error {
	switch o.Recipients {
	case "", RecipientsStore, RecipientsUpdates, RecipientsStatic:
	default:
		return fmt.Errorf("unknown recipient source %q", o.Recipients)
	}
	switch o.Capture {
	case "", CapturePresent, CaptureAbsent, CaptureAlways, CaptureNever:
	default:
		return fmt.Errorf("unknown capture policy %q", o.Capture)
	}
	if o.Recipients == RecipientsStatic && len(o.StaticRecipients) == 0 {
		return fmt.Errorf("static recipients were not specified")
	}
	return nil
}
