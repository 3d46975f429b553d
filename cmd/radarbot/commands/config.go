package commands

import (
	"errors"
	"fmt"
	"os"
	"radarbot-backend/internal/interactions"
	"radarbot-backend/internal/notifier"
	"radarbot-backend/internal/store"
	"radarbot-backend/lib/browser"
	"radarbot-backend/lib/configutil"
	"radarbot-backend/lib/mailer"
	"radarbot-backend/lib/telemetry"
	"strconv"
	"strings"
)

type TelegramConfig struct {
	Token             string  `json:"token"`
	BaseUrl           string  `json:"base_url"`
	RequestsPerSecond float64 `json:"requests_per_second"`
}

const (
	RadarModeBrowser = "browser"
	RadarModeStatic  = "static"
)

type RadarConfig struct {
	Url string `json:"url"`
	// Mode is "browser" (default) or "static", only the browser can capture the map.
	Mode                     string         `json:"mode"`
	Browser                  browser.Config `json:"browser"`
	NavigationTimeoutSeconds int            `json:"navigation_timeout_seconds"`
	LoadRetries              int            `json:"load_retries"`
}

type TwilioConfig struct {
	AccountSid string `json:"account_sid"`
	AuthToken  string `json:"auth_token"`
	From       string `json:"from"`
	BaseUrl    string `json:"base_url"`
}

func (c TwilioConfig) Configured() bool {
	return c.AccountSid != "" && c.AuthToken != "" && c.From != ""
}

type Config struct {
	Telegram  TelegramConfig       `json:"telegram"`
	Store     store.Config         `json:"store"`
	Radar     RadarConfig          `json:"radar"`
	Sync      interactions.Options `json:"sync"`
	Notify    notifier.Options     `json:"notify"`
	Twilio    TwilioConfig         `json:"twilio"`
	Smtp      mailer.SmtpConfig    `json:"smtp"`
	Telemetry telemetry.Config     `json:"telemetry"`
}

// loadConfig reads `path` (and its .local override), a missing file is not an
// error since every required setting can come from the environment.
func loadConfig(path string, recursive bool) (Config, error) {
	var cfg Config
	var err error
	if recursive {
		cfg, err = configutil.ReadRecursively[Config](path)
	} else {
		cfg, err = configutil.ReadConfig[Config](path)
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	err = applyEnv(&cfg)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv lets the environment variables used by the deployment override the file.
func applyEnv(cfg *Config) error {
	configutil.EnvString(&cfg.Telegram.Token, "TELEGRAM_TOKEN")

	configutil.EnvString(&cfg.Store.URI, "MONGO_URI")
	configutil.EnvString(&cfg.Store.Database, "MONGO_DB")
	configutil.EnvString(&cfg.Store.InteractionsCollection, "MONGO_COLLECTION_INTERACTIONS")
	configutil.EnvString(&cfg.Store.ReportsCollection, "MONGO_COLLECTION_REPORTS")

	configutil.EnvString(&cfg.Radar.Url, "DONOSTI_RADAR_WEB")

	configutil.EnvString(&cfg.Twilio.AccountSid, "TWILIO_ACCOUNT_SID")
	configutil.EnvString(&cfg.Twilio.AuthToken, "TWILIO_AUTH_TOKEN")
	configutil.EnvString(&cfg.Twilio.From, "TWILIO_WHATSAPP_NUMBER")
	configutil.EnvList(&cfg.Notify.WhatsAppTo, "TO_WHATSAPP_NUMBER")

	var recipients []string
	configutil.EnvList(&recipients, "TELEGRAM_RECIPIENTS")
	if len(recipients) > 0 {
		ids, err := parseChatIDs(recipients)
		if err != nil {
			return fmt.Errorf("TELEGRAM_RECIPIENTS: %w", err)
		}
		cfg.Notify.StaticRecipients = ids
		cfg.Notify.Recipients = notifier.RecipientsStatic
	}
	return nil
}

func parseChatIDs(values []string) ([]int64, error) {
	ids := make([]int64, 0, len(values))
	for _, v := range values {
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chat id %q: %w", v, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
