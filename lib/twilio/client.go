package twilio

import (
	"context"
	"encoding/json"
	"fmt"
	"radarbot-backend/internal/assert"
	"radarbot-backend/internal/telemetry"
	"radarbot-backend/lib/restyutil"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

const DefaultBaseUrl = "https://api.twilio.com"

const report_client_send_whatsapp = "client.send-whatsapp"

var tracer = otel.Tracer("radarbot.lib.twilio")

type ClientOptions struct {
	AccountSid string
	AuthToken  string
	// From is the WhatsApp enabled sender number, with or without the "whatsapp:" prefix.
	From             string
	BaseUrl          string
	Timeout          time.Duration
	InstrumentOutput restyutil.InstrumentOutput
}

// Client sends WhatsApp messages through the Twilio Messages API.
type Client struct {
	http *resty.Client
	from string
	tel  telemetry.API
}

// APIError is returned when Twilio rejects a request.
type APIError struct {
	StatusCode int
	Code       int    `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("twilio: %d (%d) %s", e.StatusCode, e.Code, e.Message)
}

func NewClient(opts ClientOptions, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel, "tel")
	if opts.AccountSid == "" || opts.AuthToken == "" {
		return nil, fmt.Errorf("twilio: account sid and auth token are required")
	}
	if opts.From == "" {
		return nil, fmt.Errorf("twilio: a sender number was not specified")
	}
	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.Timeout == 0 {
		opts.Timeout = time.Second * 30
	}

	tel = telemetry.NewScopedAPI("twilio", tel)

	httpClient := resty.New()
	httpClient.SetBaseURL(fmt.Sprintf("%s/2010-04-01/Accounts/%s", opts.BaseUrl, opts.AccountSid))
	httpClient.SetBasicAuth(opts.AccountSid, opts.AuthToken)
	httpClient.SetTimeout(opts.Timeout)

	telemetry.InstrumentResty(httpClient, tel)
	restyutil.InstrumentClient(httpClient, tracer, opts.InstrumentOutput)

	return &Client{
		http: httpClient,
		from: WhatsAppAddress(opts.From),
		tel:  tel,
	}, nil
}

// WhatsAppAddress prefixes a phone number with "whatsapp:" unless it already is.
func WhatsAppAddress(number string) string {
	number = strings.TrimSpace(number)
	if strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}

type messageResponse struct {
	Sid    string `json:"sid"`
	Status string `json:"status"`
}

// SendWhatsApp sends `body` to `to` and returns the sid of the created message.
func (c *Client) SendWhatsApp(ctx context.Context, to, body string) (string, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"From": c.from,
			"To":   WhatsAppAddress(to),
			"Body": body,
		}).
		Post("/Messages.json")
	if err != nil {
		c.tel.ReportBroken(report_client_send_whatsapp, err)
		return "", fmt.Errorf("twilio: send whatsapp: %w", err)
	}

	if res.IsError() {
		apiErr := &APIError{}
		if json.Unmarshal(res.Body(), apiErr) != nil {
			apiErr.Message = res.String()
		}
		apiErr.StatusCode = res.StatusCode()
		c.tel.ReportBroken(report_client_send_whatsapp, to, apiErr)
		return "", apiErr
	}

	var msg messageResponse
	err = json.Unmarshal(res.Body(), &msg)
	if err != nil {
		return "", fmt.Errorf("twilio: decode message: %w", err)
	}
	return msg.Sid, nil
}
