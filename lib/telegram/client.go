package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"radarbot-backend/internal/assert"
	"radarbot-backend/internal/telemetry"
	"radarbot-backend/lib/restyutil"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"
)

const DefaultBaseUrl = "https://api.telegram.org"

const (
	report_client_get_updates     = "client.get-updates"
	report_client_get_chat_member = "client.get-chat-member"
	report_client_send_message    = "client.send-message"
	report_client_send_photo      = "client.send-photo"
)

var tracer = otel.Tracer("radarbot.lib.telegram")

type ClientOptions struct {
	Token   string
	BaseUrl string
	Timeout time.Duration
	// RequestsPerSecond caps outgoing requests, the Bot API allows about 30 messages per second.
	RequestsPerSecond float64
	// InstrumentOutput receives raw HTTP dumps when debug logging is enabled, it can be nil.
	InstrumentOutput restyutil.InstrumentOutput
}

// Client is a minimal Telegram Bot API client.
type Client struct {
	http *resty.Client
	tel  telemetry.API
}

func NewClient(opts ClientOptions, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel, "tel")
	if opts.Token == "" {
		return nil, fmt.Errorf("telegram: a bot token was not specified")
	}
	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.Timeout == 0 {
		opts.Timeout = time.Second * 30
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 25
	}

	tel = telemetry.NewScopedAPI("telegram", tel)

	httpClient := resty.New()
	httpClient.SetBaseURL(fmt.Sprintf("%s/bot%s", opts.BaseUrl, opts.Token))
	httpClient.SetTimeout(opts.Timeout)

	rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(httpClient, tel)
	restyutil.InstrumentClient(httpClient, tracer, opts.InstrumentOutput)

	return &Client{http: httpClient, tel: tel}, nil
}

type envelope struct {
	Ok          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
}

func decode(res *resty.Response, out any) error {
	var env envelope
	err := json.Unmarshal(res.Body(), &env)
	if err != nil || !env.Ok || res.IsError() {
		apiErr := &APIError{
			StatusCode:  res.StatusCode(),
			ErrorCode:   env.ErrorCode,
			Description: env.Description,
		}
		if err != nil && apiErr.Description == "" {
			apiErr.Description = fmt.Sprintf("invalid response body: %s", err.Error())
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	err = json.Unmarshal(env.Result, out)
	if err != nil {
		return fmt.Errorf("telegram: decode result: %w", err)
	}
	return nil
}

func (c *Client) GetUpdates(ctx context.Context, params GetUpdatesParams) ([]Update, error) {
	req := c.http.R().SetContext(ctx)
	if params.Offset != 0 {
		req.SetQueryParam("offset", strconv.FormatInt(params.Offset, 10))
	}
	if params.Limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(params.Limit))
	}

	res, err := req.Get("/getUpdates")
	if err != nil {
		err = restyutil.RedactError(err)
		c.tel.ReportBroken(report_client_get_updates, err)
		return nil, fmt.Errorf("telegram: get updates: %w", err)
	}

	var updates []Update
	err = decode(res, &updates)
	if err != nil {
		c.tel.ReportBroken(report_client_get_updates, err)
		return nil, err
	}
	c.tel.ReportCount(report_client_get_updates, int64(len(updates)))
	return updates, nil
}

// ConfirmUpdates marks every update up to and including `lastUpdateID` as
// handled so that getUpdates stops returning them.
func (c *Client) ConfirmUpdates(ctx context.Context, lastUpdateID int64) error {
	_, err := c.GetUpdates(ctx, GetUpdatesParams{
		Offset: lastUpdateID + 1,
		Limit:  1,
	})
	return err
}

func (c *Client) GetChatMember(ctx context.Context, chatID, userID int64) (ChatMember, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"chat_id": strconv.FormatInt(chatID, 10),
			"user_id": strconv.FormatInt(userID, 10),
		}).
		Get("/getChatMember")
	if err != nil {
		err = restyutil.RedactError(err)
		return ChatMember{}, fmt.Errorf("telegram: get chat member: %w", err)
	}

	var member ChatMember
	err = decode(res, &member)
	if err != nil {
		c.tel.ReportWarning(report_client_get_chat_member, chatID, err)
		return ChatMember{}, err
	}
	return member, nil
}

func (c *Client) SendMessage(ctx context.Context, params SendMessageParams) error {
	form := map[string]string{
		"chat_id": strconv.FormatInt(params.ChatID, 10),
		"text":    params.Text,
	}
	if params.ParseMode != "" {
		form["parse_mode"] = params.ParseMode
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetFormData(form).
		Post("/sendMessage")
	if err != nil {
		err = restyutil.RedactError(err)
		c.tel.ReportBroken(report_client_send_message, params.ChatID, err)
		return fmt.Errorf("telegram: send message: %w", err)
	}
	err = decode(res, nil)
	if err != nil {
		c.tel.ReportBroken(report_client_send_message, params.ChatID, err)
		return err
	}
	return nil
}

func (c *Client) SendPhoto(ctx context.Context, params SendPhotoParams) error {
	if params.FileName == "" {
		params.FileName = "photo.png"
	}
	form := map[string]string{
		"chat_id": strconv.FormatInt(params.ChatID, 10),
	}
	if params.Caption != "" {
		form["caption"] = params.Caption
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetFormData(form).
		SetMultipartField("photo", params.FileName, "image/png", bytes.NewReader(params.Photo)).
		Post("/sendPhoto")
	if err != nil {
		err = restyutil.RedactError(err)
		c.tel.ReportBroken(report_client_send_photo, params.ChatID, err)
		return fmt.Errorf("telegram: send photo: %w", err)
	}
	err = decode(res, nil)
	if err != nil {
		c.tel.ReportBroken(report_client_send_photo, params.ChatID, err)
		return err
	}
	return nil
}
