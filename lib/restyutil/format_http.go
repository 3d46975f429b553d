package restyutil

import (
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
)

var botTokenPath = regexp.MustCompile(`/bot[0-9]+:[A-Za-z0-9_-]+`)

// RedactURL hides the bot token that the Telegram Bot API embeds in every request path.
func RedactURL(s string) string {
	return botTokenPath.ReplaceAllString(s, "/bot<redacted>")
}

type redactedError struct {
	err error
}

func (e redactedError) Error() string {
	return RedactURL(e.err.Error())
}

func (e redactedError) Unwrap() error {
	return e.err
}

// RedactError wraps `err` so that its message goes through RedactURL, transport
// errors from net/http quote the full request url.
func RedactError(err error) error {
	if err == nil {
		return nil
	}
	return redactedError{err: err}
}

func formatHeaders(headers http.Header) string {
	var out strings.Builder
	for k, vals := range headers {
		for _, v := range vals {
			if strings.EqualFold(k, "Authorization") {
				v = "<redacted>"
			}
			out.WriteString(fmt.Sprintf("%s: %s\n", k, v))
		}
	}
	return strings.TrimSuffix(out.String(), "\n")
}

func formatRequestBody(req *http.Request) string {
	if req == nil || req.GetBody == nil {
		return "<NO BODY AVAILABLE>"
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Sprintf("failed to get request body: %s", err.Error())
	}
	readBody, err := io.ReadAll(body)
	if err != nil {
		return fmt.Sprintf("failed to read request body: %s", err.Error())
	}
	return string(readBody)
}

// 1: request method
// 2: request url
// 3: request headers in ("Key: Value" format)
// 4: request body
// 5: response status
// 6: response headers in ("Key: Value" format)
// 7: response body
const messageInfoTemplate = `---- REQUEST ----

%s %s

%s

%s

---- RESPONSE ----

%s

%s

%s`

func formatHttpMessage(res *resty.Response) string {
	var requestHeaders http.Header
	if res.Request.RawRequest != nil {
		requestHeaders = res.Request.RawRequest.Header
	}

	return fmt.Sprintf(
		messageInfoTemplate,

		res.Request.Method, RedactURL(res.Request.URL),
		formatHeaders(requestHeaders),
		formatRequestBody(res.Request.RawRequest),

		strconv.Itoa(res.StatusCode()),
		formatHeaders(res.Header()),
		res.String(),
	)
}
