package restyutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRedactURL(t *testing.T) {
	table := []struct {
		input    string
		expected string
	}{
		{
			input:    "https://api.telegram.org/bot123456:ABC-def_ghi/getUpdates",
			expected: "https://api.telegram.org/bot<redacted>/getUpdates",
		},
		{
			input:    "https://api.twilio.com/2010-04-01/Accounts/AC1/Messages.json",
			expected: "https://api.twilio.com/2010-04-01/Accounts/AC1/Messages.json",
		},
	}

	for _, row := range table {
		require.Equal(t, row.expected, RedactURL(row.input))
	}
}

func TestRedactError(t *testing.T) {
	cause := errors.New(`Get "https://api.telegram.org/bot123456:ABC-def/getUpdates": dial tcp: connection refused`)
	err := fmt.Errorf("telegram: get updates: %w", RedactError(cause))

	require.Equal(
		t,
		`telegram: get updates: Get "https://api.telegram.org/bot<redacted>/getUpdates": dial tcp: connection refused`,
		err.Error(),
	)
	require.ErrorIs(t, err, cause)
	require.NoError(t, RedactError(nil))
}

func TestFormatHeadersRedactsAuthorization(t *testing.T) {
	headers := http.Header{}
	headers.Set("Authorization", "Basic c2VjcmV0")

	require.Equal(t, "Authorization: <redacted>", formatHeaders(headers))
	require.Equal(t, "", formatHeaders(http.Header{}))
}
