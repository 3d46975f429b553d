package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"radarbot-backend/internal/telemetry"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testToken = "123456:TEST-token"

func setup(t testing.TB, handler http.HandlerFunc) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientOptions{
		Token:   testToken,
		BaseUrl: server.URL,
		Timeout: time.Second * 5,
	}, telemetry.SlogAPI{})
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresToken(t *testing.T) {
	_, err := NewClient(ClientOptions{}, telemetry.SlogAPI{})
	require.Error(t, err)
}

func TestGetUpdates(t *testing.T) {
	client := setup(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/bot"+testToken+"/getUpdates", r.URL.Path)
		require.Equal(t, "", r.URL.Query().Get("offset"))

		fmt.Fprint(w, `{
			"ok": true,
			"result": [
				{
					"update_id": 10,
					"message": {
						"message_id": 1,
						"from": {"id": 42, "is_bot": false, "first_name": "Ane"},
						"chat": {"id": 42, "type": "private", "first_name": "Ane", "username": "ane"},
						"date": 1727942400,
						"text": "/start",
						"entities": [{"type": "bot_command", "offset": 0, "length": 6}]
					}
				},
				{"update_id": 11}
			]
		}`)
	})

	updates, err := client.GetUpdates(context.Background(), GetUpdatesParams{})
	require.NoError(t, err)
	require.Len(t, updates, 2)

	msg := updates[0].Message
	require.NotNil(t, msg)
	require.EqualValues(t, 1, msg.MessageID)
	require.EqualValues(t, 42, msg.From.ID)
	require.Equal(t, "ane", msg.Chat.Username)
	require.Equal(t, []MessageEntity{{Type: EntityBotCommand, Offset: 0, Length: 6}}, msg.Entities)

	require.Nil(t, updates[1].Message)
}

func TestGetUpdatesNotOk(t *testing.T) {
	client := setup(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"ok": false, "error_code": 401, "description": "Unauthorized"}`)
	})

	_, err := client.GetUpdates(context.Background(), GetUpdatesParams{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	require.Equal(t, 401, apiErr.ErrorCode)
	require.Equal(t, "Unauthorized", apiErr.Description)
}

func TestConfirmUpdates(t *testing.T) {
	client := setup(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "11", r.URL.Query().Get("offset"))
		require.Equal(t, "1", r.URL.Query().Get("limit"))
		fmt.Fprint(w, `{"ok": true, "result": []}`)
	})

	err := client.ConfirmUpdates(context.Background(), 10)
	require.NoError(t, err)
}

func TestGetChatMember(t *testing.T) {
	client := setup(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/bot"+testToken+"/getChatMember", r.URL.Path)
		require.Equal(t, "42", r.URL.Query().Get("chat_id"))
		require.Equal(t, "42", r.URL.Query().Get("user_id"))
		fmt.Fprint(w, `{"ok": true, "result": {"status": "left", "user": {"id": 42, "is_bot": false}}}`)
	})

	member, err := client.GetChatMember(context.Background(), 42, 42)
	require.NoError(t, err)
	require.Equal(t, MemberLeft, member.Status)
	require.False(t, member.Active())
}

func TestChatMemberActive(t *testing.T) {
	table := []struct {
		status string
		active bool
	}{
		{status: "member", active: true},
		{status: "creator", active: true},
		{status: MemberLeft, active: false},
		{status: MemberKicked, active: false},
	}
	for _, row := range table {
		require.Equal(t, row.active, ChatMember{Status: row.status}.Active(), row.status)
	}
}

func TestSendMessage(t *testing.T) {
	client := setup(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/bot"+testToken+"/sendMessage", r.URL.Path)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "42", r.PostForm.Get("chat_id"))
		require.Equal(t, "*hola*", r.PostForm.Get("text"))
		require.Equal(t, ParseModeMarkdown, r.PostForm.Get("parse_mode"))
		fmt.Fprint(w, `{"ok": true, "result": {"message_id": 7}}`)
	})

	err := client.SendMessage(context.Background(), SendMessageParams{
		ChatID:    42,
		Text:      "*hola*",
		ParseMode: ParseModeMarkdown,
	})
	require.NoError(t, err)
}

func TestSendMessageBlocked(t *testing.T) {
	client := setup(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"ok": false, "error_code": 403, "description": "Forbidden: bot was blocked by the user"}`)
	})

	err := client.SendMessage(context.Background(), SendMessageParams{ChatID: 42, Text: "hola"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, 403, apiErr.ErrorCode)
}

func TestSendPhoto(t *testing.T) {
	photo := []byte("\x89PNG fake image")

	client := setup(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/bot"+testToken+"/sendPhoto", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "42", r.FormValue("chat_id"))

		file, header, err := r.FormFile("photo")
		require.NoError(t, err)
		defer file.Close()
		require.Equal(t, "mapa_recortado.png", header.Filename)
		require.Equal(t, "image/png", header.Header.Get("Content-Type"))

		body, err := io.ReadAll(file)
		require.NoError(t, err)
		require.Equal(t, photo, body)

		fmt.Fprint(w, `{"ok": true, "result": {"message_id": 8}}`)
	})

	err := client.SendPhoto(context.Background(), SendPhotoParams{
		ChatID:   42,
		FileName: "mapa_recortado.png",
		Photo:    photo,
	})
	require.NoError(t, err)
}

func TestTransportErrorsHideToken(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	tel := &telemetry.Recorder{}
	client, err := NewClient(ClientOptions{
		Token:   testToken,
		BaseUrl: server.URL,
		Timeout: time.Second * 5,
	}, tel)
	require.NoError(t, err)

	_, err = client.GetUpdates(context.Background(), GetUpdatesParams{})
	require.Error(t, err)
	require.NotContains(t, err.Error(), testToken)
	require.Contains(t, err.Error(), "/bot<redacted>/getUpdates")

	err = client.SendMessage(context.Background(), SendMessageParams{ChatID: 42, Text: "hola"})
	require.Error(t, err)
	require.NotContains(t, err.Error(), testToken)

	broken := tel.Reports("broken", "")
	require.NotEmpty(t, broken)
	for _, report := range broken {
		require.NotContains(t, fmt.Sprint(report.Params...), testToken)
	}
}
