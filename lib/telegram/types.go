package telegram

import "fmt"

// Update is an incoming update from getUpdates, only message updates are modeled.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

type Message struct {
	MessageID int64           `json:"message_id"`
	From      *User           `json:"from,omitempty"`
	Chat      Chat            `json:"chat"`
	Date      int64           `json:"date"`
	Text      string          `json:"text"`
	Entities  []MessageEntity `json:"entities,omitempty"`
}

type Chat struct {
	ID        int64  `json:"id"`
	Type      string `json:"type"`
	FirstName string `json:"first_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

const EntityBotCommand = "bot_command"

type MessageEntity struct {
	Type   string `json:"type"`
	Offset int    `json:"offset"`
	Length int    `json:"length"`
}

const (
	MemberLeft   = "left"
	MemberKicked = "kicked"
)

type ChatMember struct {
	Status string `json:"status"`
	User   User   `json:"user"`
}

// Active reports whether the member still receives messages from the bot.
func (m ChatMember) Active() bool {
	return m.Status != MemberLeft && m.Status != MemberKicked
}

const (
	ParseModeMarkdown = "Markdown"
	ParseModeHTML     = "HTML"
)

type GetUpdatesParams struct {
	// Offset is the first update id to return, 0 means every unconfirmed update.
	Offset int64
	// Limit is the maximum number of updates returned, 0 means the API default (100).
	Limit int
}

type SendMessageParams struct {
	ChatID    int64
	Text      string
	ParseMode string
}

type SendPhotoParams struct {
	ChatID   int64
	FileName string
	Photo    []byte
	Caption  string
}

// APIError is returned whenever the Bot API answers with ok=false or a non-2xx status.
type APIError struct {
	StatusCode  int
	ErrorCode   int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram: %d (%d) %s", e.StatusCode, e.ErrorCode, e.Description)
}
