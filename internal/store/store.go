// Package store persists bot interactions and radar monitoring reports.
//
// The document shape mirrors the collections the bot has always written to:
// one document per chat with its messages embedded, and one document per
// notifier run.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrNotFound = errors.New("store: not found")

type Entity struct {
	Offset int    `bson:"offset" json:"offset"`
	Length int    `bson:"length" json:"length"`
	Type   string `bson:"type" json:"type"`
}

type Message struct {
	MessageID int64     `bson:"message_id" json:"message_id"`
	Date      time.Time `bson:"date" json:"date"`
	Text      string    `bson:"text" json:"text"`
	Command   string    `bson:"command" json:"command"`
	Entities  []Entity  `bson:"entities" json:"entities"`
}

type Chat struct {
	ChatID    int64     `bson:"chat_id" json:"chat_id"`
	FirstName string    `bson:"first_name" json:"first_name"`
	Username  string    `bson:"username" json:"username"`
	ChatType  string    `bson:"chat_type" json:"chat_type"`
	Active    bool      `bson:"active" json:"active"`
	Messages  []Message `bson:"messages" json:"messages"`
}

type Report struct {
	ID            string    `bson:"_id,omitempty" json:"id"`
	ScrappingTime time.Time `bson:"scrapping_time" json:"scrapping_time"`
	Status        string    `bson:"status" json:"status"`
	HasRadar      bool      `bson:"has_radar" json:"has_radar"`
	// Locations is nil unless radars were found.
	Locations   []string `bson:"locations" json:"locations"`
	MessageSent string   `bson:"message_sent" json:"message_sent"`
	IDsSent     []int64  `bson:"ids_sent" json:"ids_sent"`
	IDsError    []int64  `bson:"ids_error" json:"ids_error"`
}

type Store interface {
	// FindChat returns ErrNotFound when the chat has never been saved.
	FindChat(ctx context.Context, chatID int64) (Chat, error)
	// InsertChat saves a new chat together with its messages.
	InsertChat(ctx context.Context, chat Chat) error
	SetChatActive(ctx context.Context, chatID int64, active bool) error
	HasMessage(ctx context.Context, chatID, messageID int64) (bool, error)
	// PushMessage appends msg to an existing chat, it returns false when a
	// message with the same id was already stored.
	PushMessage(ctx context.Context, chatID int64, msg Message) (bool, error)
	ListChatIDs(ctx context.Context, activeOnly bool) ([]int64, error)
	// InsertReport assigns an id when the report has none and returns it.
	InsertReport(ctx context.Context, report Report) (string, error)
	// ListReports returns the most recent reports first.
	ListReports(ctx context.Context, limit int) ([]Report, error)
	Close(ctx context.Context) error
}

type Config struct {
	// URI selects the backend: mongodb:// and mongodb+srv:// use MongoDB,
	// libsql://, http:// and https:// use a libSQL server, anything else is
	// a local SQLite file (or :memory:).
	URI string `json:"uri"`
	// AuthToken is sent to libSQL servers.
	AuthToken              string `json:"auth_token"`
	Database               string `json:"database"`
	InteractionsCollection string `json:"interactions_collection"`
	ReportsCollection      string `json:"reports_collection"`
}

const (
	DefaultInteractionsCollection = "bot_interactions"
	DefaultReportsCollection      = "radar_reports"
)

func (c Config) withDefaults() Config {
	if c.InteractionsCollection == "" {
		c.InteractionsCollection = DefaultInteractionsCollection
	}
	if c.ReportsCollection == "" {
		c.ReportsCollection = DefaultReportsCollection
	}
	return c
}

type backend int

const (
	backendSqlite backend = iota
	backendLibsql
	backendMongo
)

func (c Config) backend() backend {
	uri := strings.ToLower(c.URI)
	switch {
	case strings.HasPrefix(uri, "mongodb://"), strings.HasPrefix(uri, "mongodb+srv://"):
		return backendMongo
	case strings.HasPrefix(uri, "libsql://"),
		strings.HasPrefix(uri, "http://"),
		strings.HasPrefix(uri, "https://"):
		return backendLibsql
	default:
		return backendSqlite
	}
}

func Open(ctx context.Context, config Config) (Store, error) {
	if config.URI == "" {
		return nil, fmt.Errorf("store: a uri was not specified")
	}
	config = config.withDefaults()

	switch config.backend() {
	case backendMongo:
		return OpenMongo(ctx, config)
	case backendLibsql:
		return OpenLibsql(ctx, config.URI, config.AuthToken)
	default:
		return OpenSqlite(ctx, config.URI)
	}
}
