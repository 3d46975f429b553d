// Package interactions copies the messages users send to the bot into the store.
package interactions

import (
	"context"
	"errors"
	"fmt"
	"radarbot-backend/internal/assert"
	"radarbot-backend/internal/store"
	"radarbot-backend/internal/telemetry"
	"radarbot-backend/lib/telegram"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	report_fetch          = "fetch"
	report_save_chat      = "save.chat"
	report_save_message   = "save.message"
	report_membership     = "save.membership"
	report_confirm        = "confirm"
	report_count_updates  = "sync.updates"
	report_count_messages = "sync.new-messages"
)

var tracer = otel.Tracer("radarbot.internal.interactions")

// Bot is the subset of the Bot API the updater needs.
type Bot interface {
	GetUpdates(ctx context.Context, params telegram.GetUpdatesParams) ([]telegram.Update, error)
	ConfirmUpdates(ctx context.Context, lastUpdateID int64) error
	GetChatMember(ctx context.Context, chatID, userID int64) (telegram.ChatMember, error)
}

type Options struct {
	// ConfirmUpdates acknowledges the fetched updates once they are saved,
	// so the next run only sees newer ones.
	ConfirmUpdates bool `json:"confirm_updates"`
	// Limit caps how many updates are fetched per run, 0 uses the API default.
	Limit int `json:"limit"`
}

type SyncResult struct {
	Updates     int
	Chats       int
	NewChats    int
	NewMessages int
	Duplicates  int
}

type Updater struct {
	bot   Bot
	store store.Store
	tel   telemetry.API
	opts  Options
}

func NewUpdater(bot Bot, s store.Store, tel telemetry.API, opts Options) *Updater {
	assert.NotNil(bot, "bot")
	assert.NotNil(s, "store")
	assert.NotNil(tel, "tel")

	return &Updater{
		bot:   bot,
		store: s,
		tel:   telemetry.NewScopedAPI("interactions", tel),
		opts:  opts,
	}
}

func (u *Updater) Fetch(ctx context.Context) ([]telegram.Update, error) {
	updates, err := u.bot.GetUpdates(ctx, telegram.GetUpdatesParams{Limit: u.opts.Limit})
	if err != nil {
		u.tel.ReportBroken(report_fetch, err)
		return nil, fmt.Errorf("fetch updates: %w", err)
	}
	u.tel.ReportCount(report_count_updates, int64(len(updates)))
	return updates, nil
}

// Transform groups message updates by chat, keeping the order in which chats
// first appear. Updates that carry no message are dropped.
func Transform(updates []telegram.Update) []store.Chat {
	var chats []store.Chat
	index := map[int64]int{}

	for _, update := range updates {
		msg := update.Message
		if msg == nil {
			continue
		}

		i, ok := index[msg.Chat.ID]
		if !ok {
			chats = append(chats, store.Chat{
				ChatID:    msg.Chat.ID,
				FirstName: msg.Chat.FirstName,
				Username:  msg.Chat.Username,
				ChatType:  msg.Chat.Type,
				Active:    true,
			})
			i = len(chats) - 1
			index[msg.Chat.ID] = i
		}

		chats[i].Messages = append(chats[i].Messages, transformMessage(*msg))
	}

	return chats
}

func transformMessage(msg telegram.Message) store.Message {
	out := store.Message{
		MessageID: msg.MessageID,
		Date:      time.Unix(msg.Date, 0).UTC(),
		Text:      msg.Text,
		Entities:  []store.Entity{},
	}
	for _, entity := range msg.Entities {
		if entity.Type != telegram.EntityBotCommand {
			continue
		}
		out.Command = telegram.EntityBotCommand
		out.Entities = append(out.Entities, store.Entity{
			Offset: entity.Offset,
			Length: entity.Length,
			Type:   entity.Type,
		})
	}
	return out
}

// Save writes chats and their messages, skipping messages that are already stored.
func (u *Updater) Save(ctx context.Context, chats []store.Chat) (SyncResult, error) {
	ctx, span := tracer.Start(ctx, "Save")
	defer span.End()

	result := SyncResult{Chats: len(chats)}
	refreshed := map[int64]bool{}

	for _, chat := range chats {
		if len(chat.Messages) == 0 {
			u.tel.ReportWarning(report_save_chat, "chat without messages, skipping", chat.ChatID)
			continue
		}

		for _, msg := range chat.Messages {
			if msg.MessageID == 0 {
				u.tel.ReportWarning(report_save_message, "message without id, skipping", chat.ChatID)
				continue
			}

			_, err := u.store.FindChat(ctx, chat.ChatID)
			if errors.Is(err, store.ErrNotFound) {
				doc := chat
				doc.Active = true
				doc.Messages = []store.Message{msg}
				err = u.store.InsertChat(ctx, doc)
				if err != nil {
					u.tel.ReportBroken(report_save_chat, err)
					return result, err
				}
				u.tel.ReportDebug("new chat", "chat_id", chat.ChatID)
				result.NewChats++
				result.NewMessages++
				continue
			}
			if err != nil {
				u.tel.ReportBroken(report_save_chat, err)
				return result, err
			}

			if !refreshed[chat.ChatID] {
				err = u.refreshMembership(ctx, chat.ChatID)
				if err != nil {
					return result, err
				}
				refreshed[chat.ChatID] = true
			}

			pushed, err := u.store.PushMessage(ctx, chat.ChatID, msg)
			if err != nil {
				u.tel.ReportBroken(report_save_message, err)
				return result, err
			}
			if !pushed {
				u.tel.ReportDebug("message already stored", "chat_id", chat.ChatID, "message_id", msg.MessageID)
				result.Duplicates++
				continue
			}
			result.NewMessages++
		}
	}

	span.SetAttributes(
		attribute.Int("new_chats", result.NewChats),
		attribute.Int("new_messages", result.NewMessages),
		attribute.Int("duplicates", result.Duplicates),
	)
	u.tel.ReportCount(report_count_messages, int64(result.NewMessages))
	return result, nil
}

// refreshMembership marks the chat inactive once the user has left the bot,
// a failed lookup keeps the chat active.
func (u *Updater) refreshMembership(ctx context.Context, chatID int64) error {
	active := true
	member, err := u.bot.GetChatMember(ctx, chatID, chatID)
	if err != nil {
		u.tel.ReportWarning(report_membership, "assuming the chat is still active", chatID, err)
	} else {
		active = member.Active()
	}
	if !active {
		u.tel.ReportDebug("user left the bot", "chat_id", chatID)
	}

	err = u.store.SetChatActive(ctx, chatID, active)
	if err != nil {
		u.tel.ReportBroken(report_membership, err)
		return err
	}
	return nil
}

func (u *Updater) Run(ctx context.Context) (SyncResult, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	updates, err := u.Fetch(ctx)
	if err != nil {
		return SyncResult{}, err
	}
	if len(updates) == 0 {
		u.tel.ReportWarning(report_fetch, "no new interactions")
		return SyncResult{}, nil
	}

	result, err := u.Save(ctx, Transform(updates))
	result.Updates = len(updates)
	if err != nil {
		return result, err
	}

	if u.opts.ConfirmUpdates {
		var last int64
		for _, update := range updates {
			last = max(last, update.UpdateID)
		}
		err = u.bot.ConfirmUpdates(ctx, last)
		if err != nil {
			u.tel.ReportBroken(report_confirm, err)
			return result, fmt.Errorf("confirm updates: %w", err)
		}
	}

	return result, nil
}
