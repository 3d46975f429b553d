package interactions

import (
	"context"
	"errors"
	"radarbot-backend/internal/store"
	"radarbot-backend/internal/telemetry"
	"radarbot-backend/internal/testutil"
	"radarbot-backend/lib/telegram"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type fakeBot struct {
	updates    []telegram.Update
	updatesErr error
	members    map[int64]telegram.ChatMember
	memberErr  error

	memberCalls map[int64]int
	confirmed   []int64
}

func (b *fakeBot) GetUpdates(ctx context.Context, params telegram.GetUpdatesParams) ([]telegram.Update, error) {
	return b.updates, b.updatesErr
}

func (b *fakeBot) ConfirmUpdates(ctx context.Context, lastUpdateID int64) error {
	b.confirmed = append(b.confirmed, lastUpdateID)
	return nil
}

func (b *fakeBot) GetChatMember(ctx context.Context, chatID, userID int64) (telegram.ChatMember, error) {
	if b.memberCalls == nil {
		b.memberCalls = map[int64]int{}
	}
	b.memberCalls[chatID]++
	if b.memberErr != nil {
		return telegram.ChatMember{}, b.memberErr
	}
	member, ok := b.members[chatID]
	if !ok {
		return telegram.ChatMember{Status: "member"}, nil
	}
	return member, nil
}

func message(updateID, chatID, messageID int64, text string, entities ...telegram.MessageEntity) telegram.Update {
	return telegram.Update{
		UpdateID: updateID,
		Message: &telegram.Message{
			MessageID: messageID,
			From:      &telegram.User{ID: chatID, FirstName: "Ane"},
			Chat:      telegram.Chat{ID: chatID, Type: "private", FirstName: "Ane", Username: "ane"},
			Date:      1728887400 + messageID,
			Text:      text,
			Entities:  entities,
		},
	}
}

var startCommand = telegram.MessageEntity{Type: telegram.EntityBotCommand, Offset: 0, Length: 6}

func setup(t *testing.T, bot *fakeBot, opts Options) (*Updater, store.Store, *telemetry.Recorder) {
	s := testutil.SetupStore(t, testutil.StoreParams{Name: "interactions"})
	tel := &telemetry.Recorder{}
	return NewUpdater(bot, s, tel, opts), s, tel
}

func TestTransform(t *testing.T) {
	updates := []telegram.Update{
		message(1, 20, 1, "/start", startCommand),
		{UpdateID: 2},
		message(3, 10, 5, "hola @radarbot", telegram.MessageEntity{Type: "mention", Offset: 5, Length: 9}),
		message(4, 20, 2, "/radar hoy", telegram.MessageEntity{Type: "mention", Offset: 0, Length: 1}, telegram.MessageEntity{Type: telegram.EntityBotCommand, Offset: 0, Length: 6}),
	}

	expected := []store.Chat{
		{
			ChatID:    20,
			FirstName: "Ane",
			Username:  "ane",
			ChatType:  "private",
			Active:    true,
			Messages: []store.Message{
				{
					MessageID: 1,
					Date:      time.Unix(1728887401, 0).UTC(),
					Text:      "/start",
					Command:   "bot_command",
					Entities:  []store.Entity{{Offset: 0, Length: 6, Type: "bot_command"}},
				},
				{
					MessageID: 2,
					Date:      time.Unix(1728887402, 0).UTC(),
					Text:      "/radar hoy",
					Command:   "bot_command",
					Entities:  []store.Entity{{Offset: 0, Length: 6, Type: "bot_command"}},
				},
			},
		},
		{
			ChatID:    10,
			FirstName: "Ane",
			Username:  "ane",
			ChatType:  "private",
			Active:    true,
			Messages: []store.Message{
				{
					MessageID: 5,
					Date:      time.Unix(1728887405, 0).UTC(),
					Text:      "hola @radarbot",
					Entities:  []store.Entity{},
				},
			},
		},
	}

	if diff := cmp.Diff(expected, Transform(updates)); diff != "" {
		t.Fatal(diff)
	}
}

func TestRunStoresNewChats(t *testing.T) {
	bot := &fakeBot{updates: []telegram.Update{
		message(1, 20, 1, "/start", startCommand),
		message(2, 20, 2, "hola"),
		message(3, 30, 1, "/start", startCommand),
	}}
	u, s, _ := setup(t, bot, Options{})

	result, err := u.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, SyncResult{Updates: 3, Chats: 2, NewChats: 2, NewMessages: 3}, result)

	chat, err := s.FindChat(context.Background(), 20)
	require.NoError(t, err)
	require.True(t, chat.Active)
	require.Len(t, chat.Messages, 2)
	require.Empty(t, bot.confirmed)
}

func TestRunIsIdempotent(t *testing.T) {
	bot := &fakeBot{updates: []telegram.Update{
		message(1, 20, 1, "/start", startCommand),
		message(2, 20, 2, "hola"),
	}}
	u, s, _ := setup(t, bot, Options{})

	_, err := u.Run(context.Background())
	require.NoError(t, err)
	result, err := u.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, SyncResult{Updates: 2, Chats: 1, Duplicates: 2}, result)

	// membership is looked up once per chat per run
	require.Equal(t, 2, bot.memberCalls[20])

	chat, err := s.FindChat(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, chat.Messages, 2)
}

func TestRunMarksLeftChatsInactive(t *testing.T) {
	ctx := context.Background()
	bot := &fakeBot{
		updates: []telegram.Update{message(7, 20, 3, "adiós")},
		members: map[int64]telegram.ChatMember{20: {Status: telegram.MemberLeft}},
	}
	u, s, _ := setup(t, bot, Options{})
	require.NoError(t, s.InsertChat(ctx, store.Chat{ChatID: 20, ChatType: "private", Active: true}))

	result, err := u.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, result.NewMessages)

	ids, err := s.ListChatIDs(ctx, true)
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestMembershipFailureKeepsChatActive(t *testing.T) {
	ctx := context.Background()
	bot := &fakeBot{
		updates:   []telegram.Update{message(7, 20, 3, "hola")},
		memberErr: &telegram.APIError{StatusCode: 400, ErrorCode: 400, Description: "Bad Request: chat not found"},
	}
	u, s, tel := setup(t, bot, Options{})
	require.NoError(t, s.InsertChat(ctx, store.Chat{ChatID: 20, ChatType: "private", Active: false}))

	_, err := u.Run(ctx)
	require.NoError(t, err)

	chat, err := s.FindChat(ctx, 20)
	require.NoError(t, err)
	require.True(t, chat.Active)
	require.Len(t, tel.Reports("warning", report_membership), 1)
}

func TestRunConfirmsUpdates(t *testing.T) {
	bot := &fakeBot{updates: []telegram.Update{
		message(41, 20, 1, "/start", startCommand),
		message(40, 30, 1, "/start", startCommand),
	}}
	u, _, _ := setup(t, bot, Options{ConfirmUpdates: true})

	_, err := u.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int64{41}, bot.confirmed)
}

func TestRunWithoutUpdates(t *testing.T) {
	bot := &fakeBot{}
	u, _, tel := setup(t, bot, Options{ConfirmUpdates: true})

	result, err := u.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, SyncResult{}, result)
	require.Empty(t, bot.confirmed)
	require.Len(t, tel.Reports("warning", report_fetch), 1)
}

func TestRunFetchError(t *testing.T) {
	bot := &fakeBot{updatesErr: errors.New("connection reset")}
	u, _, _ := setup(t, bot, Options{})

	_, err := u.Run(context.Background())
	require.ErrorContains(t, err, "connection reset")
}

func TestSaveSkipsInvalid(t *testing.T) {
	u, s, tel := setup(t, &fakeBot{}, Options{})

	result, err := u.Save(context.Background(), []store.Chat{
		{ChatID: 1, ChatType: "private"},
		{ChatID: 2, ChatType: "private", Messages: []store.Message{{MessageID: 0, Text: "?"}}},
	})
	require.NoError(t, err)
	require.Equal(t, SyncResult{Chats: 2}, result)
	require.Len(t, tel.Reports("warning", report_save_chat), 1)
	require.Len(t, tel.Reports("warning", report_save_message), 1)

	ids, err := s.ListChatIDs(context.Background(), false)
	require.NoError(t, err)
	require.Empty(t, ids)
}
