package store

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore keeps one document per chat in the interactions collection,
// messages are embedded in the "messages" array.
type MongoStore struct {
	client  *mongo.Client
	chats   *mongo.Collection
	reports *mongo.Collection
}

func OpenMongo(ctx context.Context, config Config) (*MongoStore, error) {
	if config.Database == "" {
		return nil, fmt.Errorf("store: a mongodb database was not specified")
	}
	config = config.withDefaults()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(config.URI))
	if err != nil {
		return nil, fmt.Errorf("store: connect to mongodb: %w", err)
	}
	err = client.Ping(ctx, nil)
	if err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("store: ping mongodb: %w", err)
	}

	database := client.Database(config.Database)
	s := &MongoStore{
		client:  client,
		chats:   database.Collection(config.InteractionsCollection),
		reports: database.Collection(config.ReportsCollection),
	}

	_, err = s.chats.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "chat_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("store: create chat_id index: %w", err)
	}
	return s, nil
}

func (s *MongoStore) FindChat(ctx context.Context, chatID int64) (Chat, error) {
	var chat Chat
	err := s.chats.FindOne(ctx, bson.M{"chat_id": chatID}).Decode(&chat)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Chat{}, ErrNotFound
	}
	if err != nil {
		return Chat{}, fmt.Errorf("store: find chat %d: %w", chatID, err)
	}
	return chat, nil
}

func (s *MongoStore) InsertChat(ctx context.Context, chat Chat) error {
	if chat.Messages == nil {
		chat.Messages = []Message{}
	}
	for i, msg := range chat.Messages {
		chat.Messages[i] = normalizeMessage(msg)
	}
	_, err := s.chats.InsertOne(ctx, chat)
	if err != nil {
		return fmt.Errorf("store: insert chat %d: %w", chat.ChatID, err)
	}
	return nil
}

func normalizeMessage(msg Message) Message {
	if msg.Entities == nil {
		msg.Entities = []Entity{}
	}
	msg.Date = msg.Date.UTC()
	return msg
}

func (s *MongoStore) SetChatActive(ctx context.Context, chatID int64, active bool) error {
	res, err := s.chats.UpdateOne(
		ctx,
		bson.M{"chat_id": chatID},
		bson.M{"$set": bson.M{"active": active}},
	)
	if err != nil {
		return fmt.Errorf("store: set chat %d active: %w", chatID, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) HasMessage(ctx context.Context, chatID, messageID int64) (bool, error) {
	count, err := s.chats.CountDocuments(
		ctx,
		bson.M{"chat_id": chatID, "messages.message_id": messageID},
		options.Count().SetLimit(1),
	)
	if err != nil {
		return false, fmt.Errorf("store: lookup message %d/%d: %w", chatID, messageID, err)
	}
	return count > 0, nil
}

func (s *MongoStore) PushMessage(ctx context.Context, chatID int64, msg Message) (bool, error) {
	// the filter only matches when the message is not embedded yet, so
	// concurrent pushes of the same message cannot both succeed
	res, err := s.chats.UpdateOne(
		ctx,
		bson.M{
			"chat_id":             chatID,
			"messages.message_id": bson.M{"$ne": msg.MessageID},
		},
		bson.M{"$push": bson.M{"messages": normalizeMessage(msg)}},
	)
	if err != nil {
		return false, fmt.Errorf("store: push message %d/%d: %w", chatID, msg.MessageID, err)
	}
	if res.MatchedCount > 0 {
		return true, nil
	}

	_, err = s.FindChat(ctx, chatID)
	if err != nil {
		return false, err
	}
	return false, nil
}

func (s *MongoStore) ListChatIDs(ctx context.Context, activeOnly bool) ([]int64, error) {
	filter := bson.M{}
	if activeOnly {
		filter["active"] = true
	}
	values, err := s.chats.Distinct(ctx, "chat_id", filter)
	if err != nil {
		return nil, fmt.Errorf("store: list chat ids: %w", err)
	}

	ids := make([]int64, 0, len(values))
	for _, v := range values {
		// documents written by older tooling store small ids as int32
		switch id := v.(type) {
		case int64:
			ids = append(ids, id)
		case int32:
			ids = append(ids, int64(id))
		case float64:
			ids = append(ids, int64(id))
		default:
			return nil, fmt.Errorf("store: unexpected chat_id of type %T", v)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *MongoStore) InsertReport(ctx context.Context, report Report) (string, error) {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	report.ScrappingTime = report.ScrappingTime.UTC()
	if report.IDsSent == nil {
		report.IDsSent = []int64{}
	}
	if report.IDsError == nil {
		report.IDsError = []int64{}
	}

	_, err := s.reports.InsertOne(ctx, report)
	if err != nil {
		return "", fmt.Errorf("store: insert report: %w", err)
	}
	return report.ID, nil
}

func (s *MongoStore) ListReports(ctx context.Context, limit int) ([]Report, error) {
	cursor, err := s.reports.Find(
		ctx,
		bson.D{},
		options.Find().
			SetSort(bson.D{{Key: "scrapping_time", Value: -1}}).
			SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, fmt.Errorf("store: list reports: %w", err)
	}

	var reports []Report
	err = cursor.All(ctx, &reports)
	if err != nil {
		return nil, fmt.Errorf("store: decode reports: %w", err)
	}
	return reports, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
