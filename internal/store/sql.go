package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"radarbot-backend/internal/db"
	"time"

	"github.com/google/uuid"
)

// SqlStore keeps the documents in SQLite compatible tables, see internal/db/schema.sql.
type SqlStore struct {
	db  *sql.DB
	qry *db.Queries
}

func OpenSqlite(ctx context.Context, path string) (*SqlStore, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		err := os.MkdirAll(dir, 0755)
		if err != nil {
			return nil, fmt.Errorf("store: create %s: %w", dir, err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	// a single connection serializes writers, it also keeps :memory:
	// databases alive for the lifetime of the store
	conn.SetMaxOpenConns(1)
	_, err = conn.ExecContext(ctx, "PRAGMA journal_mode=WAL")
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: enable wal: %w", err)
	}
	return newSqlStore(ctx, conn)
}

func OpenLibsql(ctx context.Context, uri, authToken string) (*SqlStore, error) {
	if authToken != "" {
		parsed, err := url.Parse(uri)
		if err != nil {
			return nil, fmt.Errorf("store: parse libsql uri: %w", err)
		}
		query := parsed.Query()
		query.Set("authToken", authToken)
		parsed.RawQuery = query.Encode()
		uri = parsed.String()
	}

	conn, err := sql.Open("libsql", uri)
	if err != nil {
		return nil, fmt.Errorf("store: open libsql: %w", err)
	}
	return newSqlStore(ctx, conn)
}

func newSqlStore(ctx context.Context, conn *sql.DB) (*SqlStore, error) {
	_, err := conn.ExecContext(ctx, db.Schema)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &SqlStore{
		db:  conn,
		qry: db.New(conn),
	}, nil
}

func (s *SqlStore) FindChat(ctx context.Context, chatID int64) (Chat, error) {
	row, err := s.qry.GetChat(ctx, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return Chat{}, ErrNotFound
	}
	if err != nil {
		return Chat{}, fmt.Errorf("store: get chat %d: %w", chatID, err)
	}

	rows, err := s.qry.ListMessages(ctx, chatID)
	if err != nil {
		return Chat{}, fmt.Errorf("store: list messages of %d: %w", chatID, err)
	}
	messages := make([]Message, 0, len(rows))
	for _, r := range rows {
		msg, err := messageFromRow(r)
		if err != nil {
			return Chat{}, err
		}
		messages = append(messages, msg)
	}

	return Chat{
		ChatID:    row.ChatID,
		FirstName: row.FirstName,
		Username:  row.Username,
		ChatType:  row.ChatType,
		Active:    row.Active,
		Messages:  messages,
	}, nil
}

func (s *SqlStore) InsertChat(ctx context.Context, chat Chat) error {
	return db.RunInTx(ctx, s.db, func(txqry *db.Queries) error {
		err := txqry.InsertChat(ctx, db.InsertChatParams{
			ChatID:    chat.ChatID,
			FirstName: chat.FirstName,
			Username:  chat.Username,
			ChatType:  chat.ChatType,
			Active:    chat.Active,
		})
		if err != nil {
			return fmt.Errorf("store: insert chat %d: %w", chat.ChatID, err)
		}
		for _, msg := range chat.Messages {
			_, err = insertMessage(ctx, txqry, chat.ChatID, msg)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SqlStore) SetChatActive(ctx context.Context, chatID int64, active bool) error {
	affected, err := s.qry.SetChatActive(ctx, db.SetChatActiveParams{
		Active: active,
		ChatID: chatID,
	})
	if err != nil {
		return fmt.Errorf("store: set chat %d active: %w", chatID, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SqlStore) HasMessage(ctx context.Context, chatID, messageID int64) (bool, error) {
	exists, err := s.qry.HasMessage(ctx, db.HasMessageParams{
		ChatID:    chatID,
		MessageID: messageID,
	})
	if err != nil {
		return false, fmt.Errorf("store: lookup message %d/%d: %w", chatID, messageID, err)
	}
	return exists, nil
}

func (s *SqlStore) PushMessage(ctx context.Context, chatID int64, msg Message) (bool, error) {
	_, err := s.qry.GetChat(ctx, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("store: get chat %d: %w", chatID, err)
	}
	return insertMessage(ctx, s.qry, chatID, msg)
}

func insertMessage(ctx context.Context, qry *db.Queries, chatID int64, msg Message) (bool, error) {
	entities := msg.Entities
	if entities == nil {
		entities = []Entity{}
	}
	serialized, err := json.Marshal(entities)
	if err != nil {
		return false, err
	}
	affected, err := qry.InsertMessage(ctx, db.InsertMessageParams{
		ChatID:    chatID,
		MessageID: msg.MessageID,
		Date:      msg.Date.UTC().Unix(),
		Text:      msg.Text,
		Command:   msg.Command,
		Entities:  string(serialized),
	})
	if err != nil {
		return false, fmt.Errorf("store: insert message %d/%d: %w", chatID, msg.MessageID, err)
	}
	return affected > 0, nil
}

func messageFromRow(row db.Message) (Message, error) {
	var entities []Entity
	err := json.Unmarshal([]byte(row.Entities), &entities)
	if err != nil {
		return Message{}, fmt.Errorf("store: decode entities of message %d: %w", row.MessageID, err)
	}
	return Message{
		MessageID: row.MessageID,
		Date:      time.Unix(row.Date, 0).UTC(),
		Text:      row.Text,
		Command:   row.Command,
		Entities:  entities,
	}, nil
}

func (s *SqlStore) ListChatIDs(ctx context.Context, activeOnly bool) ([]int64, error) {
	ids, err := s.qry.ListChatIDs(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("store: list chat ids: %w", err)
	}
	return ids, nil
}

func (s *SqlStore) InsertReport(ctx context.Context, report Report) (string, error) {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}

	var locations sql.NullString
	if report.Locations != nil {
		serialized, err := json.Marshal(report.Locations)
		if err != nil {
			return "", err
		}
		locations = sql.NullString{String: string(serialized), Valid: true}
	}
	idsSent, err := marshalIDs(report.IDsSent)
	if err != nil {
		return "", err
	}
	idsError, err := marshalIDs(report.IDsError)
	if err != nil {
		return "", err
	}

	err = s.qry.InsertReport(ctx, db.InsertReportParams{
		ID:            report.ID,
		ScrappingTime: report.ScrappingTime.UTC().UnixMilli(),
		Status:        report.Status,
		HasRadar:      report.HasRadar,
		Locations:     locations,
		MessageSent:   report.MessageSent,
		IdsSent:       idsSent,
		IdsError:      idsError,
	})
	if err != nil {
		return "", fmt.Errorf("store: insert report: %w", err)
	}
	return report.ID, nil
}

func marshalIDs(ids []int64) (string, error) {
	if ids == nil {
		ids = []int64{}
	}
	serialized, err := json.Marshal(ids)
	return string(serialized), err
}

func (s *SqlStore) ListReports(ctx context.Context, limit int) ([]Report, error) {
	rows, err := s.qry.ListReports(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("store: list reports: %w", err)
	}

	reports := make([]Report, 0, len(rows))
	for _, r := range rows {
		report := Report{
			ID:            r.ID,
			ScrappingTime: time.UnixMilli(r.ScrappingTime).UTC(),
			Status:        r.Status,
			HasRadar:      r.HasRadar,
			MessageSent:   r.MessageSent,
		}
		if r.Locations.Valid {
			err = json.Unmarshal([]byte(r.Locations.String), &report.Locations)
			if err != nil {
				return nil, fmt.Errorf("store: decode locations of report %s: %w", r.ID, err)
			}
		}
		err = json.Unmarshal([]byte(r.IdsSent), &report.IDsSent)
		if err != nil {
			return nil, fmt.Errorf("store: decode ids_sent of report %s: %w", r.ID, err)
		}
		err = json.Unmarshal([]byte(r.IdsError), &report.IDsError)
		if err != nil {
			return nil, fmt.Errorf("store: decode ids_error of report %s: %w", r.ID, err)
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func (s *SqlStore) Close(ctx context.Context) error {
	return s.db.Close()
}
