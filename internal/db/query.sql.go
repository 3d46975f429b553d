package db

import (
	"context"
	"database/sql"
)

const getChat = `select chat_id, first_name, username, chat_type, active from chats
where chat_id = ?
`

func (q *Queries) GetChat(ctx context.Context, chatID int64) (Chat, error) {
	row := q.db.QueryRowContext(ctx, getChat, chatID)
	var i Chat
	err := row.Scan(
		&i.ChatID,
		&i.FirstName,
		&i.Username,
		&i.ChatType,
		&i.Active,
	)
	return i, err
}

const insertChat = `insert into chats (chat_id, first_name, username, chat_type, active)
values (?, ?, ?, ?, ?)
`

type InsertChatParams struct {
	ChatID    int64
	FirstName string
	Username  string
	ChatType  string
	Active    bool
}

func (q *Queries) InsertChat(ctx context.Context, arg InsertChatParams) error {
	_, err := q.db.ExecContext(ctx, insertChat,
		arg.ChatID,
		arg.FirstName,
		arg.Username,
		arg.ChatType,
		arg.Active,
	)
	return err
}

const setChatActive = `update chats set active = ?
where chat_id = ?
`

type SetChatActiveParams struct {
	Active bool
	ChatID int64
}

func (q *Queries) SetChatActive(ctx context.Context, arg SetChatActiveParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, setChatActive, arg.Active, arg.ChatID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const hasMessage = `select exists(
    select 1 from messages where chat_id = ? and message_id = ?
)
`

type HasMessageParams struct {
	ChatID    int64
	MessageID int64
}

func (q *Queries) HasMessage(ctx context.Context, arg HasMessageParams) (bool, error) {
	row := q.db.QueryRowContext(ctx, hasMessage, arg.ChatID, arg.MessageID)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const insertMessage = `insert into messages (chat_id, message_id, date, text, command, entities)
values (?, ?, ?, ?, ?, ?)
on conflict (chat_id, message_id) do nothing
`

type InsertMessageParams struct {
	ChatID    int64
	MessageID int64
	Date      int64
	Text      string
	Command   string
	Entities  string
}

func (q *Queries) InsertMessage(ctx context.Context, arg InsertMessageParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, insertMessage,
		arg.ChatID,
		arg.MessageID,
		arg.Date,
		arg.Text,
		arg.Command,
		arg.Entities,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listMessages = `select chat_id, message_id, date, text, command, entities from messages
where chat_id = ?
order by date, message_id
`

func (q *Queries) ListMessages(ctx context.Context, chatID int64) ([]Message, error) {
	rows, err := q.db.QueryContext(ctx, listMessages, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Message
	for rows.Next() {
		var i Message
		if err := rows.Scan(
			&i.ChatID,
			&i.MessageID,
			&i.Date,
			&i.Text,
			&i.Command,
			&i.Entities,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listChatIDs = `select chat_id from chats
where active or not ?
order by chat_id
`

func (q *Queries) ListChatIDs(ctx context.Context, activeOnly bool) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx, listChatIDs, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []int64
	for rows.Next() {
		var chatID int64
		if err := rows.Scan(&chatID); err != nil {
			return nil, err
		}
		items = append(items, chatID)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertReport = `insert into reports (
    id, scrapping_time, status, has_radar, locations, message_sent, ids_sent, ids_error
) values (?, ?, ?, ?, ?, ?, ?, ?)
`

type InsertReportParams struct {
	ID            string
	ScrappingTime int64
	Status        string
	HasRadar      bool
	Locations     sql.NullString
	MessageSent   string
	IdsSent       string
	IdsError      string
}

func (q *Queries) InsertReport(ctx context.Context, arg InsertReportParams) error {
	_, err := q.db.ExecContext(ctx, insertReport,
		arg.ID,
		arg.ScrappingTime,
		arg.Status,
		arg.HasRadar,
		arg.Locations,
		arg.MessageSent,
		arg.IdsSent,
		arg.IdsError,
	)
	return err
}

const listReports = `select id, scrapping_time, status, has_radar, locations, message_sent, ids_sent, ids_error from reports
order by scrapping_time desc
limit ?
`

func (q *Queries) ListReports(ctx context.Context, limit int64) ([]Report, error) {
	rows, err := q.db.QueryContext(ctx, listReports, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Report
	for rows.Next() {
		var i Report
		if err := rows.Scan(
			&i.ID,
			&i.ScrappingTime,
			&i.Status,
			&i.HasRadar,
			&i.Locations,
			&i.MessageSent,
			&i.IdsSent,
			&i.IdsError,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
