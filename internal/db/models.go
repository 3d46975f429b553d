package db

import (
	"database/sql"
)

type Chat struct {
	ChatID    int64
	FirstName string
	Username  string
	ChatType  string
	Active    bool
}

type Message struct {
	ChatID    int64
	MessageID int64
	Date      int64
	Text      string
	Command   string
	Entities  string
}

type Report struct {
	ID            string
	ScrappingTime int64
	Status        string
	HasRadar      bool
	Locations     sql.NullString
	MessageSent   string
	IdsSent       string
	IdsError      string
}
