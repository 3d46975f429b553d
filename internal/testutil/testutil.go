package testutil

import (
	"context"
	"fmt"
	"radarbot-backend/internal/store"
	"radarbot-backend/lib/telemetry"
	"testing"
)

type StoreParams struct {
	Name string
	// if unspecified, it will use `:memory:`
	DbPath string
	// chats inserted before the test runs
	Chats []store.Chat
}

// SetupStore opens a sqlite backed store with test telemetry, both are torn
// down when the test finishes.
func SetupStore(t testing.TB, params StoreParams) store.Store {
	cleanup := telemetry.SetupForTesting(t, fmt.Sprintf("test:%s", params.Name))
	t.Cleanup(cleanup)

	dbpath := ":memory:"
	if params.DbPath != "" {
		dbpath = params.DbPath
	}
	s, err := store.OpenSqlite(context.Background(), dbpath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		err := s.Close(context.Background())
		if err != nil {
			t.Error(err)
		}
	})

	for _, chat := range params.Chats {
		err := s.InsertChat(context.Background(), chat)
		if err != nil {
			t.Fatal(err)
		}
	}
	return s
}
