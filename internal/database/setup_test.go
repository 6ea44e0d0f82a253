package database

import (
	"concord-backend/internal/apperror"
	"concord-backend/internal/models"
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	cfg := &models.ConfigFile{
		SelfContained: true,
		DbFile:        filepath.Join(t.TempDir(), "test.db"),
	}

	db, err := Setup(cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	for _, u := range []struct {
		id       int64
		email    string
		username string
	}{
		{1, "a@example.com", "alice"},
		{2, "b@example.com", "bob"},
	} {
		_, err = db.Exec("INSERT INTO users (id, email, username, display_name, picture, password) VALUES (?, ?, ?, ?, '', ?)",
			u.id, u.email, u.username, u.username, []byte("x"))
		if err != nil {
			t.Fatal(err)
		}
	}

	return db
}

func TestFriendPairUniqueness(t *testing.T) {
	db := openTestDB(t)

	insertEdge := func(id int64, sender int64, receiver int64, active any, status string) error {
		low, high := sender, receiver
		if high < low {
			low, high = high, low
		}
		_, err := db.Exec(`
			INSERT INTO friends (id, sender_id, receiver_id, pair_low, pair_high, active, status, sender_name, receiver_name)
			VALUES (?, ?, ?, ?, ?, ?, ?, '', '')`,
			id, sender, receiver, low, high, active, status)
		return err
	}

	if err := insertEdge(100, 1, 2, 1, "pending"); err != nil {
		t.Fatal(err)
	}

	// same direction
	err := insertEdge(101, 1, 2, 1, "pending")
	if !apperror.IsUniqueViolation(err) {
		t.Errorf("duplicate active edge should hit the unique index, got %v", err)
	}

	// reverse direction maps to the same ordered pair
	err = insertEdge(102, 2, 1, 1, "pending")
	if !apperror.IsUniqueViolation(err) {
		t.Errorf("reverse active edge should hit the unique index, got %v", err)
	}

	// settling the edge frees the pair
	if _, err := db.Exec("UPDATE friends SET status = 'rejected', active = NULL WHERE id = ?", 100); err != nil {
		t.Fatal(err)
	}
	if err := insertEdge(103, 2, 1, 1, "pending"); err != nil {
		t.Errorf("rejected row must not block a new request: %v", err)
	}

	// a second rejected row is fine too, NULLs don't collide
	if _, err := db.Exec("UPDATE friends SET status = 'rejected', active = NULL WHERE id = ?", 103); err != nil {
		t.Fatal(err)
	}
	if err := insertEdge(104, 1, 2, 1, "pending"); err != nil {
		t.Errorf("two rejected rows must not block a new request: %v", err)
	}
}

func TestChannelPositionUniqueness(t *testing.T) {
	db := openTestDB(t)

	if _, err := db.Exec("INSERT INTO servers (id, owner_id, name, picture, banner) VALUES (10, 1, 's', '', '')"); err != nil {
		t.Fatal(err)
	}

	insertChannel := func(id int64, position int64) error {
		_, err := db.Exec("INSERT INTO channels (id, server_id, kind, name, description, is_private, position) VALUES (?, 10, 'text', 'c', '', 0, ?)", id, position)
		return err
	}

	if err := insertChannel(200, 1); err != nil {
		t.Fatal(err)
	}

	err := insertChannel(201, 1)
	if !apperror.IsUniqueViolation(err) {
		t.Errorf("duplicate position on one server should hit the unique index, got %v", err)
	}

	if err := insertChannel(202, 2); err != nil {
		t.Errorf("next position should be free: %v", err)
	}
}

func TestVoiceSessionPrimaryKey(t *testing.T) {
	db := openTestDB(t)

	if _, err := db.Exec("INSERT INTO servers (id, owner_id, name, picture, banner) VALUES (10, 1, 's', '', '')"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("INSERT INTO channels (id, server_id, kind, name, description, is_private, position) VALUES (300, 10, 'voice', 'v', '', 0, 1)"); err != nil {
		t.Fatal(err)
	}

	if _, err := db.Exec("INSERT INTO voice_sessions (channel_id, user_id, last_seen) VALUES (300, 1, 0)"); err != nil {
		t.Fatal(err)
	}

	_, err := db.Exec("INSERT INTO voice_sessions (channel_id, user_id, last_seen) VALUES (300, 1, 0)")
	if !apperror.IsUniqueViolation(err) {
		t.Errorf("double join should be a unique violation for the caller to swallow, got %v", err)
	}
}
