package database

import (
	"concord-backend/internal/models"
	"database/sql"
	"fmt"
)

func setPragmaValues(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return err
	}

	// these next 2 extremely speed up performance of sqlite
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return err
	}

	if _, err := db.Exec("PRAGMA synchronous = normal"); err != nil {
		return err
	}

	return nil
}

func Setup(cfg *models.ConfigFile) (*sql.DB, error) {
	var db *sql.DB
	var err error

	if cfg.SelfContained {
		dbFile := cfg.DbFile
		if dbFile == "" {
			dbFile = "./database.db"
		}

		db, err = sql.Open("sqlite", dbFile)
		if err != nil {
			return db, err
		}

		// there can be sqlite busy errors if this is not set to 1
		db.SetMaxOpenConns(1)

		err = setPragmaValues(db)
		if err != nil {
			return db, err
		}
	} else {
		db, err = sql.Open("mysql", fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&timeout=10s", cfg.DbUser, cfg.DbPassword, cfg.DbAddress, cfg.DbPort, cfg.DbDatabase))
		if err != nil {
			return db, err
		}

		db.SetMaxOpenConns(10)
	}

	err = setupTables(db)
	if err != nil {
		return db, err
	}

	return db, nil
}

func setupTables(db *sql.DB) error {
	var err error

	_, err = db.Exec(`
			CREATE TABLE IF NOT EXISTS users (
				id BIGINT PRIMARY KEY,
				email VARCHAR(64) NOT NULL UNIQUE,
				username VARCHAR(32) NOT NULL UNIQUE,
				display_name VARCHAR(64) NOT NULL,
				picture TEXT,
				birth_date VARCHAR(10),
				password BINARY(60) NOT NULL
			);
		`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
			CREATE TABLE IF NOT EXISTS servers (
				id BIGINT PRIMARY KEY,
				owner_id BIGINT NOT NULL,
				name VARCHAR(64) NOT NULL,
				picture TEXT,
				banner TEXT,
				FOREIGN KEY (owner_id) REFERENCES users(id) ON DELETE CASCADE
			);
		`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
			CREATE TABLE IF NOT EXISTS server_members (
				server_id BIGINT NOT NULL,
				user_id BIGINT NOT NULL,
				role VARCHAR(16) NOT NULL DEFAULT 'member',
				since TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				PRIMARY KEY (server_id, user_id),
				FOREIGN KEY (server_id) REFERENCES servers(id) ON DELETE CASCADE,
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
			);
		`)
	if err != nil {
		return err
	}

	// pair_low/pair_high is the direction-independent pair,
	// active is 1 while pending/accepted and NULL once rejected,
	// so the unique index allows at most one live edge per pair
	// but any number of settled ones
	_, err = db.Exec(`
			CREATE TABLE IF NOT EXISTS friends (
				id BIGINT PRIMARY KEY,
				sender_id BIGINT NOT NULL,
				receiver_id BIGINT NOT NULL,
				pair_low BIGINT NOT NULL,
				pair_high BIGINT NOT NULL,
				active TINYINT NULL,
				status VARCHAR(16) NOT NULL,
				sender_name VARCHAR(32) NOT NULL,
				receiver_name VARCHAR(32) NOT NULL,
				UNIQUE (pair_low, pair_high, active),
				FOREIGN KEY (sender_id) REFERENCES users(id) ON DELETE CASCADE,
				FOREIGN KEY (receiver_id) REFERENCES users(id) ON DELETE CASCADE
			);
		`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
			CREATE TABLE IF NOT EXISTS server_invites (
				id BIGINT PRIMARY KEY,
				server_id BIGINT NOT NULL,
				sender_id BIGINT NOT NULL,
				recipient_id BIGINT NOT NULL,
				active TINYINT NULL,
				status VARCHAR(16) NOT NULL,
				UNIQUE (server_id, recipient_id, active),
				FOREIGN KEY (server_id) REFERENCES servers(id) ON DELETE CASCADE,
				FOREIGN KEY (sender_id) REFERENCES users(id) ON DELETE CASCADE,
				FOREIGN KEY (recipient_id) REFERENCES users(id) ON DELETE CASCADE
			);
		`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
			CREATE TABLE IF NOT EXISTS channels (
				id BIGINT PRIMARY KEY,
				server_id BIGINT NOT NULL,
				kind VARCHAR(8) NOT NULL,
				name VARCHAR(32) NOT NULL,
				description TEXT,
				is_private BOOLEAN NOT NULL DEFAULT FALSE,
				position BIGINT NOT NULL,
				UNIQUE (server_id, position),
				FOREIGN KEY (server_id) REFERENCES servers(id) ON DELETE CASCADE
			);
		`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
			CREATE TABLE IF NOT EXISTS voice_sessions (
				channel_id BIGINT NOT NULL,
				user_id BIGINT NOT NULL,
				last_seen BIGINT NOT NULL,
				PRIMARY KEY (channel_id, user_id),
				FOREIGN KEY (channel_id) REFERENCES channels(id) ON DELETE CASCADE,
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
			);
		`)
	if err != nil {
		return err
	}

	return nil
}
