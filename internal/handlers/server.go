package handlers

import (
	"concord-backend/internal/apperror"
	"concord-backend/internal/models"
	"concord-backend/internal/snowflake"
	"concord-backend/internal/social"
	"net/http"
)

// CreateServer inserts the server and the creator's owner membership in
// one transaction, a server without an owner row must never exist.
func CreateServer(w http.ResponseWriter, r *http.Request) {
	ownerID := userID(r)

	var body struct {
		Name     string `json:"name"`
		ImageURL string `json:"imageURL"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	if body.Name == "" {
		body.Name = "My server"
	}

	serverID, err := snowflake.Generate()
	if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}

	server := models.Server{
		ID:      serverID,
		OwnerID: ownerID,
		Name:    body.Name,
		Picture: body.ImageURL,
		Banner:  "",
		Role:    social.RoleOwner,
	}

	tx, err := db.Begin()
	if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}
	defer tx.Rollback()

	_, err = tx.Exec("INSERT INTO servers (id, owner_id, name, picture, banner) VALUES (?, ?, ?, ?, ?)",
		server.ID, server.OwnerID, server.Name, server.Picture, server.Banner)
	if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}

	_, err = tx.Exec("INSERT INTO server_members (server_id, user_id, role) VALUES (?, ?, ?)",
		server.ID, ownerID, social.RoleOwner)
	if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}

	if err := tx.Commit(); err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}

	writeJSON(w, server)
}

func GetMyServers(w http.ResponseWriter, r *http.Request) {
	rows, err := db.Query(`
		SELECT s.id, s.owner_id, s.name, s.picture, s.banner, m.role
		FROM servers s JOIN server_members m ON s.id = m.server_id
		WHERE m.user_id = ?`, userID(r))
	if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			sugar.Error(err)
		}
	}()

	servers := []models.Server{}

	for rows.Next() {
		var server models.Server

		err := rows.Scan(&server.ID, &server.OwnerID, &server.Name, &server.Picture, &server.Banner, &server.Role)
		if err != nil {
			writeError(w, apperror.Wrap(apperror.Internal, "", err))
			return
		}

		servers = append(servers, server)
	}

	if err := rows.Err(); err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}

	writeJSON(w, servers)
}

// GetServer checks existence before membership so a non-member of an
// existing server gets Forbidden, not NotFound.
func GetServer(w http.ResponseWriter, r *http.Request) {
	uID := userID(r)

	serverID, err := urlID(r, "serverID")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := serverExists(serverID); err != nil {
		writeError(w, err)
		return
	}

	role, err := memberRole(serverID, uID)
	if err != nil {
		writeError(w, err)
		return
	}

	var server models.Server
	err = db.QueryRow("SELECT id, owner_id, name, picture, banner FROM servers WHERE id = ?", serverID).
		Scan(&server.ID, &server.OwnerID, &server.Name, &server.Picture, &server.Banner)
	if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}
	server.Role = role

	writeJSON(w, server)
}

func DeleteServer(w http.ResponseWriter, r *http.Request) {
	uID := userID(r)

	serverID, err := urlID(r, "serverID")
	if err != nil {
		writeError(w, err)
		return
	}

	if _, err := requireRole(serverID, uID, social.CanDeleteServer); err != nil {
		writeError(w, err)
		return
	}

	tx, err := db.Begin()
	if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}
	defer tx.Rollback()

	// explicit cascade, children first
	for _, stmt := range []string{
		"DELETE FROM voice_sessions WHERE channel_id IN (SELECT id FROM channels WHERE server_id = ?)",
		"DELETE FROM channels WHERE server_id = ?",
		"DELETE FROM server_invites WHERE server_id = ?",
		"DELETE FROM server_members WHERE server_id = ?",
		"DELETE FROM servers WHERE id = ?",
	} {
		if _, err := tx.Exec(stmt, serverID); err != nil {
			writeError(w, apperror.Wrap(apperror.Internal, "", err))
			return
		}
	}

	if err := tx.Commit(); err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}
}
