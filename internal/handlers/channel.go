package handlers

import (
	"concord-backend/internal/apperror"
	"concord-backend/internal/models"
	"concord-backend/internal/snowflake"
	"concord-backend/internal/social"
	"net/http"
)

const (
	ChannelKindText  = "text"
	ChannelKindVoice = "voice"
)

func validChannelKind(kind string) bool {
	return kind == ChannelKindText || kind == ChannelKindVoice
}

func GetChannelList(w http.ResponseWriter, r *http.Request) {
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

	if _, err := memberRole(serverID, uID); err != nil {
		writeError(w, err)
		return
	}

	kind := r.URL.Query().Get("kind")
	if !validChannelKind(kind) {
		writeError(w, apperror.New(apperror.InvalidArgument, "kind must be text or voice"))
		return
	}

	rows, err := db.Query(`
		SELECT id, server_id, kind, name, description, is_private, position
		FROM channels WHERE server_id = ? AND kind = ?
		ORDER BY position ASC`, serverID, kind)
	if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}
	defer rows.Close()

	channels := []models.Channel{}

	for rows.Next() {
		var channel models.Channel

		err := rows.Scan(&channel.ID, &channel.ServerID, &channel.Kind, &channel.Name, &channel.Description, &channel.IsPrivate, &channel.Position)
		if err != nil {
			writeError(w, apperror.Wrap(apperror.Internal, "", err))
			return
		}

		channels = append(channels, channel)
	}

	if err := rows.Err(); err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}

	writeJSON(w, channels)
}

// CreateChannel appends the channel at max(position)+1. The position is
// computed inside the insert statement so two concurrent creates can't
// pick the same slot, and unique (server_id, position) backs that up.
func CreateChannel(w http.ResponseWriter, r *http.Request) {
	uID := userID(r)

	serverID, err := urlID(r, "serverID")
	if err != nil {
		writeError(w, err)
		return
	}

	if _, err := requireRole(serverID, uID, social.CanManageChannels); err != nil {
		writeError(w, err)
		return
	}

	var body struct {
		Kind        string `json:"kind"`
		Name        string `json:"name"`
		Description string `json:"description"`
		IsPrivate   bool   `json:"isPrivate"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	if !validChannelKind(body.Kind) {
		writeError(w, apperror.New(apperror.InvalidArgument, "kind must be text or voice"))
		return
	}

	if body.Name == "" {
		body.Name = "New Channel"
	}

	channelID, err := snowflake.Generate()
	if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}

	_, err = db.Exec(`
		INSERT INTO channels (id, server_id, kind, name, description, is_private, position)
		SELECT ?, ?, ?, ?, ?, ?, COALESCE(MAX(position), 0) + 1
		FROM channels WHERE server_id = ?`,
		channelID, serverID, body.Kind, body.Name, body.Description, body.IsPrivate, serverID)
	if err != nil {
		if apperror.IsUniqueViolation(err) {
			writeError(w, apperror.New(apperror.Conflict, "Channel position collision, try again"))
		} else {
			writeError(w, apperror.Wrap(apperror.Internal, "", err))
		}
		return
	}

	var channel models.Channel
	err = db.QueryRow(`
		SELECT id, server_id, kind, name, description, is_private, position
		FROM channels WHERE id = ?`, channelID).
		Scan(&channel.ID, &channel.ServerID, &channel.Kind, &channel.Name, &channel.Description, &channel.IsPrivate, &channel.Position)
	if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}

	writeJSON(w, channel)
}

func DeleteChannel(w http.ResponseWriter, r *http.Request) {
	uID := userID(r)

	serverID, err := urlID(r, "serverID")
	if err != nil {
		writeError(w, err)
		return
	}

	channelID, err := urlID(r, "channelID")
	if err != nil {
		writeError(w, err)
		return
	}

	if _, err := requireRole(serverID, uID, social.CanManageChannels); err != nil {
		writeError(w, err)
		return
	}

	tx, err := db.Begin()
	if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}
	defer tx.Rollback()

	_, err = tx.Exec("DELETE FROM voice_sessions WHERE channel_id = ?", channelID)
	if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}

	// scoping the delete to the server closes the hole of deleting a
	// channel on someone else's server by ID
	result, err := tx.Exec("DELETE FROM channels WHERE id = ? AND server_id = ?", channelID, serverID)
	if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}

	affected, err := result.RowsAffected()
	if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}
	if affected == 0 {
		writeError(w, apperror.New(apperror.NotFound, "Channel not found on this server"))
		return
	}

	if err := tx.Commit(); err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}
}
