package handlers

import (
	"concord-backend/internal/apperror"
	"concord-backend/internal/models"
	"concord-backend/internal/snowflake"
	"concord-backend/internal/social"
	"database/sql"
	"net/http"
)

func scanInvite(row *sql.Row) (models.ServerInvite, error) {
	var invite models.ServerInvite
	err := row.Scan(&invite.ID, &invite.ServerID, &invite.SenderID, &invite.RecipientID, &invite.Status)
	return invite, err
}

func CreateInvite(w http.ResponseWriter, r *http.Request) {
	senderID := userID(r)

	serverID, err := urlID(r, "serverID")
	if err != nil {
		writeError(w, err)
		return
	}

	if _, err := requireRole(serverID, senderID, social.CanInvite); err != nil {
		writeError(w, err)
		return
	}

	var body struct {
		RecipientUsername string `json:"recipientUsername"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	recipient, err := userByUsername(body.RecipientUsername)
	if err != nil {
		writeError(w, err)
		return
	}

	var isMember bool
	err = db.QueryRow("SELECT EXISTS(SELECT 1 FROM server_members WHERE server_id = ? AND user_id = ?)", serverID, recipient.ID).Scan(&isMember)
	if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}
	if isMember {
		writeError(w, apperror.New(apperror.Conflict, "User is already a member of this server"))
		return
	}

	inviteID, err := snowflake.Generate()
	if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}

	// unique (server, recipient, active) rejects a second pending invite
	_, err = db.Exec(`
		INSERT INTO server_invites (id, server_id, sender_id, recipient_id, active, status)
		VALUES (?, ?, ?, ?, 1, ?)`,
		inviteID, serverID, senderID, recipient.ID, social.StatusPending)
	if err != nil {
		if apperror.IsUniqueViolation(err) {
			writeError(w, apperror.New(apperror.Conflict, "User already has a pending invite to this server"))
		} else {
			writeError(w, apperror.Wrap(apperror.Internal, "", err))
		}
		return
	}

	writeJSON(w, models.ServerInvite{
		ID:          inviteID,
		ServerID:    serverID,
		SenderID:    senderID,
		RecipientID: recipient.ID,
		Status:      social.StatusPending,
	})
}

// RespondToInvite settles a pending invite, inserting the membership in
// the same transaction when accepted.
func RespondToInvite(w http.ResponseWriter, r *http.Request) {
	recipientID := userID(r)

	inviteID, err := urlID(r, "inviteID")
	if err != nil {
		writeError(w, err)
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	decision, err := social.ParseDecision(body.Status)
	if err != nil {
		writeError(w, err)
		return
	}

	invite, err := scanInvite(db.QueryRow(
		"SELECT id, server_id, sender_id, recipient_id, status FROM server_invites WHERE id = ?", inviteID))
	if err == sql.ErrNoRows {
		writeError(w, apperror.New(apperror.NotFound, "Invite not found"))
		return
	} else if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}

	if err := social.RespondToInvite(invite, recipientID, decision); err != nil {
		writeError(w, err)
		return
	}

	tx, err := db.Begin()
	if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}
	defer tx.Rollback()

	_, err = tx.Exec("UPDATE server_invites SET status = ?, active = NULL WHERE id = ?", decision, invite.ID)
	if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}

	if decision == social.StatusAccepted {
		_, err = tx.Exec("INSERT INTO server_members (server_id, user_id, role) VALUES (?, ?, ?)",
			invite.ServerID, recipientID, social.RoleMember)
		if err != nil {
			if apperror.IsUniqueViolation(err) {
				writeError(w, apperror.New(apperror.Conflict, "You are already a member of this server"))
			} else {
				writeError(w, apperror.Wrap(apperror.Internal, "", err))
			}
			return
		}
	}

	if err := tx.Commit(); err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}
}

func CancelInvite(w http.ResponseWriter, r *http.Request) {
	uID := userID(r)

	inviteID, err := urlID(r, "inviteID")
	if err != nil {
		writeError(w, err)
		return
	}

	invite, err := scanInvite(db.QueryRow(
		"SELECT id, server_id, sender_id, recipient_id, status FROM server_invites WHERE id = ?", inviteID))
	if err == sql.ErrNoRows {
		writeError(w, apperror.New(apperror.NotFound, "Invite not found"))
		return
	} else if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}

	if err := social.CanCancelInvite(invite, uID); err != nil {
		writeError(w, err)
		return
	}

	_, err = db.Exec("DELETE FROM server_invites WHERE id = ?", invite.ID)
	if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}
}

func scanInviteRows(rows *sql.Rows, scanErr error) ([]models.ServerInvite, error) {
	if scanErr != nil {
		return nil, scanErr
	}
	defer rows.Close()

	invites := []models.ServerInvite{}
	for rows.Next() {
		var invite models.ServerInvite
		err := rows.Scan(&invite.ID, &invite.ServerID, &invite.SenderID, &invite.RecipientID, &invite.Status)
		if err != nil {
			return nil, err
		}
		invites = append(invites, invite)
	}
	return invites, rows.Err()
}

func GetReceivedInvites(w http.ResponseWriter, r *http.Request) {
	invites, err := scanInviteRows(db.Query(`
		SELECT id, server_id, sender_id, recipient_id, status
		FROM server_invites WHERE recipient_id = ? AND status = ?`,
		userID(r), social.StatusPending))
	if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}

	writeJSON(w, invites)
}

func GetSentInvites(w http.ResponseWriter, r *http.Request) {
	invites, err := scanInviteRows(db.Query(`
		SELECT id, server_id, sender_id, recipient_id, status
		FROM server_invites WHERE sender_id = ?`,
		userID(r)))
	if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}

	writeJSON(w, invites)
}
