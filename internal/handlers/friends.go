package handlers

import (
	"concord-backend/internal/apperror"
	"concord-backend/internal/models"
	"concord-backend/internal/snowflake"
	"concord-backend/internal/social"
	"database/sql"
	"net/http"
)

func scanFriendEdge(row *sql.Row) (models.FriendEdge, error) {
	var edge models.FriendEdge
	err := row.Scan(&edge.ID, &edge.SenderID, &edge.ReceiverID, &edge.Status, &edge.SenderName, &edge.ReceiverName)
	return edge, err
}

func SendFriendRequest(w http.ResponseWriter, r *http.Request) {
	senderID := userID(r)

	var body struct {
		ReceiverUsername string `json:"receiverUsername"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	receiver, err := userByUsername(body.ReceiverUsername)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := social.ValidateRequest(senderID, receiver.ID); err != nil {
		writeError(w, err)
		return
	}

	sender, err := userByID(senderID)
	if err != nil {
		writeError(w, err)
		return
	}

	// early exit for the common case, the unique index on the ordered
	// pair is what actually prevents two racing requests
	pairLow, pairHigh := social.PairKey(senderID, receiver.ID)

	var activeExists bool
	err = db.QueryRow("SELECT EXISTS(SELECT 1 FROM friends WHERE pair_low = ? AND pair_high = ? AND active = 1)", pairLow, pairHigh).Scan(&activeExists)
	if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}
	if activeExists {
		writeError(w, apperror.New(apperror.Conflict, "A request or friendship already exists between you"))
		return
	}

	edgeID, err := snowflake.Generate()
	if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}

	_, err = db.Exec(`
		INSERT INTO friends (id, sender_id, receiver_id, pair_low, pair_high, active, status, sender_name, receiver_name)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?, ?)`,
		edgeID, senderID, receiver.ID, pairLow, pairHigh, social.StatusPending, sender.UserName, receiver.UserName)
	if err != nil {
		if apperror.IsUniqueViolation(err) {
			writeError(w, apperror.New(apperror.Conflict, "A request or friendship already exists between you"))
		} else {
			writeError(w, apperror.Wrap(apperror.Internal, "", err))
		}
		return
	}

	writeJSON(w, models.FriendEdge{
		ID:           edgeID,
		SenderID:     senderID,
		ReceiverID:   receiver.ID,
		Status:       social.StatusPending,
		SenderName:   sender.UserName,
		ReceiverName: receiver.UserName,
	})
}

func RespondToFriendRequest(w http.ResponseWriter, r *http.Request) {
	receiverID := userID(r)

	var body struct {
		SenderUsername string `json:"senderUsername"`
		Status         string `json:"status"`
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

	sender, err := userByUsername(body.SenderUsername)
	if err != nil {
		writeError(w, err)
		return
	}

	edge, err := scanFriendEdge(db.QueryRow(`
		SELECT id, sender_id, receiver_id, status, sender_name, receiver_name
		FROM friends WHERE sender_id = ? AND receiver_id = ? AND status = ?`,
		sender.ID, receiverID, social.StatusPending))
	if err == sql.ErrNoRows {
		writeError(w, apperror.New(apperror.NotFound, "No pending request found"))
		return
	} else if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}

	if err := social.RespondToEdge(edge, receiverID, decision); err != nil {
		writeError(w, err)
		return
	}

	// the row is kept on rejection so the sender still sees the
	// outcome, active drops to NULL to free the pair for a new request
	var active any
	if decision == social.StatusAccepted {
		active = 1
	}

	_, err = db.Exec("UPDATE friends SET status = ?, active = ? WHERE id = ?", decision, active, edge.ID)
	if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}
}

func GetFriendsList(w http.ResponseWriter, r *http.Request) {
	uID := userID(r)

	rows, err := db.Query(`
		SELECT u.id, u.username, u.display_name, u.picture
		FROM friends f JOIN users u ON u.id = f.receiver_id
		WHERE f.sender_id = ? AND f.status = ?
		UNION
		SELECT u.id, u.username, u.display_name, u.picture
		FROM friends f JOIN users u ON u.id = f.sender_id
		WHERE f.receiver_id = ? AND f.status = ?`,
		uID, social.StatusAccepted, uID, social.StatusAccepted)
	if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}

	friends, err := scanUserRows(rows)
	if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}

	writeJSON(w, friends)
}

func GetFriendRequests(w http.ResponseWriter, r *http.Request) {
	uID := userID(r)

	scanEdges := func(rows *sql.Rows, scanErr error) ([]models.FriendEdge, error) {
		if scanErr != nil {
			return nil, scanErr
		}
		defer rows.Close()

		edges := []models.FriendEdge{}
		for rows.Next() {
			var edge models.FriendEdge
			err := rows.Scan(&edge.ID, &edge.SenderID, &edge.ReceiverID, &edge.Status, &edge.SenderName, &edge.ReceiverName)
			if err != nil {
				return nil, err
			}
			edges = append(edges, edge)
		}
		return edges, rows.Err()
	}

	incoming, err := scanEdges(db.Query(`
		SELECT id, sender_id, receiver_id, status, sender_name, receiver_name
		FROM friends WHERE receiver_id = ? AND status = ?`,
		uID, social.StatusPending))
	if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}

	// rejections stay visible to the sender
	outgoing, err := scanEdges(db.Query(`
		SELECT id, sender_id, receiver_id, status, sender_name, receiver_name
		FROM friends WHERE sender_id = ? AND status IN (?, ?)`,
		uID, social.StatusPending, social.StatusRejected))
	if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}

	writeJSON(w, struct {
		Incoming []models.FriendEdge `json:"incoming"`
		Outgoing []models.FriendEdge `json:"outgoing"`
	}{incoming, outgoing})
}

func CancelFriendRequest(w http.ResponseWriter, r *http.Request) {
	uID := userID(r)

	requestID, err := urlID(r, "requestID")
	if err != nil {
		writeError(w, err)
		return
	}

	edge, err := scanFriendEdge(db.QueryRow(`
		SELECT id, sender_id, receiver_id, status, sender_name, receiver_name
		FROM friends WHERE id = ?`, requestID))
	if err == sql.ErrNoRows {
		writeError(w, apperror.New(apperror.NotFound, "Request not found"))
		return
	} else if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}

	if err := social.CanCancelEdge(edge, uID); err != nil {
		writeError(w, err)
		return
	}

	_, err = db.Exec("DELETE FROM friends WHERE id = ?", edge.ID)
	if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}
}

func RemoveFriend(w http.ResponseWriter, r *http.Request) {
	uID := userID(r)

	friendID, err := urlID(r, "friendID")
	if err != nil {
		writeError(w, err)
		return
	}

	pairLow, pairHigh := social.PairKey(uID, friendID)

	edge, err := scanFriendEdge(db.QueryRow(`
		SELECT id, sender_id, receiver_id, status, sender_name, receiver_name
		FROM friends WHERE pair_low = ? AND pair_high = ? AND status = ?`,
		pairLow, pairHigh, social.StatusAccepted))
	if err == sql.ErrNoRows {
		writeError(w, apperror.New(apperror.NotFound, "Friendship not found"))
		return
	} else if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}

	if err := social.CanRemoveEdge(edge, uID); err != nil {
		writeError(w, err)
		return
	}

	_, err = db.Exec("DELETE FROM friends WHERE id = ?", edge.ID)
	if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}
}

func GetPublicProfile(w http.ResponseWriter, r *http.Request) {
	requestedID, err := urlID(r, "userID")
	if err != nil {
		writeError(w, err)
		return
	}

	user, err := userByID(requestedID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, user)
}
