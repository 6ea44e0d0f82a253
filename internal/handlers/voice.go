package handlers

import (
	"concord-backend/internal/apperror"
	"database/sql"
	"net/http"
	"time"
)

// a session with no heartbeat inside this window counts as gone
const voiceStaleness = 6 * time.Second

// voiceChannel authorizes access to a voice channel: the channel must
// exist on the server in the URL, be of the voice kind, and the caller
// must be a member of the server.
func voiceChannel(r *http.Request) (channelID int64, uID int64, err error) {
	uID = userID(r)

	serverID, err := urlID(r, "serverID")
	if err != nil {
		return 0, 0, err
	}

	channelID, err = urlID(r, "channelID")
	if err != nil {
		return 0, 0, err
	}

	var kind string
	err = db.QueryRow("SELECT kind FROM channels WHERE id = ? AND server_id = ?", channelID, serverID).Scan(&kind)
	if err == sql.ErrNoRows {
		return 0, 0, apperror.New(apperror.NotFound, "Channel not found on this server")
	} else if err != nil {
		return 0, 0, apperror.Wrap(apperror.Internal, "", err)
	}

	if kind != ChannelKindVoice {
		return 0, 0, apperror.New(apperror.InvalidArgument, "Not a voice channel")
	}

	if _, err := memberRole(serverID, uID); err != nil {
		return 0, 0, err
	}

	return channelID, uID, nil
}

// JoinVoice opens a session. Joining a channel you are already in is a
// no-op success, not an error.
func JoinVoice(w http.ResponseWriter, r *http.Request) {
	channelID, uID, err := voiceChannel(r)
	if err != nil {
		writeError(w, err)
		return
	}

	now := time.Now().UnixMilli()

	result, err := db.Exec("UPDATE voice_sessions SET last_seen = ? WHERE channel_id = ? AND user_id = ?", now, channelID, uID)
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
		_, err = db.Exec("INSERT INTO voice_sessions (channel_id, user_id, last_seen) VALUES (?, ?, ?)", channelID, uID, now)
		// a racing join can insert first, that still counts as joined
		if err != nil && !apperror.IsUniqueViolation(err) {
			writeError(w, apperror.Wrap(apperror.Internal, "", err))
			return
		}
	}
}

func LeaveVoice(w http.ResponseWriter, r *http.Request) {
	channelID, uID, err := voiceChannel(r)
	if err != nil {
		writeError(w, err)
		return
	}

	_, err = db.Exec("DELETE FROM voice_sessions WHERE channel_id = ? AND user_id = ?", channelID, uID)
	if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}
}

func VoiceHeartbeat(w http.ResponseWriter, r *http.Request) {
	channelID, uID, err := voiceChannel(r)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := db.Exec("UPDATE voice_sessions SET last_seen = ? WHERE channel_id = ? AND user_id = ?",
		time.Now().UnixMilli(), channelID, uID)
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
		writeError(w, apperror.New(apperror.NotFound, "No active voice session"))
		return
	}
}

// GetVoiceMembers purges stale sessions for the channel before reading,
// list and garbage collection are deliberately fused. The purge is a
// plain delete-by-predicate so concurrent callers don't interfere.
func GetVoiceMembers(w http.ResponseWriter, r *http.Request) {
	channelID, _, err := voiceChannel(r)
	if err != nil {
		writeError(w, err)
		return
	}

	cutoff := time.Now().Add(-voiceStaleness).UnixMilli()

	_, err = db.Exec("DELETE FROM voice_sessions WHERE channel_id = ? AND last_seen < ?", channelID, cutoff)
	if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}

	rows, err := db.Query(`
		SELECT u.id, u.username, u.display_name, u.picture
		FROM voice_sessions v JOIN users u ON u.id = v.user_id
		WHERE v.channel_id = ?`, channelID)
	if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}

	members, err := scanUserRows(rows)
	if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}

	writeJSON(w, members)
}
