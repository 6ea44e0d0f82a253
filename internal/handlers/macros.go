package handlers

import (
	"concord-backend/internal/apperror"
	"concord-backend/internal/models"
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func userID(r *http.Request) int64 {
	return r.Context().Value(UserIDKeyType{}).(int64)
}

func urlID(r *http.Request, param string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id == 0 {
		return 0, apperror.New(apperror.InvalidArgument, "Invalid "+param)
	}
	return id, nil
}

func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil {
		return apperror.Wrap(apperror.InvalidArgument, "Malformed request body", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		sugar.Error(err)
	}
}

// writeError maps a classified error to its HTTP status. Internal
// causes are logged but never shown to the client.
func writeError(w http.ResponseWriter, err error) {
	appErr := apperror.From(err)
	if appErr.Kind == apperror.Internal {
		sugar.Error(appErr.Cause)
		http.Error(w, "", appErr.Status())
		return
	}
	http.Error(w, appErr.Message, appErr.Status())
}

// serverExists distinguishes NotFound from Forbidden before any
// membership check runs.
func serverExists(serverID int64) error {
	var exists bool
	err := db.QueryRow("SELECT EXISTS(SELECT 1 FROM servers WHERE id = ?)", serverID).Scan(&exists)
	if err != nil {
		return apperror.Wrap(apperror.Internal, "", err)
	}
	if !exists {
		return apperror.New(apperror.NotFound, "Server not found")
	}
	return nil
}

// memberRole fetches the caller's role on a server. Missing membership
// comes back as Forbidden.
func memberRole(serverID int64, userID int64) (string, error) {
	var role string
	err := db.QueryRow("SELECT role FROM server_members WHERE server_id = ? AND user_id = ?", serverID, userID).Scan(&role)
	if err == sql.ErrNoRows {
		return "", apperror.New(apperror.Forbidden, "You are not a member of this server")
	} else if err != nil {
		return "", apperror.Wrap(apperror.Internal, "", err)
	}
	return role, nil
}

// requireRole is the role gate in front of every privileged server
// mutation: server must exist, caller must be a member and their role
// must pass the check.
func requireRole(serverID int64, userID int64, allowed func(string) bool) (string, error) {
	if err := serverExists(serverID); err != nil {
		return "", err
	}

	role, err := memberRole(serverID, userID)
	if err != nil {
		return "", err
	}

	if !allowed(role) {
		sugar.Warnf("User ID [%d] was denied a privileged action on server ID [%d] with role [%s]", userID, serverID, role)
		return role, apperror.New(apperror.Forbidden, "Insufficient permissions")
	}
	return role, nil
}

func userByUsername(username string) (models.User, error) {
	var user models.User
	err := db.QueryRow("SELECT id, username, display_name, picture FROM users WHERE username = ?", username).
		Scan(&user.ID, &user.UserName, &user.DisplayName, &user.Picture)
	if err == sql.ErrNoRows {
		return user, apperror.New(apperror.NotFound, "User not found")
	} else if err != nil {
		return user, apperror.Wrap(apperror.Internal, "", err)
	}
	return user, nil
}

func userByID(id int64) (models.User, error) {
	var user models.User
	err := db.QueryRow("SELECT id, username, display_name, picture FROM users WHERE id = ?", id).
		Scan(&user.ID, &user.UserName, &user.DisplayName, &user.Picture)
	if err == sql.ErrNoRows {
		return user, apperror.New(apperror.NotFound, "User not found")
	} else if err != nil {
		return user, apperror.Wrap(apperror.Internal, "", err)
	}
	return user, nil
}

func scanUserRows(rows *sql.Rows) ([]models.User, error) {
	defer func() {
		err := rows.Close()
		if err != nil {
			sugar.Error(err)
		}
	}()

	users := []models.User{}
	for rows.Next() {
		var user models.User
		err := rows.Scan(&user.ID, &user.UserName, &user.DisplayName, &user.Picture)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, rows.Err()
}
