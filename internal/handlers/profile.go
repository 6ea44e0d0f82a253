package handlers

import (
	"concord-backend/internal/apperror"
	"concord-backend/internal/fileHandlers"
	"concord-backend/internal/validator"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// UpdateUsername renames the caller and fans the new name out into the
// denormalized copies on friend edges, all in one transaction so edges
// never render a stale name.
func UpdateUsername(w http.ResponseWriter, r *http.Request) {
	uID := userID(r)

	var body struct {
		Username string `json:"username"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	if err := validator.Username(body.Username); err != nil {
		writeError(w, apperror.New(apperror.InvalidArgument, err.Error()))
		return
	}

	tx, err := db.Begin()
	if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}
	defer tx.Rollback()

	// the unique index on users.username is what actually resolves two
	// concurrent renames to the same value, this update just hits it
	_, err = tx.Exec("UPDATE users SET username = ? WHERE id = ?", body.Username, uID)
	if err != nil {
		if apperror.IsUniqueViolation(err) {
			writeError(w, apperror.New(apperror.Conflict, "Username is already taken"))
		} else {
			writeError(w, apperror.Wrap(apperror.Internal, "", err))
		}
		return
	}

	_, err = tx.Exec("UPDATE friends SET sender_name = ? WHERE sender_id = ?", body.Username, uID)
	if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}

	_, err = tx.Exec("UPDATE friends SET receiver_name = ? WHERE receiver_id = ?", body.Username, uID)
	if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}

	if err := tx.Commit(); err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}
}

func UpdateDisplayName(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DisplayName string `json:"displayName"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	if body.DisplayName == "" {
		writeError(w, apperror.New(apperror.InvalidArgument, "Display name can't be empty"))
		return
	}

	_, err := db.Exec("UPDATE users SET display_name = ? WHERE id = ?", body.DisplayName, userID(r))
	if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}
}

func UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AvatarURL string `json:"avatarURL"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	avatar := body.AvatarURL
	if avatar == "" {
		avatar = defaultAvatar
	}

	_, err := db.Exec("UPDATE users SET picture = ? WHERE id = ?", avatar, userID(r))
	if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}
}

// UploadAvatar takes a multipart picture, converts it and points the
// caller's profile at the stored file.
func UploadAvatar(w http.ResponseWriter, r *http.Request) {
	pictureName, err := fileHandlers.HandleAvatarPicture(r)
	if err != nil {
		sugar.Error(err)
		writeError(w, apperror.New(apperror.InvalidArgument, "Couldn't process picture"))
		return
	}

	_, err = db.Exec("UPDATE users SET picture = ? WHERE id = ?", pictureName, userID(r))
	if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}

	writeJSON(w, struct {
		Picture string `json:"picture"`
	}{pictureName})
}

func UpdateEmail(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	if err := validator.Email(body.Email); err != nil {
		writeError(w, apperror.New(apperror.InvalidArgument, err.Error()))
		return
	}

	_, err := db.Exec("UPDATE users SET email = ? WHERE id = ?", body.Email, userID(r))
	if err != nil {
		if apperror.IsUniqueViolation(err) {
			writeError(w, apperror.New(apperror.Conflict, "Email is already taken"))
		} else {
			writeError(w, apperror.Wrap(apperror.Internal, "", err))
		}
		return
	}
}

func UpdatePassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	if err := validator.Password(body.Password); err != nil {
		writeError(w, apperror.New(apperror.InvalidArgument, err.Error()))
		return
	}

	passwordBytes, err := bcrypt.GenerateFromPassword([]byte(body.Password), 12)
	if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}

	_, err = db.Exec("UPDATE users SET password = ? WHERE id = ?", passwordBytes, userID(r))
	if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}
}
