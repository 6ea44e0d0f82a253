package handlers

import (
	"concord-backend/internal/apperror"
	"concord-backend/internal/keyValue"
	"concord-backend/internal/models"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// parkedRegistration is a registration waiting for its confirmation
// link to be visited. The password hash travels explicitly because the
// public user model never serializes it.
type parkedRegistration struct {
	User     models.User `json:"user"`
	Password []byte      `json:"password"`
}

func ConfirmEmail(w http.ResponseWriter, r *http.Request) {
	urlToken := r.URL.Query().Get("token")
	if urlToken == "" {
		writeError(w, apperror.New(apperror.InvalidArgument, "Missing token"))
		return
	}

	token, err := url.QueryUnescape(urlToken)
	if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}

	value, err := keyValue.GetDel(fmt.Sprintf("registration:%s", token))
	if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}

	if value == "" {
		writeError(w, apperror.New(apperror.Unauthorized, "Token isn't valid"))
		return
	}

	var parked parkedRegistration
	err = json.Unmarshal([]byte(value), &parked)
	if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}

	user := parked.User
	user.Password = parked.Password

	err = insertUser(user)
	if err != nil {
		writeError(w, err)
		return
	}

	http.Redirect(w, r, "/login", http.StatusMovedPermanently)
}
