package handlers

import (
	"concord-backend/internal/apperror"
	"concord-backend/internal/email"
	"concord-backend/internal/jwt"
	"concord-backend/internal/keyValue"
	"concord-backend/internal/models"
	"concord-backend/internal/snowflake"
	"concord-backend/internal/validator"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	playgroundValidator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const defaultAvatar = "default.webp"

func Register(w http.ResponseWriter, r *http.Request) {
	var registerErrors = make(map[string]string)

	type Registration struct {
		Email           string `json:"email" validate:"email"`
		Password        string `json:"password" validate:"eqfield=ConfirmPassword"`
		ConfirmPassword string `json:"confirmPassword"`
		Username        string `json:"username" validate:"required"`
		DisplayName     string `json:"displayName"`
		BirthDate       string `json:"birthDate"`
	}

	var registration Registration
	if err := decodeJSON(r, &registration); err != nil {
		writeError(w, err)
		return
	}

	err := validate.Struct(registration)
	if err != nil {
		var validateErrs playgroundValidator.ValidationErrors
		if errors.As(err, &validateErrs) {
			for _, e := range validateErrs {
				registerErrors[e.Field()] = e.Tag()
			}
		} else {
			sugar.Error(err)
			writeError(w, apperror.Wrap(apperror.Internal, "", err))
			return
		}
	}

	if err := validator.Username(registration.Username); err != nil {
		registerErrors["Username"] = err.Error()
	}
	if err := validator.Password(registration.Password); err != nil {
		registerErrors["Password"] = err.Error()
	}

	if len(registerErrors) != 0 {
		// sends back 400 with the form field errors
		w.WriteHeader(http.StatusBadRequest)
		encodeErr := json.NewEncoder(w).Encode(registerErrors)
		if encodeErr != nil {
			sugar.Error(encodeErr)
		}
		return
	}

	if registration.DisplayName == "" {
		registration.DisplayName = registration.Username
	}

	userID, err := snowflake.Generate()
	if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}

	passwordBytes, err := bcrypt.GenerateFromPassword([]byte(registration.Password), 12)
	if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}

	user := models.User{
		ID:          userID,
		Email:       registration.Email,
		UserName:    registration.Username,
		DisplayName: registration.DisplayName,
		Picture:     defaultAvatar,
		BirthDate:   registration.BirthDate,
		Password:    passwordBytes,
	}

	if cfg.RequireEmailConfirmation {
		// park the registration until the emailed link is visited
		token, err := uuid.NewV7()
		if err != nil {
			writeError(w, apperror.Wrap(apperror.Internal, "", err))
			return
		}

		// Password is json:"-" on the public model, carry it separately
		parked := parkedRegistration{User: user, Password: passwordBytes}

		bytes, err := json.Marshal(parked)
		if err != nil {
			writeError(w, apperror.Wrap(apperror.Internal, "", err))
			return
		}

		err = keyValue.Set(fmt.Sprintf("registration:%s", token.String()), string(bytes), 1*time.Hour)
		if err != nil {
			writeError(w, apperror.Wrap(apperror.Internal, "", err))
			return
		}

		err = email.SendEmailConfirmation(registration.Email, registration.Username, token.String())
		if err != nil {
			writeError(w, apperror.Wrap(apperror.Internal, "", err))
			return
		}

		_, err = fmt.Fprint(w, "confirm_email")
		if err != nil {
			sugar.Error(err)
		}
		return
	}

	err = insertUser(user)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, struct {
		UserID int64 `json:"userID,string"`
	}{userID})
}

func insertUser(user models.User) error {
	_, err := db.Exec("INSERT INTO users (id, email, username, display_name, picture, birth_date, password) VALUES (?, ?, ?, ?, ?, ?, ?)",
		user.ID, user.Email, user.UserName, user.DisplayName, user.Picture, user.BirthDate, user.Password)
	if err != nil {
		if apperror.IsUniqueViolation(err) {
			return apperror.New(apperror.Conflict, "Email or username is already taken")
		}
		return apperror.Wrap(apperror.Internal, "", err)
	}
	return nil
}

func Login(w http.ResponseWriter, r *http.Request) {
	type Login struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	var login Login
	if err := decodeJSON(r, &login); err != nil {
		writeError(w, err)
		return
	}

	var result struct {
		userID   int64
		username string
		picture  string
		password []byte
	}

	err := db.QueryRow("SELECT id, username, picture, password FROM users WHERE email = ?", login.Email).
		Scan(&result.userID, &result.username, &result.picture, &result.password)
	if err != nil {
		if err == sql.ErrNoRows {
			writeError(w, apperror.New(apperror.Unauthorized, "Wrong email or password"))
		} else {
			writeError(w, apperror.Wrap(apperror.Internal, "", err))
		}
		return
	}

	err = bcrypt.CompareHashAndPassword(result.password, []byte(login.Password))
	if err != nil {
		sugar.Debug(err)
		writeError(w, apperror.New(apperror.Unauthorized, "Wrong email or password"))
		return
	}

	token, err := jwt.CreateToken(r.URL.Query().Get("rememberMe") == "true", result.userID)
	if err != nil {
		writeError(w, apperror.Wrap(apperror.Internal, "", err))
		return
	}

	writeJSON(w, struct {
		AccessToken string `json:"accessToken"`
		UserID      int64  `json:"userID,string"`
		Username    string `json:"username"`
		Picture     string `json:"picture"`
	}{token, result.userID, result.username, result.picture})
}

func Me(w http.ResponseWriter, r *http.Request) {
	user, err := userByID(userID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, user)
}
