package handlers

import (
	"concord-backend/internal/apperror"
	"concord-backend/internal/jwt"
	"concord-backend/internal/keyValue"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type UserIDKeyType struct{}

func AllowCors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// UserVerifier resolves the bearer token to a user ID and passes it to
// the next handler through the request context. Every identity-scoped
// route sits behind this.
func UserVerifier(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, apperror.New(apperror.Unauthorized, "No credentials were provided"))
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		userToken, err := jwt.VerifyToken(tokenString)
		if err != nil {
			sugar.Debug(err)
			writeError(w, apperror.New(apperror.Unauthorized, "Couldn't verify token"))
			return
		}

		if time.Now().UTC().After(userToken.ExpiresAt.UTC()) {
			writeError(w, apperror.New(apperror.Unauthorized, "Login expired"))
			return
		}

		// check if user still exists, cached so this doesn't cost a
		// database round trip on every request
		key := fmt.Sprintf("user_exists:%d", userToken.UserID)

		userFound := false

		value, err := keyValue.Get(key)
		if err != nil {
			sugar.Error(err)
			writeError(w, apperror.Wrap(apperror.Internal, "", err))
			return
		}

		if value == "" { // user isn't cached
			dbErr := db.QueryRow("SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)", userToken.UserID).Scan(&userFound)
			if dbErr != nil {
				sugar.Error(dbErr)
				writeError(w, apperror.Wrap(apperror.Internal, "", dbErr))
				return
			}
			if userFound {
				err = keyValue.Set(key, "y", 15*time.Minute)
				if err != nil {
					sugar.Error(err)
					writeError(w, apperror.Wrap(apperror.Internal, "", err))
					return
				}
			}
		} else {
			userFound = true
		}

		// token can outlive a deleted account
		if !userFound {
			writeError(w, apperror.New(apperror.Unauthorized, ""))
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKeyType{}, userToken.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
