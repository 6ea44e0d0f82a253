package handlers

import (
	"concord-backend/internal/models"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var sugar *zap.SugaredLogger
var db *sql.DB
var cfg *models.ConfigFile

var validate = validator.New()

func Setup(_cfg *models.ConfigFile, _sugar *zap.SugaredLogger, _db *sql.DB) *chi.Mux {
	cfg = _cfg
	sugar = _sugar
	db = _db

	r := chi.NewRouter()

	if cfg.Cors {
		r.Use(AllowCors)
	}

	if cfg.PrintHttpRequests {
		r.Use(middleware.Logger)
	}

	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/api", func(api chi.Router) {
		api.Get("/test", Test)

		api.Route("/auth", func(r chi.Router) {
			r.Post("/register", Register)
			r.Post("/login", Login)
			r.With(UserVerifier).Get("/me", Me)
		})

		api.Route("/profile", func(r chi.Router) {
			r.Use(UserVerifier)
			r.Patch("/update_username", UpdateUsername)
			r.Patch("/update_display_name", UpdateDisplayName)
			r.Patch("/update_avatar", UpdateAvatar)
			r.Patch("/update_email", UpdateEmail)
			r.Patch("/update_password", UpdatePassword)
			r.Post("/upload_avatar", UploadAvatar)
		})

		api.Route("/friends", func(r chi.Router) {
			r.Use(UserVerifier)
			r.Post("/request", SendFriendRequest)
			r.Patch("/respond", RespondToFriendRequest)
			r.Get("/friendsList", GetFriendsList)
			r.Get("/requests", GetFriendRequests)
			r.Delete("/cancel-request/{requestID}", CancelFriendRequest)
			r.Delete("/remove/{friendID}", RemoveFriend)
			r.Get("/{userID}", GetPublicProfile)
		})

		api.Route("/servers", func(r chi.Router) {
			r.Use(UserVerifier)
			r.Post("/", CreateServer)
			r.Get("/my-servers", GetMyServers)

			r.Get("/invites/received", GetReceivedInvites)
			r.Get("/invites/sent", GetSentInvites)
			r.Post("/invites/{inviteID}/respond", RespondToInvite)
			r.Delete("/invites/{inviteID}", CancelInvite)

			r.Route("/{serverID}", func(r chi.Router) {
				r.Get("/", GetServer)
				r.Delete("/", DeleteServer)
				r.Post("/invites", CreateInvite)

				r.Get("/channels", GetChannelList)
				r.Post("/channels", CreateChannel)
				r.Delete("/channels/{channelID}", DeleteChannel)

				r.Route("/voicechannels/{channelID}", func(r chi.Router) {
					r.Post("/join", JoinVoice)
					r.Post("/leave", LeaveVoice)
					r.Post("/heartbeat", VoiceHeartbeat)
					r.Get("/members", GetVoiceMembers)
				})
			})
		})

		api.Route("/email", func(r chi.Router) {
			r.Get("/confirm", ConfirmEmail)
		})
	})

	if !cfg.BehindNginx {
		r.Handle("/cdn/*", http.StripPrefix("/cdn/", http.FileServer(http.Dir("./public"))))
	}

	return r
}
