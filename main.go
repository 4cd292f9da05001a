package main

import (
	"net/http"

	nested "github.com/antonfisher/nested-logrus-formatter"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"spindle/catalog"
	appConfig "spindle/config"
	"spindle/handlers"
	"spindle/lyrics"
	"spindle/preview"
	"spindle/sentry"
	"spindle/session"
	"spindle/token"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warnf("Error loading .env file: %v", err)
	}
	appConfig.NewConfig()
	configureLogging()
	sentry.Init()

	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func configureLogging() {
	log.SetFormatter(&nested.Formatter{
		HideKeys:    true,
		FieldsOrder: []string{"module", "method"},
	})

	level, err := log.ParseLevel(appConfig.Config.Options.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func run() error {
	cfg := appConfig.Config
	if !cfg.Spotify.HasCredentials() {
		log.Warn("CLIENT_ID and CLIENT_SECRET are not set, catalog requests will fail")
	}

	tokens := token.NewCache(cfg.Spotify.ClientID, cfg.Spotify.ClientSecret)
	sessions := session.NewManager(cfg.Spotify.ClientID, cfg.Spotify.ClientSecret, cfg.Spotify.RedirectURI)
	gateway := catalog.NewGateway(preview.NewResolver(), cfg.Spotify.FallbackTrackID)
	manager := handlers.NewManager(tokens, sessions, gateway, lyrics.New())

	router := gin.Default()
	router.Use(sentry.GetSentryGin())

	router.GET("/", manager.Home)

	router.GET("/api/spotify/token", manager.GetToken)
	router.GET("/api/spotify/artist", manager.SearchArtist)
	router.GET("/api/spotify/artist/:id/albums", manager.GetArtistAlbums)
	router.GET("/api/spotify/album/:id", manager.GetAlbum)
	router.GET("/api/spotify/find-previews", manager.FindPreviews)
	router.GET("/api/lyrics", manager.GetLyrics)
	router.GET("/api/hints", manager.GetHint)

	router.GET("/auth/login", manager.Login)
	router.GET("/auth/callback", manager.Callback)
	router.POST("/auth/refresh-token", manager.RefreshToken)
	router.GET("/auth/profile", manager.GetProfile)
	router.GET("/auth/check", manager.CheckAuth)
	router.GET("/auth/logout", manager.Logout)

	// the registered redirect URI historically points at the root level
	router.GET("/callback", manager.Callback)

	port := cfg.Options.Port
	log.Infof("Starting server on :%s", port)
	return http.ListenAndServe(":"+port, router)
}
