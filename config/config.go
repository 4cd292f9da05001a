package config

import (
	"os"
	"strconv"
)

type ConfigStruct struct {
	Spotify SpotifyConfig
	Options Options
}

type SpotifyConfig struct {
	ClientID        string
	ClientSecret    string
	RedirectURI     string
	FallbackTrackID string
}

type Options struct {
	Port     string
	LogLevel string
}

func (s *SpotifyConfig) HasCredentials() bool {
	return s.ClientID != "" && s.ClientSecret != ""
}

var Config *ConfigStruct

func NewConfig() {
	config := &ConfigStruct{
		Spotify: SpotifyConfig{
			ClientID:        os.Getenv("CLIENT_ID"),
			ClientSecret:    os.Getenv("CLIENT_SECRET"),
			RedirectURI:     getRedirectURI(),
			FallbackTrackID: getFallbackTrackID(),
		},
		Options: Options{
			Port:     getPort(),
			LogLevel: os.Getenv("LOG_LEVEL"),
		},
	}

	Config = config
}

func getPort() string {
	portStr := os.Getenv("PORT")
	if portStr == "" {
		return "3000"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "3000"
	}
	return portStr
}

func getRedirectURI() string {
	uri := os.Getenv("REDIRECT_URI")
	if uri == "" {
		return "http://localhost:3000/callback"
	}
	return uri
}

func getFallbackTrackID() string {
	id := os.Getenv("FALLBACK_TRACK_ID")
	if id == "" {
		// the track whose embed page backs the synthetic preview result
		return "4uLU6hMCjMI75M1A2tKUQC"
	}
	return id
}
