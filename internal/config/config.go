package config

import "os"

type Config struct {
	Addr            string
	DBPath          string
	TrackerEndpoint string
}

func Default() Config {
	return Config{
		Addr:   envOr("ANIBRIDGE_ADDR", "127.0.0.1:8080"),
		DBPath: envOr("ANIBRIDGE_DB_PATH", "anibridge.db"),
		// Vide = endpoint AniList par défaut du TrackerService.
		TrackerEndpoint: envOr("ANIBRIDGE_TRACKER_ENDPOINT", ""),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
