package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr         string
	CORSOrigin       string
	GracePeriod      time.Duration
	BattleStartDelay time.Duration
	PokeAPIBaseURL   string
	RecordsFile      string
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getenvMillis(key string, def int) time.Duration {
	return time.Duration(getenvInt(key, def)) * time.Millisecond
}

func Load() Config {
	_ = godotenv.Load()

	return Config{
		HTTPAddr:         getenv("HTTP_ADDR", ":"+getenv("PORT", "4000")),
		CORSOrigin:       getenv("CORS_ORIGIN", "http://localhost:3000"),
		GracePeriod:      getenvMillis("GRACE_PERIOD_MS", 5000),
		BattleStartDelay: getenvMillis("BATTLE_START_DELAY_MS", 2000),
		PokeAPIBaseURL:   getenv("POKEAPI_BASE_URL", "https://pokeapi.co/api/v2"),
		RecordsFile:      getenv("BATTLE_RECORDS_FILE", "battles.jsonl"),
	}
}
