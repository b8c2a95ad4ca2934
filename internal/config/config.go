package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Durations accept Go duration strings
// ("2m", "90s"); the defaults implement the reference sale policy of a
// two minute hold TTL swept once per minute in chunks of 100.
type Config struct {
	Env              string        // application environment (e.g. "dev", "prod")
	Port             string        // HTTP port to listen on
	DBUser           string        // database username
	DBPass           string        // database password (optional)
	DBHost           string        // database host address
	DBPort           string        // database port number
	DBName           string        // database name
	HoldTTL          time.Duration // lifetime of a newly created hold
	ReclaimInterval  time.Duration // period of the in-process expiry sweep
	ReclaimBatchSize int           // holds fetched per sweep page
}

// Load reads configuration values from environment variables and returns a
// Config.  A .env file in the working directory is merged in first when
// present.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	_ = godotenv.Load() // optional; exported env vars take precedence

	return Config{
		Env:              envStr("APP_ENV", "dev"),
		Port:             envStr("APP_PORT", "8080"),
		DBUser:           must("DB_USER"),
		DBPass:           os.Getenv("DB_PASS"), // empty allowed
		DBHost:           must("DB_HOST"),
		DBPort:           must("DB_PORT"),
		DBName:           must("DB_NAME"),
		HoldTTL:          envDur("HOLD_TTL", 2*time.Minute),
		ReclaimInterval:  envDur("RECLAIM_INTERVAL", time.Minute),
		ReclaimBatchSize: envInt("RECLAIM_BATCH_SIZE", 100),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
