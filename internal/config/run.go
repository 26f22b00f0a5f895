package config

import (
	"time"

	"github.com/rs/zerolog/log"
)

// GetRunPollInterval returns the delay between run status polls
func GetRunPollInterval() time.Duration {
	return getDuration("RUN_POLL_INTERVAL", 2*time.Second)
}

// GetRunPollTimeout returns the deadline after which a run that never reaches
// a terminal status is abandoned
func GetRunPollTimeout() time.Duration {
	return getDuration("RUN_POLL_TIMEOUT", 10*time.Minute)
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := GetEnvOrDefault(key, defaultValue.String())
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		log.Warn().Str("key", key).Str("value", raw).Dur("default", defaultValue).Msg("Invalid duration value, using default")
		return defaultValue
	}
	return value
}
