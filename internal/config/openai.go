package config

import "github.com/rs/zerolog/log"

// GetOpenAIKey returns the current OpenAI key
func GetOpenAIKey() string {
	value := GetEnvOrDefault("OPENAI_KEY", "")
	if value == "" {
		log.Fatal().Msg("OPENAI_KEY environment variable not set")
	}
	return value
}

// GetAssistantID returns the id of the hosted assistant every run executes against
func GetAssistantID() string {
	value := GetEnvOrDefault("ASSISTANT_ID", "")
	if value == "" {
		log.Fatal().Msg("ASSISTANT_ID environment variable not set")
	}
	return value
}

// GetAssistantName returns the display name used as the author of assistant messages
func GetAssistantName() string {
	return GetEnvOrDefault("ASSISTANT_NAME", "Hematology Assistant")
}
