package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Mode string

const (
	ModeLocal Mode = "local"
	ModeGCP   Mode = "gcp"
)

// InteractionFailMode controls what happens when the interaction-check
// collaborator itself fails: "open" continues with the refill (mirrors the
// original phone line), "closed" refuses it until the check can run.
type InteractionFailMode string

const (
	FailOpen   InteractionFailMode = "open"
	FailClosed InteractionFailMode = "closed"
)

type Config struct {
	Mode Mode

	Port string

	GCPProjectID string
	GCPLocation  string
	ModelName    string

	StorageBackend string // "memory" o "firestore"
	UseMockLLM     bool   // true = use mock even on GCP

	DeepgramAPIKey   string
	ElevenLabsAPIKey string
	TTSVoiceID       string

	SessionTimeout time.Duration
	SweepInterval  time.Duration

	InteractionFailMode InteractionFailMode

	// Minimum bytes a flushed utterance must have before it is worth
	// sending to the STT collaborator.
	MinUtteranceBytes int

	PickupWindow time.Duration
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if v == "1" || v == "true" || v == "TRUE" {
		return true
	}
	return false
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("invalid duration for %s: %q, using default", key, v)
		return def
	}
	return d
}

func getIntEnv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Load reads all env vars and builds the config
func Load() *Config {
	modeStr := getEnv("RXVOICE_MODE", "local")
	var mode Mode
	switch modeStr {
	case "gcp":
		mode = ModeGCP
	default:
		mode = ModeLocal
	}

	failMode := FailOpen
	if getEnv("RXVOICE_INTERACTION_FAIL_MODE", "open") == "closed" {
		failMode = FailClosed
	}

	cfg := &Config{
		Mode: mode,

		Port: getEnv("RXVOICE_PORT", "8080"),

		GCPProjectID: getEnv("RXVOICE_GCP_PROJECT", ""),
		GCPLocation:  getEnv("RXVOICE_GCP_LOCATION", "us-central1"),
		ModelName:    getEnv("RXVOICE_MODEL_NAME", "gemini-2.5-flash-lite"),

		StorageBackend: getEnv("RXVOICE_STORAGE_BACKEND", "memory"),
		UseMockLLM:     getBoolEnv("RXVOICE_USE_MOCK_LLM", mode == ModeLocal),

		DeepgramAPIKey:   getEnv("RXVOICE_DEEPGRAM_API_KEY", ""),
		ElevenLabsAPIKey: getEnv("RXVOICE_ELEVENLABS_API_KEY", ""),
		TTSVoiceID:       getEnv("RXVOICE_TTS_VOICE_ID", "21m00Tcm4TlvDq8ikWAM"),

		SessionTimeout: getDurationEnv("RXVOICE_SESSION_TIMEOUT", 5*time.Minute),
		SweepInterval:  getDurationEnv("RXVOICE_SWEEP_INTERVAL", time.Minute),

		InteractionFailMode: failMode,

		MinUtteranceBytes: getIntEnv("RXVOICE_MIN_UTTERANCE_BYTES", 1600),

		PickupWindow: getDurationEnv("RXVOICE_PICKUP_WINDOW", 2*time.Hour),
	}

	// Minimal validation in GCP mode
	if cfg.Mode == ModeGCP && cfg.GCPProjectID == "" {
		log.Fatal("RXVOICE_GCP_PROJECT must be set in gcp mode")
	}

	return cfg
}
