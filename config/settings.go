package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

var (
	AppVersion             = "v1.0.0"
	AppPort                = "3000"
	AppDebug               = false
	AppBasicAuthCredential []string
	AppBasePath            = ""
	AppTrustedProxies      []string

	PathStorages = "storages"

	// Database settings. Driver is sqlite or postgres; Name is the file path
	// for sqlite and the database name for postgres.
	DBDriver   = "sqlite"
	DBName     = "storages/pressgen.db"
	DBHost     = "localhost"
	DBPort     = 5432
	DBUser     = ""
	DBPassword = ""

	// Generation settings.
	AIProvider   = "gemini" // gemini | openai
	GeminiAPIKey string
	GeminiModel  = "gemini-2.5-flash"
	OpenAIAPIKey string
	OpenAIModel  = "gpt-4o-mini"

	// CMS settings (WordPress REST API).
	WordpressBaseURL     string
	WordpressUsername    string
	WordpressAppPassword string

	// Scheduler settings.
	SchedulerPollInterval    = 1 * time.Minute
	SchedulerSuccessCooldown = 3 * time.Second
	SchedulerFailureCooldown = 10 * time.Second
	SchedulerRunTimeout      = 2 * time.Minute
	RunWorkerPoolSize        = 4
	RunWorkerQueueSize       = 16
)

func init() {
	if v := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); v != "" {
		GeminiAPIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("GEMINI_MODEL")); v != "" {
		GeminiModel = v
	}
	if v := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); v != "" {
		OpenAIAPIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("OPENAI_MODEL")); v != "" {
		OpenAIModel = v
	}
	if v := strings.TrimSpace(os.Getenv("AI_PROVIDER")); v != "" {
		AIProvider = strings.ToLower(v)
	}

	if v := strings.TrimSpace(os.Getenv("WORDPRESS_BASE_URL")); v != "" {
		WordpressBaseURL = strings.TrimRight(v, "/")
	}
	if v := strings.TrimSpace(os.Getenv("WORDPRESS_USERNAME")); v != "" {
		WordpressUsername = v
	}
	if v := strings.TrimSpace(os.Getenv("WORDPRESS_APP_PASSWORD")); v != "" {
		WordpressAppPassword = v
	}

	if v := strings.TrimSpace(os.Getenv("SCHEDULER_POLL_INTERVAL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			SchedulerPollInterval = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("SCHEDULER_SUCCESS_COOLDOWN")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			SchedulerSuccessCooldown = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("SCHEDULER_FAILURE_COOLDOWN")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			SchedulerFailureCooldown = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("SCHEDULER_RUN_TIMEOUT")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			SchedulerRunTimeout = d
		}
	}
	if v := os.Getenv("RUN_WORKER_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			RunWorkerPoolSize = n
		}
	}
	if v := os.Getenv("RUN_WORKER_QUEUE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			RunWorkerQueueSize = n
		}
	}
}
