package cmd

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	globalConfig "github.com/pressgen/pressgen/config"
	coreDB "github.com/pressgen/pressgen/core/database"
	settingsApp "github.com/pressgen/pressgen/core/settings/application"
	"github.com/pressgen/pressgen/domains/content"
	domainHealth "github.com/pressgen/pressgen/domains/health"
	domainSchedule "github.com/pressgen/pressgen/domains/schedule"
	"github.com/pressgen/pressgen/integrations/gemini"
	"github.com/pressgen/pressgen/integrations/openai"
	"github.com/pressgen/pressgen/integrations/wordpress"
	"github.com/pressgen/pressgen/pkg/runworker"
	"github.com/pressgen/pressgen/pkg/utils"
	"github.com/pressgen/pressgen/repository"
	"github.com/pressgen/pressgen/scheduler"
	uiRest "github.com/pressgen/pressgen/ui/rest"
	"github.com/pressgen/pressgen/ui/websocket"
	"github.com/pressgen/pressgen/usecase"
)

var (
	settingsService *settingsApp.SettingsService
	scheduleUsecase domainSchedule.IScheduleUsecase
	healthUsecase   domainHealth.IHealthUsecase

	generator content.Generator
	publisher content.Publisher

	runPool *runworker.RunWorkerPool
	poller  *scheduler.Poller
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Short: "Scheduled AI content generation and publishing",
	Long: `Pressgen generates blog articles with a generative language model and
publishes them to a WordPress site on a recurring schedule.`,
}

func init() {
	// Load environment variables first
	utils.LoadConfig(".")

	time.Local = time.UTC

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	initFlags()

	cobra.OnInitialize(initEnvConfig, initApp)
}

// initEnvConfig loads configuration from environment variables
func initEnvConfig() {
	// Application settings
	if envPort := viper.GetString("app_port"); envPort != "" {
		globalConfig.AppPort = envPort
	}
	if envDebug := viper.GetBool("app_debug"); envDebug {
		globalConfig.AppDebug = envDebug
	}
	envBasicAuth := viper.GetString("app_basic_auth")
	if envBasicAuth == "" {
		envBasicAuth = os.Getenv("APP_BASIC_AUTH")
	}
	if envBasicAuth != "" {
		credential := strings.Split(envBasicAuth, ",")
		globalConfig.AppBasicAuthCredential = credential
	}
	if envBasePath := viper.GetString("app_base_path"); envBasePath != "" {
		globalConfig.AppBasePath = envBasePath
	}
	if envTrustedProxies := viper.GetString("app_trusted_proxies"); envTrustedProxies != "" {
		globalConfig.AppTrustedProxies = strings.Split(envTrustedProxies, ",")
	}

	// Database settings
	if envDriver := viper.GetString("db_driver"); envDriver != "" {
		globalConfig.DBDriver = envDriver
	}
	if envName := viper.GetString("db_name"); envName != "" {
		globalConfig.DBName = envName
	}
	if envHost := viper.GetString("db_host"); envHost != "" {
		globalConfig.DBHost = envHost
	}
	if viper.IsSet("db_port") {
		globalConfig.DBPort = viper.GetInt("db_port")
	}
	if envUser := viper.GetString("db_user"); envUser != "" {
		globalConfig.DBUser = envUser
	}
	if envPassword := viper.GetString("db_password"); envPassword != "" {
		globalConfig.DBPassword = envPassword
	}
}

func initFlags() {
	// Application flags
	rootCmd.PersistentFlags().StringVarP(
		&globalConfig.AppPort,
		"port", "p",
		globalConfig.AppPort,
		"change port number with --port <number> | example: --port=8080",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&globalConfig.AppDebug,
		"debug", "d",
		globalConfig.AppDebug,
		"hide or displaying log with --debug <true/false> | example: --debug=true",
	)
	rootCmd.PersistentFlags().StringSliceVarP(
		&globalConfig.AppBasicAuthCredential,
		"basic-auth", "b",
		globalConfig.AppBasicAuthCredential,
		"basic auth credential | -b=yourUsername:yourPassword",
	)
	rootCmd.PersistentFlags().StringVarP(
		&globalConfig.AppBasePath,
		"base-path", "",
		globalConfig.AppBasePath,
		`base path for subpath deployment --base-path <string> | example: --base-path="/pressgen"`,
	)
	rootCmd.PersistentFlags().StringSliceVarP(
		&globalConfig.AppTrustedProxies,
		"trusted-proxies", "",
		globalConfig.AppTrustedProxies,
		`trusted proxy IP ranges for reverse proxy deployments --trusted-proxies <string> | example: --trusted-proxies="10.0.0.0/8,172.16.0.0/12"`,
	)

	// Scheduler flags
	rootCmd.PersistentFlags().DurationVarP(
		&globalConfig.SchedulerPollInterval,
		"poll-interval", "",
		globalConfig.SchedulerPollInterval,
		`how often the poller wakes up --poll-interval <duration> | example: --poll-interval=30s`,
	)
	rootCmd.PersistentFlags().IntVarP(
		&globalConfig.RunWorkerPoolSize,
		"run-workers", "",
		globalConfig.RunWorkerPoolSize,
		`number of concurrent content run workers --run-workers <number> | example: --run-workers=8`,
	)
	rootCmd.PersistentFlags().IntVarP(
		&globalConfig.RunWorkerQueueSize,
		"run-queue-size", "",
		globalConfig.RunWorkerQueueSize,
		`queue size per run worker --run-queue-size <number> | example: --run-queue-size=32`,
	)
}

func initApp() {
	if globalConfig.AppDebug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if err := utils.CreateFolder(globalConfig.PathStorages); err != nil {
		logrus.Errorln(err)
	}

	ctx := context.Background()

	db, err := coreDB.NewDatabase()
	if err != nil {
		logrus.Fatalf("failed to open database: %v", err)
	}

	scheduleRepo := repository.NewGormScheduleRepository(db)
	if err := scheduleRepo.Init(ctx); err != nil {
		logrus.Fatalf("failed to init schedule repository: %v", err)
	}

	settingsService = settingsApp.NewSettingsService(db)
	if err := settingsService.Init(ctx); err != nil {
		logrus.Fatalf("failed to init settings: %v", err)
	}

	systemPrompt := func(ctx context.Context) string {
		settings, err := settingsService.GetDynamicSettings(ctx)
		if err != nil {
			return ""
		}
		return settings.AIGlobalSystemPrompt
	}

	switch strings.ToLower(globalConfig.AIProvider) {
	case "openai":
		g := openai.NewGenerator(globalConfig.OpenAIAPIKey, globalConfig.OpenAIModel)
		g.SystemPrompt = systemPrompt
		generator = g
	default:
		g := gemini.NewGenerator(globalConfig.GeminiAPIKey, globalConfig.GeminiModel)
		g.SystemPrompt = systemPrompt
		generator = g
	}

	publisher = wordpress.NewClient(
		globalConfig.WordpressBaseURL,
		globalConfig.WordpressUsername,
		globalConfig.WordpressAppPassword,
	)

	runPool = runworker.NewRunWorkerPool(globalConfig.RunWorkerPoolSize, globalConfig.RunWorkerQueueSize)
	runPool.Start(ctx)
	uiRest.SetRunWorkerPool(runPool)

	scheduleUsecase = usecase.NewScheduleService(
		scheduleRepo,
		generator,
		publisher,
		settingsService,
		runPool,
		func(sched domainSchedule.Schedule) {
			websocket.BroadcastScheduleUpdate(sched)
		},
	)

	poller = scheduler.NewPoller(scheduleUsecase, runPool, globalConfig.SchedulerPollInterval)

	healthUsecase = usecase.NewHealthService(db, publisher)
	healthUsecase.StartPeriodicChecks(ctx)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// StopApp performs a clean shutdown of the scheduler and its workers.
func StopApp() {
	logrus.Info("[APP] Stopping application...")

	if poller != nil {
		poller.Stop()
	}
	if runPool != nil {
		runPool.Stop()
	}

	logrus.Info("[APP] Application stopped cleanly.")
}
