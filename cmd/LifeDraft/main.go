package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BTreeMap/LifeDraft/internal/api"
	"github.com/BTreeMap/LifeDraft/internal/audio"
	"github.com/BTreeMap/LifeDraft/internal/followup"
	"github.com/BTreeMap/LifeDraft/internal/genai"
	"github.com/BTreeMap/LifeDraft/internal/lockfile"
	"github.com/BTreeMap/LifeDraft/internal/messaging"
	"github.com/BTreeMap/LifeDraft/internal/pipeline"
	"github.com/BTreeMap/LifeDraft/internal/scheduler"
	"github.com/BTreeMap/LifeDraft/internal/store"
	"github.com/BTreeMap/LifeDraft/internal/util"
	"github.com/joho/godotenv"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for LifeDraft state data
	DefaultStateDir = "/var/lib/lifedraft"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "lifedraft.db"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Utility mode: play a saved narration payload locally and exit
	if *flags.playFile != "" {
		if err := runPlayback(*flags.playFile); err != nil {
			slog.Error("Narration playback failed", "error", err, "file", *flags.playFile)
			os.Exit(1)
		}
		return
	}

	// Ensure required directories exist
	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	slog.Info("Bootstrapping LifeDraft with configured modules")
	if err := run(flags); err != nil {
		slog.Error("LifeDraft failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("LifeDraft exited successfully")
}

func run(flags Flags) error {
	ctx := context.Background()

	gen, err := genai.NewClient(ctx, buildGenAIOptions(flags)...)
	if err != nil {
		return err
	}

	lock, err := lockfile.AcquireLock(*flags.stateDir)
	if err != nil {
		return err
	}
	defer lock.Release()

	st, err := openStore(flags)
	if err != nil {
		return err
	}
	defer st.Close()

	sender := buildSender(flags)

	sched := scheduler.NewScheduler()
	defer sched.Stop()

	agent := followup.NewAgent(st, sender, followup.WithRecipient(*flags.reminderTo))
	if err := agent.Start(sched, followup.DefaultScanSchedule); err != nil {
		return err
	}

	orch := pipeline.New(gen)
	server := api.NewServer(orch, st, agent, buildAPIOptions(flags)...)
	return server.Run()
}

// Config holds environment configuration
type Config struct {
	DbDriver    string
	DatabaseURL string
	StateDir    string
	GeminiKey   string
	APIAddr     string
	TwilioSID   string
	TwilioToken string
	TwilioFrom  string
	ReminderTo  string
}

// Flags holds command line flag values
type Flags struct {
	stateDir    *string
	dbDriver    *string
	dbDSN       *string
	geminiKey   *string
	apiAddr     *string
	twilioSID   *string
	twilioToken *string
	twilioFrom  *string
	reminderTo  *string
	playFile    *string
}

// initializeLogger sets up structured logging; $LIFEDRAFT_DEBUG raises the
// level to debug
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("LIFEDRAFT_DEBUG", false) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DbDriver:    os.Getenv("LIFEDRAFT_DB_DRIVER"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		StateDir:    os.Getenv("LIFEDRAFT_STATE_DIR"),
		GeminiKey:   os.Getenv("GEMINI_API_KEY"),
		APIAddr:     os.Getenv("API_ADDR"),
		TwilioSID:   os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioToken: os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFrom:  os.Getenv("TWILIO_FROM_NUMBER"),
		ReminderTo:  os.Getenv("REMINDER_TO_NUMBER"),
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No LIFEDRAFT_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"LIFEDRAFT_DB_DRIVER", config.DbDriver,
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"LIFEDRAFT_STATE_DIR", config.StateDir,
		"GEMINI_API_KEY_SET", config.GeminiKey != "",
		"API_ADDR", config.APIAddr,
		"TWILIO_CONFIGURED", config.TwilioSID != "" && config.TwilioToken != "" && config.TwilioFrom != "")

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:    flag.String("state-dir", config.StateDir, "state directory for LifeDraft data (overrides $LIFEDRAFT_STATE_DIR)"),
		dbDriver:    flag.String("db-driver", config.DbDriver, "database driver: sqlite3 or postgres (overrides $LIFEDRAFT_DB_DRIVER)"),
		dbDSN:       flag.String("db-dsn", config.DatabaseURL, "database DSN (overrides $DATABASE_URL)"),
		geminiKey:   flag.String("gemini-api-key", config.GeminiKey, "Gemini API key (overrides $GEMINI_API_KEY)"),
		apiAddr:     flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		twilioSID:   flag.String("twilio-account-sid", config.TwilioSID, "Twilio account SID (overrides $TWILIO_ACCOUNT_SID)"),
		twilioToken: flag.String("twilio-auth-token", config.TwilioToken, "Twilio auth token (overrides $TWILIO_AUTH_TOKEN)"),
		twilioFrom:  flag.String("twilio-from", config.TwilioFrom, "Twilio from number (overrides $TWILIO_FROM_NUMBER)"),
		reminderTo:  flag.String("reminder-to", config.ReminderTo, "number follow-up reminders are sent to (overrides $REMINDER_TO_NUMBER)"),
		playFile:    flag.String("play", "", "play a saved narration payload (base64 PCM file) on the system audio output and exit"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDriver", *flags.dbDriver,
		"dbDSN_set", *flags.dbDSN != "",
		"geminiKeySet", *flags.geminiKey != "",
		"apiAddr", *flags.apiAddr)

	// Update database DSN if not explicitly set but state directory is provided
	if *flags.dbDSN == config.DatabaseURL && config.DatabaseURL == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "new_state_dir", *flags.stateDir)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if !strings.Contains(*flags.dbDSN, "postgres://") && !strings.Contains(*flags.dbDSN, "host=") {
		stateDir := filepath.Dir(*flags.dbDSN)
		slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
		if err := os.MkdirAll(stateDir, 0755); err != nil {
			slog.Error("Failed to create state directory", "error", err, "state_dir", stateDir)
			return err
		}
	}
	return nil
}

// openStore selects the storage backend from the configured driver and DSN.
func openStore(flags Flags) (store.Store, error) {
	driver := *flags.dbDriver
	dsn := *flags.dbDSN
	if driver == "" {
		if strings.Contains(dsn, "postgres://") || strings.Contains(dsn, "host=") {
			driver = "postgres"
		} else {
			driver = "sqlite3"
		}
	}
	slog.Debug("Opening store", "driver", driver, "dsn_set", dsn != "")
	if driver == "postgres" {
		return store.NewPostgresStore(store.WithDSN(dsn))
	}
	return store.NewSQLiteStore(store.WithDSN(dsn))
}

// runPlayback decodes a saved /speak payload and plays it on the system
// audio output, blocking until the narration finishes.
func runPlayback(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	buf, err := audio.DecodeBase64PCM(strings.TrimSpace(string(payload)), audio.DefaultSampleRate, 1)
	if err != nil {
		return err
	}
	slog.Info("Playing narration", "duration", buf.Duration())
	session := audio.NewController(audio.NewOtoDevice()).Play(context.Background(), buf, nil)
	if session == nil {
		return errors.New("playback did not start")
	}
	<-session.Done()
	return nil
}

// buildGenAIOptions constructs generative client configuration options
func buildGenAIOptions(flags Flags) []genai.Option {
	var opts []genai.Option
	if *flags.geminiKey != "" {
		opts = append(opts, genai.WithAPIKey(*flags.geminiKey))
	}
	return opts
}

// buildSender selects the reminder sender: Twilio when fully configured,
// otherwise the logging no-op sender.
func buildSender(flags Flags) messaging.Sender {
	if *flags.twilioSID != "" && *flags.twilioToken != "" && *flags.twilioFrom != "" {
		sender, err := messaging.NewTwilioSender(
			messaging.WithAccountSID(*flags.twilioSID),
			messaging.WithAuthToken(*flags.twilioToken),
			messaging.WithFromNumber(*flags.twilioFrom),
		)
		if err == nil {
			slog.Info("Twilio reminder sender configured")
			return sender
		}
		slog.Error("Failed to configure Twilio sender, falling back to no-op", "error", err)
	}
	return messaging.NoopSender{}
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var opts []api.Option
	if *flags.apiAddr != "" {
		opts = append(opts, api.WithAddr(*flags.apiAddr))
	}
	return opts
}
