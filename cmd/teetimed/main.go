package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/MarkoPoloResearchLab/teetime/internal/config"
	"github.com/MarkoPoloResearchLab/teetime/internal/dataapi"
	"github.com/MarkoPoloResearchLab/teetime/internal/httpapi"
	"github.com/MarkoPoloResearchLab/teetime/internal/notify"
	"github.com/MarkoPoloResearchLab/teetime/internal/oplog"
	"github.com/MarkoPoloResearchLab/teetime/internal/slotlock"
	"github.com/MarkoPoloResearchLab/teetime/internal/store/datastore"
	"github.com/MarkoPoloResearchLab/teetime/internal/store/gormstore"
	"github.com/MarkoPoloResearchLab/teetime/internal/store/pgstore"
	"github.com/MarkoPoloResearchLab/teetime/pkg/booking"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const envPrefix = "TEETIME"

const (
	flagListenAddr        = "listen-addr"
	flagAllowedOrigins    = "allowed-origins"
	flagDevelopment       = "development"
	flagTimezone          = "timezone"
	flagStoreBackend      = "store"
	flagDataAPIURL        = "data-api-url"
	flagDataAPIKey        = "data-api-key"
	flagDataAPIKeyHeader  = "data-api-key-header"
	flagDataAPIReadTime   = "data-api-read-timeout"
	flagDataAPIWriteTime  = "data-api-write-timeout"
	flagDataAPIRate       = "data-api-rate"
	flagDataAPIBurst      = "data-api-burst"
	flagDatabaseURL       = "database-url"
	flagAutoMigrate       = "auto-migrate"
	flagLockBackend       = "lock"
	flagLockTTL           = "lock-ttl"
	flagLockDatabaseURL   = "lock-database-url"
	flagRedisAddr         = "redis-addr"
	flagRedisPassword     = "redis-password"
	flagRedisDB           = "redis-db"
	flagFirebaseCreds     = "firebase-credentials"
	flagNotifyTopicPrefix = "notify-topic-prefix"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "teetimed: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &config.Config{}
	cmd := &cobra.Command{
		Use:           "teetimed",
		Short:         "Golf reservation availability and ledger server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}

	flags := cmd.Flags()
	flags.String(flagListenAddr, ":8080", "HTTP listen address")
	flags.String(flagAllowedOrigins, "", "comma-separated CORS origins")
	flags.Bool(flagDevelopment, false, "human-readable logs")
	flags.String(flagTimezone, "Asia/Seoul", "branch wall clock timezone")
	flags.String(flagStoreBackend, config.StoreDataAPI, "store backend: dataapi or database")
	flags.String(flagDataAPIURL, "", "external data API endpoint")
	flags.String(flagDataAPIKey, "", "external data API key")
	flags.String(flagDataAPIKeyHeader, "X-Api-Key", "header carrying the data API key")
	flags.Duration(flagDataAPIReadTime, 10*time.Second, "data API read timeout")
	flags.Duration(flagDataAPIWriteTime, 30*time.Second, "data API write timeout")
	flags.Float64(flagDataAPIRate, 20, "data API requests per second")
	flags.Int(flagDataAPIBurst, 10, "data API burst")
	flags.String(flagDatabaseURL, "", "database url (postgres://, mysql://, sqlite://)")
	flags.Bool(flagAutoMigrate, false, "create or update tables on start")
	flags.String(flagLockBackend, config.LockNone, "commit lock: none, redis or postgres")
	flags.Duration(flagLockTTL, 30*time.Second, "redis lock ttl")
	flags.String(flagLockDatabaseURL, "", "postgres url for advisory locks")
	flags.String(flagRedisAddr, "", "redis address")
	flags.String(flagRedisPassword, "", "redis password")
	flags.Int(flagRedisDB, 0, "redis database")
	flags.String(flagFirebaseCreds, "", "Firebase service account file")
	flags.String(flagNotifyTopicPrefix, "", "FCM topic prefix")

	return cmd
}

// loadConfig reads flags, falling back to TEETIME_* environment variables.
func loadConfig(cmd *cobra.Command, cfg *config.Config) error {
	settings := viper.New()
	settings.SetEnvPrefix(envPrefix)
	settings.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	settings.AutomaticEnv()
	if err := settings.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	cfg.ListenAddr = settings.GetString(flagListenAddr)
	cfg.AllowedOrigins = config.ParseAllowedOrigins(settings.GetString(flagAllowedOrigins))
	cfg.Development = settings.GetBool(flagDevelopment)
	cfg.Timezone = settings.GetString(flagTimezone)
	cfg.StoreBackend = settings.GetString(flagStoreBackend)
	cfg.DataAPIURL = settings.GetString(flagDataAPIURL)
	cfg.DataAPIKey = settings.GetString(flagDataAPIKey)
	cfg.DataAPIKeyHeader = settings.GetString(flagDataAPIKeyHeader)
	cfg.DataAPIReadTimeout = settings.GetDuration(flagDataAPIReadTime)
	cfg.DataAPIWriteTimeout = settings.GetDuration(flagDataAPIWriteTime)
	cfg.DataAPIRatePerSecond = settings.GetFloat64(flagDataAPIRate)
	cfg.DataAPIBurst = settings.GetInt(flagDataAPIBurst)
	cfg.DatabaseURL = settings.GetString(flagDatabaseURL)
	cfg.AutoMigrate = settings.GetBool(flagAutoMigrate)
	cfg.LockBackend = settings.GetString(flagLockBackend)
	cfg.LockTTL = settings.GetDuration(flagLockTTL)
	cfg.LockDatabaseURL = settings.GetString(flagLockDatabaseURL)
	cfg.RedisAddr = settings.GetString(flagRedisAddr)
	cfg.RedisPassword = settings.GetString(flagRedisPassword)
	cfg.RedisDB = settings.GetInt(flagRedisDB)
	cfg.FirebaseCredentialsFile = settings.GetString(flagFirebaseCreds)
	cfg.NotifyTopicPrefix = settings.GetString(flagNotifyTopicPrefix)

	return cfg.Validate()
}

func runServer(ctx context.Context, cfg *config.Config) error {
	logger, err := oplog.NewLogger(cfg.Development)
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	options := []booking.ServiceOption{booking.WithOperationLogger(oplog.New(logger))}

	locker, closeLocker, err := openLocker(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLocker()
	if locker != nil {
		options = append(options, booking.WithSlotLocker(locker))
	}

	if cfg.NotificationsEnabled() {
		messagingClient, err := notify.NewMessagingClient(ctx, cfg.FirebaseCredentialsFile)
		if err != nil {
			return fmt.Errorf("firebase init: %w", err)
		}
		notifier, err := notify.NewFCMNotifier(messagingClient, cfg.NotifyTopicPrefix)
		if err != nil {
			return err
		}
		options = append(options, booking.WithNotifier(notifier))
	}

	location := cfg.Location()
	clock := func() time.Time { return time.Now().In(location) }
	service, err := booking.NewService(store, clock, options...)
	if err != nil {
		return fmt.Errorf("booking service init: %w", err)
	}

	handler, err := httpapi.NewHandler(service, logger)
	if err != nil {
		return err
	}
	logger.Info("teetime starting",
		zap.String("store", cfg.StoreBackend),
		zap.String("lock", cfg.LockBackend),
		zap.Bool("notifications", cfg.NotificationsEnabled()),
		zap.String("timezone", location.String()))
	return httpapi.Serve(ctx, cfg.ListenAddr, httpapi.NewRouter(cfg.AllowedOrigins, handler), logger)
}

func openStore(cfg *config.Config) (booking.Store, func(), error) {
	if cfg.StoreBackend == config.StoreDataAPI {
		client, err := dataapi.NewClient(&http.Client{}, dataapi.Config{
			BaseURL:           cfg.DataAPIURL,
			Headers:           cfg.DataAPIHeaders(),
			ReadTimeout:       cfg.DataAPIReadTimeout,
			WriteTimeout:      cfg.DataAPIWriteTimeout,
			RequestsPerSecond: cfg.DataAPIRatePerSecond,
			Burst:             cfg.DataAPIBurst,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("data api client: %w", err)
		}
		return datastore.New(client), func() {}, nil
	}

	db, driver, err := gormstore.OpenURL(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("database open: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("database handle: %w", err)
	}
	if cfg.AutoMigrate || driver == gormstore.DriverSQLite {
		if err := gormstore.Migrate(db); err != nil {
			_ = sqlDB.Close()
			return nil, nil, fmt.Errorf("auto migrate: %w", err)
		}
	}
	return gormstore.New(db), func() { _ = sqlDB.Close() }, nil
}

func openLocker(ctx context.Context, cfg *config.Config) (booking.SlotLocker, func(), error) {
	switch cfg.LockBackend {
	case config.LockRedis:
		client := slotlock.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		return slotlock.NewRedisLocker(client, slotlock.WithTTL(cfg.LockTTL)), func() { _ = client.Close() }, nil
	case config.LockPostgres:
		pool, err := pgxpool.New(ctx, cfg.LockDatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("lock pool: %w", err)
		}
		return pgstore.NewAdvisoryLocker(pool), pool.Close, nil
	default:
		return nil, func() {}, nil
	}
}
