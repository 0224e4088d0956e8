package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"postboard/internal/auth"
	"postboard/internal/backup"
	"postboard/internal/config"
	"postboard/internal/repository"
	"postboard/internal/repository/memory"
	"postboard/internal/repository/postgres"
	"postboard/internal/repository/sqlite"
	"postboard/internal/service"
	"postboard/internal/storage"
)

func newLogger(cfg config.Config) (*logrus.Logger, error) {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	logger.SetLevel(level)

	switch cfg.Log.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Log.Format)
	}
	return logger, nil
}

// stores bundles the repositories of the configured backend. snapshotter is
// only set for sqlite.
type stores struct {
	users       repository.UserRepository
	posts       repository.PostRepository
	snapshotter backup.Snapshotter
	close       func() error
}

func (s *stores) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

func openStores(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*stores, error) {
	var s stores

	switch cfg.Database.Driver {
	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		s.users = sqlite.NewUserRepository(db)
		s.posts = sqlite.NewPostRepository(db)
		s.snapshotter = sqlite.NewSnapshotter(db)
		s.close = db.Close
	case config.DriverPostgres:
		gdb, err := postgres.Open(cfg.Database.DSN, logger)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		s.users = postgres.NewUserRepository(gdb)
		s.posts = postgres.NewPostRepository(gdb)
		s.close = sqlDB.Close
	case config.DriverMemory:
		s.users = memory.NewUserRepository()
		s.posts = memory.NewPostRepository()
		logger.Warn("using in-memory storage, data is lost on exit")
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}

	// users first: posts reference them
	if err := s.users.Init(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("init user repository: %w", err)
	}
	if err := s.posts.Init(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("init post repository: %w", err)
	}

	logger.Infof("using %s storage", cfg.Database.Driver)
	return &s, nil
}

func newUserService(cfg config.Config, s *stores) service.UserService {
	return service.NewUserService(s.users, auth.NewPasswordHasher(cfg.Auth.BcryptCost))
}

// buildRevoker returns a redis-backed revocation list when redis.addr is set
// and a process-local one otherwise.
func buildRevoker(ctx context.Context, cfg config.Config, logger *logrus.Logger) (auth.Revoker, func() error, error) {
	if cfg.Redis.Addr == "" {
		return auth.NewMemoryRevoker(), func() error { return nil }, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
	}

	logger.Infof("token revocations stored in redis %s", cfg.Redis.Addr)
	return auth.NewRedisRevoker(client), client.Close, nil
}

// bootstrapUser makes sure the configured seed account exists.
func bootstrapUser(ctx context.Context, cfg config.Config, users service.UserService, logger *logrus.Logger) error {
	b := cfg.Bootstrap
	if b.Username == "" {
		return nil
	}
	if b.Password == "" || b.Email == "" {
		return errors.New("bootstrap.password and bootstrap.email are required with bootstrap.username")
	}

	input := service.RegisterInput{
		Username: b.Username,
		Email:    b.Email,
		Password: b.Password,
	}
	if b.FullName != "" {
		input.FullName = &b.FullName
	}

	user, created, err := users.EnsureUser(ctx, input)
	if err != nil {
		return fmt.Errorf("bootstrap user %s: %w", b.Username, err)
	}
	if created {
		logger.Infof("bootstrap user %s created (id %d)", user.Username, user.ID)
	}
	return nil
}

func buildScheduler(ctx context.Context, cfg config.Config, s *stores, logger *logrus.Logger) (*backup.Scheduler, error) {
	if s.snapshotter == nil {
		return nil, fmt.Errorf("%s storage cannot be snapshotted", cfg.Database.Driver)
	}
	storageSvc, err := buildStorage(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("setup storage: %w", err)
	}
	return backup.NewScheduler(backup.Config{
		Bucket:    cfg.Backup.Bucket,
		KeyPrefix: cfg.Backup.KeyPrefix,
		Interval:  cfg.BackupInterval(),
		Retain:    cfg.Backup.Retain,
		Logger:    logger,
	}, s.snapshotter, storageSvc), nil
}

func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	if cfg.Backup.Bucket == "" {
		return nil, fmt.Errorf("backup bucket is required")
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("using s3 bucket %s (region %s)", cfg.Backup.Bucket, cfg.Storage.Region)
	return storage.NewS3Service(client), nil
}
