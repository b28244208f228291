package main

import (
	"context"
	"fmt"
	"time"

	cfg "feedserv/src/configuration"
	"feedserv/src/logger"
	"feedserv/src/media"
	"feedserv/src/repository"
	"feedserv/src/storage"

	"github.com/redis/go-redis/v9"
)

func newNormalizer(p cfg.ImageProperties) *media.Normalizer {
	return &media.Normalizer{
		MaxDimension:   p.MaxDimension,
		MaxPixels:      p.MaxPixels,
		WebPQuality:    p.WebPQuality,
		WebPEffort:     p.WebPEffort,
		PNGCompression: p.PNGCompression,
	}
}

func newCredentialCache(ctx context.Context, config *cfg.Properties, log *logger.Logger) storage.CredentialCache {
	if config.CredCache.Backend != cfg.CredCacheRedis {
		return storage.NewMemoryCache()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     config.CredCache.RedisAddr,
		Password: config.CredCache.RedisPassword,
		DB:       config.CredCache.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		// lookups against an unreachable redis count as misses
		log.Warn("redis not reachable, credentials will not be shared", "addr", config.CredCache.RedisAddr, "error", err)
	}
	return storage.NewRedisCache(client, config.CredCache.RedisKey)
}

func newS3Client(config *cfg.Properties, log *logger.Logger) (*storage.MinioS3Client, error) {
	return storage.NewMinioS3Client(storage.S3Config{
		Endpoint:        config.B2.S3Endpoint,
		Region:          config.B2.S3Region,
		AccessKeyID:     config.B2.AccountID,
		SecretAccessKey: config.B2.ApplicationKey,
		BucketName:      config.B2.BucketName,
		CDNBaseURL:      config.Storage.CDNBaseURL,
		UseSSL:          true,
		Timeout:         config.B2.UploadTimeout,
	}, log)
}

func newUploader(ctx context.Context, config *cfg.Properties, log *logger.Logger) (storage.Uploader, error) {
	switch config.Storage.Backend {
	case cfg.StorageS3:
		return newS3Client(config, log)
	case cfg.StorageB2:
		return storage.NewB2Client(storage.B2Config{
			AccountID:      config.B2.AccountID,
			ApplicationKey: config.B2.ApplicationKey,
			BucketID:       config.B2.BucketID,
			AuthURL:        config.B2.AuthURL,
			CDNBaseURL:     config.Storage.CDNBaseURL,
			UploadTimeout:  config.B2.UploadTimeout,
			TokenTTL:       config.B2.TokenTTL,
		}, newCredentialCache(ctx, config, log), nil, log), nil
	}
	return nil, fmt.Errorf("unknown storage backend: %q", config.Storage.Backend)
}

// newRowStore returns the configured store and a func releasing it.
func newRowStore(ctx context.Context, config *cfg.Properties) (repository.RowStore, func(), error) {
	noop := func() {}
	switch config.Sheet.Backend {
	case cfg.SheetSheets:
		auth, err := repository.ServiceAccountOption(ctx, config.Sheet.CredentialsJSON, config.Sheet.CredentialsFile)
		if err != nil {
			return nil, noop, err
		}
		store, err := repository.NewSheetsStore(ctx, config.Sheet.SpreadsheetID, config.Sheet.Name, auth)
		return store, noop, err
	case cfg.SheetSQLite:
		store, err := repository.NewSQLiteStore(config.Sheet.SQLitePath)
		if err != nil {
			return nil, noop, err
		}
		return store, func() { store.Close() }, nil
	case cfg.SheetMemory:
		return repository.NewInMemoryStore(), noop, nil
	}
	return nil, noop, fmt.Errorf("unknown sheet backend: %q", config.Sheet.Backend)
}
