package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/JaimeStill/docket/pkg/lifecycle"
)

const minioNoSuchKey = "NoSuchKey"

type s3 struct {
	client *minio.Client
	bucket string
	region string
	logger *slog.Logger
}

func newMinio(cfg *Config, logger *slog.Logger) (*s3, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &s3{
		client: client,
		bucket: cfg.ContainerName,
		region: cfg.Region,
		logger: logger,
	}, nil
}

func (s *s3) Start(lc *lifecycle.Coordinator) error {
	s.logger.Info("starting storage system")

	lc.OnStartup(func() error {
		ctx := lc.Context()

		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.logger.Error("storage bucket check failed", "error", err)
			return fmt.Errorf("check bucket %s: %w", s.bucket, err)
		}

		if !exists {
			if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
				s.logger.Error("storage bucket creation failed", "error", err)
				return fmt.Errorf("make bucket %s: %w", s.bucket, err)
			}
		}

		s.logger.Info("storage bucket ready", "bucket", s.bucket)
		return nil
	})

	return nil
}

func (s *s3) Upload(ctx context.Context, key string, reader io.Reader, contentType string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	_, err := s.client.PutObject(ctx, s.bucket, key, reader, -1, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("upload object %s: %w", key, err)
	}

	return nil
}

func (s *s3) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	// GetObject is lazy; Stat surfaces a missing key before the caller reads.
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("download object %s: %w", key, err)
	}

	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == minioNoSuchKey {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("stat object %s: %w", key, err)
	}

	return obj, nil
}

func (s *s3) Delete(ctx context.Context, key string) error {
	exists, err := s.Exists(ctx, key)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}

	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}

	return nil
}

func (s *s3) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == minioNoSuchKey {
			return false, nil
		}
		return false, fmt.Errorf("check object existence %s: %w", key, err)
	}

	return true, nil
}
