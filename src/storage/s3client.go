package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"feedserv/src/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ClientMinio is the subset of *minio.Client the S3 backend calls.
type ClientMinio interface {
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (info minio.UploadInfo, err error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// MinioS3Client talks to the bucket through B2's S3-compatible endpoint.
// Uploaded objects are served from the same CDN as the native backend.
type MinioS3Client struct {
	bucketName string
	cdnBase    string
	timeout    time.Duration
	client     ClientMinio
	log        *logger.Logger
}

const defaultContentType = "application/octet-stream"

type S3Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	CDNBaseURL      string
	UseSSL          bool
	Timeout         time.Duration
}

// NewMinioS3Client creates a new MinioS3Client instance.
func NewMinioS3Client(cfg S3Config, log *logger.Logger) (*MinioS3Client, error) {
	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client for %s: %w", cfg.Endpoint, err)
	}
	return newMinioS3Client(minioClient, cfg, log), nil
}

func newMinioS3Client(client ClientMinio, cfg S3Config, log *logger.Logger) *MinioS3Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &MinioS3Client{
		bucketName: cfg.BucketName,
		cdnBase:    strings.TrimRight(cfg.CDNBaseURL, "/"),
		timeout:    timeout,
		client:     client,
		log:        log.WithFields(map[string]any{"component": "s3", "bucket": cfg.BucketName}),
	}
}

// Upload puts data under filename and returns its CDN URL.
func (s3 *MinioS3Client) Upload(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	if contentType == "" {
		contentType = defaultContentType
	}
	ctx, cancel := context.WithTimeout(ctx, s3.timeout)
	defer cancel()

	_, err := s3.client.PutObject(ctx,
		s3.bucketName,
		filename,
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType, DisableContentSha256: true})
	if err != nil {
		return "", s3Error(filename, err)
	}
	s3.log.Info("uploaded", "filename", filename, "size", len(data))
	return s3.ObjectURL(filename), nil
}

// ListObjects returns the CDN URLs of objects under prefix. When exts is
// not empty only keys with one of those extensions are kept.
func (s3 *MinioS3Client) ListObjects(ctx context.Context, prefix string, exts []string) ([]string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	result := make([]string, 0)
	objectCh := s3.client.ListObjects(ctx, s3.bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})
	for object := range objectCh {
		if object.Err != nil {
			return result, fmt.Errorf("list %s/%s: %w", s3.bucketName, prefix, object.Err)
		}
		if len(exts) > 0 && !checkIn(object.Key, exts) {
			continue
		}
		result = append(result, s3.ObjectURL(object.Key))
	}
	return result, nil
}

func (s3 *MinioS3Client) DeleteFile(ctx context.Context, fileName string) error {
	err := s3.client.RemoveObject(ctx, s3.bucketName, fileName, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("remove %s/%s: %w", s3.bucketName, fileName, err)
	}
	s3.log.Info("removed", "filename", fileName)
	return nil
}

// ObjectURL escapes each segment of key and keeps "/" so listed keys under a
// prefix still resolve on the CDN.
func (s3 *MinioS3Client) ObjectURL(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = escapeComponent(seg)
	}
	return s3.cdnBase + "/" + strings.Join(segments, "/")
}

func s3Error(filename string, err error) error {
	resp := minio.ToErrorResponse(err)
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &AuthError{Step: "put_object", Status: resp.StatusCode, Message: resp.Code + ": " + resp.Message}
	case 0:
		return &UploadError{Filename: filename, Err: err}
	}
	return &UploadError{Filename: filename, Status: resp.StatusCode, Payload: resp.Message}
}

func checkIn(key string, filters []string) bool {
	dot := strings.LastIndex(key, ".")
	if dot < 0 {
		return false
	}
	ext := strings.ToLower(key[dot+1:])
	for _, f := range filters {
		if strings.ToLower(strings.TrimPrefix(f, ".")) == ext {
			return true
		}
	}
	return false
}
