// Package storage implements the blob store port on S3.
package storage

import (
	"bytes"
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	apperrors "savinggrace-backend/pkg/errors"
)

// S3BlobStore stores artifacts in one bucket.
type S3BlobStore struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	logger    *zap.Logger
}

// NewS3BlobStore creates a blob store over the bucket.
func NewS3BlobStore(client *s3.Client, bucket string, logger *zap.Logger) *S3BlobStore {
	return &S3BlobStore{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    bucket,
		logger:    logger,
	}
}

// PutBlob writes an artifact under key.
func (s *S3BlobStore) PutBlob(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return apperrors.NewExternalError("s3", err)
	}

	s.logger.Debug("stored blob",
		zap.String("bucket", s.bucket),
		zap.String("key", key),
		zap.Int("bytes", len(body)),
	)

	return nil
}

// SignedURL returns a GET link to key that expires after ttl.
func (s *S3BlobStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", apperrors.NewExternalError("s3", err)
	}

	return req.URL, nil
}
