// internal/services/storage_service.go
package services

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/ricelink/ricelink-backend/internal/config"
)

// StorageService archives exported reports to S3 for the government audit
// trail. Without AWS credentials the service is present but disabled.
type StorageService struct {
	s3Client *s3.S3
	cfg      *config.Config
}

var ErrStorageDisabled = errors.New("report storage is not configured")

type ArchiveResult struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	URL    string `json:"url"`
	Size   int64  `json:"size"`
}

func NewStorageService(cfg *config.Config) (*StorageService, error) {
	if cfg.AWS.AccessKeyID == "" {
		// Local development without S3
		return &StorageService{cfg: cfg}, nil
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.AWS.Region),
		Credentials: credentials.NewStaticCredentials(
			cfg.AWS.AccessKeyID,
			cfg.AWS.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &StorageService{
		s3Client: s3.New(sess),
		cfg:      cfg,
	}, nil
}

func (s *StorageService) Enabled() bool {
	return s.s3Client != nil
}

// ArchiveReport writes one report payload under the given key.
func (s *StorageService) ArchiveReport(key string, payload []byte, contentType string) (*ArchiveResult, error) {
	if s.s3Client == nil {
		return nil, ErrStorageDisabled
	}

	bucket := s.cfg.AWS.S3Bucket
	_, err := s.s3Client.PutObject(&s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to archive report: %w", err)
	}

	return &ArchiveResult{
		Bucket: bucket,
		Key:    key,
		URL:    fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, s.cfg.AWS.Region, key),
		Size:   int64(len(payload)),
	}, nil
}
