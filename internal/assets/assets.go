// Package assets uploads avatar images to S3-compatible object storage.
package assets

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/chatterly/registration-service/config"
)

// Uploader stores an avatar and returns its public reference. Already-hosted
// references pass through untouched; only inline data URLs are uploaded.
type Uploader interface {
	UploadAvatar(ctx context.Context, userID, avatarImage string) (string, error)
}

var _ Uploader = (*S3Uploader)(nil)

type S3Uploader struct {
	logger *slog.Logger
	cfg    config.AssetsConfig
	client *s3.Client
}

func NewS3Uploader(ctx context.Context, cfg config.AssetsConfig, logger *slog.Logger) (*S3Uploader, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey, cfg.SecretKey, "",
		)))
	if err != nil {
		return nil, fmt.Errorf("assets: failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Uploader{
		logger: logger,
		cfg:    cfg,
		client: client,
	}, nil
}

// UploadAvatar decodes a `data:<mime>;base64,` avatar payload and puts it
// under avatars/<userID>. Non-data references are returned unchanged.
func (u *S3Uploader) UploadAvatar(ctx context.Context, userID, avatarImage string) (string, error) {
	if !strings.HasPrefix(avatarImage, "data:") {
		return avatarImage, nil
	}

	meta, data, found := strings.Cut(avatarImage, ",")
	if !found {
		return "", fmt.Errorf("assets: malformed data URL for user %s", userID)
	}
	contentType := strings.TrimSuffix(strings.TrimPrefix(meta, "data:"), ";base64")

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", fmt.Errorf("assets: failed to decode avatar payload: %w", err)
	}

	key := fmt.Sprintf("avatars/%s", userID)
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(raw),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("assets: failed to upload avatar: %w", err)
	}

	u.logger.Debug("Avatar uploaded", slog.String("key", key))

	if u.cfg.BaseEndpoint != "" {
		return fmt.Sprintf("%s/%s/%s", u.cfg.BaseEndpoint, u.cfg.Bucket, key), nil
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.cfg.Bucket, u.cfg.Region, key), nil
}
