// Package assets resolves the personas' prerecorded voice clips, stored in
// an S3-compatible bucket, into short-lived presigned URLs the telephony
// provider can fetch.
package assets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// clipTTL keeps the URL alive long enough for the provider to fetch and
// play the clip, and not much longer.
const clipTTL = 2 * time.Minute

// SignerConfig configures the S3-compatible clip bucket.
type SignerConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// Signer presigns GET URLs for clip objects keyed "<persona>/<phrase>.wav".
type Signer struct {
	presign *s3.PresignClient
	bucket  string
}

// NewSigner creates a Signer for the configured bucket.
func NewSigner(ctx context.Context, cfg SignerConfig) (*Signer, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("clip bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	loadOptions := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOptions = append(loadOptions, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		if cfg.UsePathStyle {
			o.UsePathStyle = true
		}
	})

	return &Signer{
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
	}, nil
}

// SignClip returns a presigned GET URL for one persona phrase clip.
func (s *Signer) SignClip(ctx context.Context, persona, phrase string) (string, error) {
	key := fmt.Sprintf("%s/%s.wav", persona, phrase)
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	}, s3.WithPresignExpires(clipTTL))
	if err != nil {
		return "", fmt.Errorf("presigning clip %s: %w", key, err)
	}
	return req.URL, nil
}
