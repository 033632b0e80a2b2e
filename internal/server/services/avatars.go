package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/recipelab/internal/common"
	"github.com/dmitrijs2005/recipelab/internal/logging"
	"github.com/dmitrijs2005/recipelab/internal/models"
	"github.com/dmitrijs2005/recipelab/internal/server/config"
	"github.com/google/uuid"
)

const presignExpiry = 15 * time.Minute

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// AvatarService hands out presigned S3 URLs for profile pictures. Objects
// live under avatars/<owner id>/, so an owner can only point its profile at
// its own uploads.
type AvatarService struct {
	config *config.Config
	logger logging.Logger
}

func NewAvatarService(cfg *config.Config, l logging.Logger) *AvatarService {
	return &AvatarService{config: cfg, logger: l.With("module", "avatars")}
}

func avatarPrefix(ownerID string) string {
	return "avatars/" + ownerID + "/"
}

// NewAvatarKey returns a fresh object key for ownerID.
func NewAvatarKey(ownerID string) string {
	d := time.Now()
	return fmt.Sprintf("%s%d/%02d/%v", avatarPrefix(ownerID), d.Year(), d.Month(), uuid.New())
}

// OwnsKey reports whether key is an upload slot of ownerID.
func (s *AvatarService) OwnsKey(ownerID, key string) bool {
	return strings.HasPrefix(key, avatarPrefix(ownerID)) && !strings.Contains(key, "..")
}

func (s *AvatarService) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return newS3PresignClient(client), nil
}

// UploadURL returns a new object key for ownerID and a presigned PUT URL
// that accepts an image of contentType.
func (s *AvatarService) UploadURL(ctx context.Context, ownerID, contentType string) (string, string, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return "", "", fmt.Errorf("%w: avatar must be an image, got %q", common.ErrValidation, contentType)
	}

	pc, err := s.getPresignClient(ctx)
	if err != nil {
		return "", "", err
	}

	bucket := s.config.S3Bucket
	key := NewAvatarKey(ownerID)

	req, err := presignPutObject(pc, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		ContentType: &contentType,
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", "", err
	}

	return key, req.URL, nil
}

// DownloadURL returns a presigned GET URL for key.
func (s *AvatarService) DownloadURL(ctx context.Context, key string) (string, error) {
	pc, err := s.getPresignClient(ctx)
	if err != nil {
		return "", err
	}

	bucket := s.config.S3Bucket
	req, err := presignGetObject(pc, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// Resolve turns the stored object key of an uploaded avatar into a
// download URL. On failure the key is left as is.
func (s *AvatarService) Resolve(ctx context.Context, p *models.Profile) {
	if p == nil || p.Avatar.Type != models.AvatarUploaded || !strings.HasPrefix(p.Avatar.URL, "avatars/") {
		return
	}
	url, err := s.DownloadURL(ctx, p.Avatar.URL)
	if err != nil {
		s.logger.Warn(ctx, "avatar url not resolved", "owner_id", p.OwnerID, "error", err)
		return
	}
	p.Avatar.URL = url
}
