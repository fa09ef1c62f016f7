// Package imagestore uploads product images to S3.
package imagestore

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"strconv"
	"strings"

	"vapestore/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// KeyPrefix is where product images live inside the bucket.
const KeyPrefix = "products/"

var allowedExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// Store persists product images and returns their public URL.
type Store interface {
	Upload(ctx context.Context, productID int, filename, contentType string, body io.Reader) (string, error)
}

// ObjectPutter is the part of the S3 client the store uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Config locates the bucket and how its objects are served.
type Config struct {
	Bucket        string
	Region        string
	PublicBaseURL string
}

type s3Store struct {
	client ObjectPutter
	cfg    Config
	newID  func() string
	logger zerolog.Logger
}

// NewS3Store creates an S3-backed image store.
func NewS3Store(client ObjectPutter, cfg Config, logger zerolog.Logger) Store {
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	return &s3Store{
		client: client,
		cfg:    cfg,
		newID:  uuid.NewString,
		logger: logger.With().Str("component", "image-store").Logger(),
	}
}

// Upload stores the image under products/<id>/<uuid><ext>.
func (s *s3Store) Upload(ctx context.Context, productID int, filename, contentType string, body io.Reader) (string, error) {
	ext := strings.ToLower(path.Ext(filename))
	defaultType, ok := allowedExtensions[ext]
	if !ok {
		return "", model.InvalidRequest(fmt.Sprintf("unsupported image type %q", ext))
	}
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = defaultType
	}
	if mt, _, err := mime.ParseMediaType(contentType); err != nil || !strings.HasPrefix(mt, "image/") {
		return "", model.InvalidRequest(fmt.Sprintf("unsupported content type %q", contentType))
	}

	key := KeyPrefix + strconv.Itoa(productID) + "/" + s.newID() + ext

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("bucket", s.cfg.Bucket).
			Str("key", key).
			Msg("failed to upload image")
		return "", model.Upstream("upload image", "Could not store the image", err)
	}

	url := s.URL(key)
	s.logger.Info().
		Int("product_id", productID).
		Str("key", key).
		Msg("product image uploaded")
	return url, nil
}

// URL returns the public address of an object key.
func (s *s3Store) URL(key string) string {
	if s.cfg.PublicBaseURL != "" {
		return s.cfg.PublicBaseURL + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, s.cfg.Region, key)
}
