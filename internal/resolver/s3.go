package resolver

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
	"github.com/tanq16/segdl/internal/segmented"
)

const presignExpiry = 6 * time.Hour

type s3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

type s3Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (string, error)
}

// presignAdapter narrows the SDK presign client to the URL the fetchers need.
type presignAdapter struct {
	client *s3.PresignClient
}

func (p presignAdapter) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (string, error) {
	req, err := p.client.PresignGetObject(ctx, params, optFns...)
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// S3Resolver turns s3://bucket/key into a presigned GET URL. Presigned URLs
// carry their credentials in the query string, so segment fetchers need no
// extra headers and range requests work as usual.
type S3Resolver struct {
	Profile string

	api       s3API
	presigner s3Presigner
}

func NewS3Resolver(profile string) *S3Resolver {
	return &S3Resolver{Profile: profile}
}

func (r *S3Resolver) init(ctx context.Context) error {
	if r.api != nil && r.presigner != nil {
		return nil
	}
	opts := []func(*config.LoadOptions) error{config.WithRetryMode(aws.RetryModeAdaptive)}
	if r.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(r.Profile))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("error loading AWS config: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	r.api = client
	r.presigner = presignAdapter{client: s3.NewPresignClient(client)}
	return nil
}

func (r *S3Resolver) Resolve(ctx context.Context, link string) (*segmented.Resolution, error) {
	bucket, key, err := ParseS3URL(link)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", segmented.ErrResolutionFailed, err)
	}
	if err := r.init(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", segmented.ErrResolutionFailed, err)
	}
	head, err := r.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: error accessing S3 object: %w", segmented.ErrResolutionFailed, err)
	}
	if head.ContentLength == nil || *head.ContentLength <= 0 {
		return nil, fmt.Errorf("%w: S3 object %s is empty", segmented.ErrResolutionFailed, link)
	}
	signed, err := r.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return nil, fmt.Errorf("%w: error presigning S3 object: %w", segmented.ErrResolutionFailed, err)
	}
	name := path.Base(key)
	log.Debug().Str("op", "resolver/s3").Msgf("Presigned s3://%s/%s (%d bytes)", bucket, key, *head.ContentLength)
	return &segmented.Resolution{
		ContentURL: signed,
		TotalSize:  *head.ContentLength,
		Title:      strings.TrimSuffix(name, path.Ext(name)),
	}, nil
}

// ParseS3URL splits s3://bucket/key.
func ParseS3URL(link string) (string, string, error) {
	rest, ok := strings.CutPrefix(link, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 URL: %s", link)
	}
	bucket, key, found := strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" || strings.HasSuffix(key, "/") {
		return "", "", errors.New("s3 URL must be s3://bucket/key and point to an object")
	}
	return bucket, key, nil
}
