package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/tanq16/segdl/internal/segmented"
)

type fakeS3 struct {
	size *int64
	err  error
	key  string
}

func (f *fakeS3) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.key = aws.ToString(params.Bucket) + "/" + aws.ToString(params.Key)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.HeadObjectOutput{ContentLength: f.size}, nil
}

type fakePresigner struct{}

func (fakePresigner) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (string, error) {
	return "https://" + aws.ToString(params.Bucket) + ".s3.amazonaws.com/" + aws.ToString(params.Key) + "?X-Amz-Signature=abc", nil
}

func TestParseS3URL(t *testing.T) {
	tests := []struct {
		link    string
		bucket  string
		key     string
		wantErr bool
	}{
		{"s3://media/videos/talk.mp4", "media", "videos/talk.mp4", false},
		{"s3://media/talk.mp4", "media", "talk.mp4", false},
		{"s3://media", "", "", true},
		{"s3://media/folder/", "", "", true},
		{"https://media/talk.mp4", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.link, func(t *testing.T) {
			bucket, key, err := ParseS3URL(tt.link)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseS3URL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if bucket != tt.bucket || key != tt.key {
				t.Errorf("ParseS3URL() = (%q, %q), want (%q, %q)", bucket, key, tt.bucket, tt.key)
			}
		})
	}
}

func TestS3Resolver(t *testing.T) {
	api := &fakeS3{size: aws.Int64(52_428_800)}
	r := &S3Resolver{api: api, presigner: fakePresigner{}}

	res, err := r.Resolve(context.Background(), "s3://media/videos/talk.mp4")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if api.key != "media/videos/talk.mp4" {
		t.Errorf("HeadObject called for %q", api.key)
	}
	if res.TotalSize != 52_428_800 {
		t.Errorf("TotalSize = %d", res.TotalSize)
	}
	if res.Title != "talk" {
		t.Errorf("Title = %q, want talk", res.Title)
	}
	if res.ContentURL != "https://media.s3.amazonaws.com/videos/talk.mp4?X-Amz-Signature=abc" {
		t.Errorf("ContentURL = %q", res.ContentURL)
	}
}

func TestS3ResolverErrors(t *testing.T) {
	tests := []struct {
		name string
		api  *fakeS3
		link string
	}{
		{"head fails", &fakeS3{err: errors.New("access denied")}, "s3://media/a.mp4"},
		{"empty object", &fakeS3{size: aws.Int64(0)}, "s3://media/a.mp4"},
		{"no length", &fakeS3{}, "s3://media/a.mp4"},
		{"bad url", &fakeS3{size: aws.Int64(10)}, "s3://media"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &S3Resolver{api: tt.api, presigner: fakePresigner{}}
			_, err := r.Resolve(context.Background(), tt.link)
			if !errors.Is(err, segmented.ErrResolutionFailed) {
				t.Errorf("Resolve() error = %v, want ErrResolutionFailed", err)
			}
		})
	}
}
