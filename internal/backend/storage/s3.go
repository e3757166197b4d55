// Package storage presigns uploads to the S3-compatible object store.
package storage

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/clipsync/internal/common"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
)

// Buckets the client may upload to.
var Buckets = []string{"voice-clips", "video-clips", "stories"}

type Options struct {
	User          string
	Password      string
	Region        string
	Endpoint      string
	PublicBaseURL string
	Expiry        time.Duration
}

// S3Presigner issues presigned PUT URLs. Objects are addressed path-style,
// which MinIO expects.
type S3Presigner struct {
	opts   Options
	client *s3.PresignClient
}

func NewS3Presigner(ctx context.Context, opts Options) (*S3Presigner, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(opts.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(opts.User, opts.Password, "")))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = true
	})

	if opts.Expiry <= 0 {
		opts.Expiry = 15 * time.Minute
	}
	return &S3Presigner{opts: opts, client: s3.NewPresignClient(client)}, nil
}

// PresignPut returns a URL the client can PUT the object to, and the URL
// the object will be readable at afterwards.
func (p *S3Presigner) PresignPut(ctx context.Context, bucket, key, contentType string) (string, string, error) {
	if err := ValidateObject(bucket, key); err != nil {
		return "", "", err
	}

	in := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	req, err := presignPutObject(p.client, ctx, in, s3.WithPresignExpires(p.opts.Expiry))
	if err != nil {
		return "", "", fmt.Errorf("presign %s/%s: %w", bucket, key, err)
	}
	return req.URL, p.PublicURL(bucket, key), nil
}

// PublicURL is the stored location of an object: "<base>/<bucket>/<key>".
func (p *S3Presigner) PublicURL(bucket, key string) string {
	base := strings.TrimRight(p.opts.PublicBaseURL, "/")
	segs := strings.Split(key, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return base + "/" + bucket + "/" + strings.Join(segs, "/")
}

// ValidateObject rejects unknown buckets and keys that are not clean
// relative paths.
func ValidateObject(bucket, key string) error {
	known := false
	for _, b := range Buckets {
		if b == bucket {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%w: unknown bucket %q", common.ErrValidation, bucket)
	}
	if key == "" || strings.HasPrefix(key, "/") || path.Clean(key) != key || strings.Contains(key, "..") {
		return fmt.Errorf("%w: invalid object key %q", common.ErrValidation, key)
	}
	return nil
}
