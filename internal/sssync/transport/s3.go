package transport

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3Transport implements BlobTransport against an S3-compatible bucket.
// Credential discovery (environment, shared config, instance profile) is
// delegated to the SDK's default chain via config.LoadDefaultConfig,
// matching the non-goal spec.md §1 calls out explicitly.
type S3Transport struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Transport builds a transport for bucket, optionally against a
// non-AWS S3-compatible endpoint (MinIO, etc.) when endpoint is non-empty.
// prefix, when non-empty, is joined in front of every key (the path
// component of an `s3://bucket/prefix`-shaped remote location).
func NewS3Transport(ctx context.Context, bucket, prefix, endpoint string) (*S3Transport, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("transport: load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Transport{client: client, bucket: bucket, prefix: prefix}, nil
}

// key joins the transport's prefix (the path component of an
// `s3://bucket/prefix`-shaped remote location) in front of key.
func (t *S3Transport) key(key string) string {
	if t.prefix == "" {
		return key
	}
	return t.prefix + "/" + key
}

func (t *S3Transport) HeadObject(ctx context.Context, key string) (bool, error) {
	_, err := t.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(t.bucket),
		Key:    aws.String(t.key(key)),
	})
	if err == nil {
		return true, nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NotFound" || apiErr.ErrorCode() == "NoSuchKey") {
		return false, nil
	}
	return false, fmt.Errorf("transport: head object %s: %w", key, err)
}

func (t *S3Transport) GetObject(ctx context.Context, key string, w io.Writer) error {
	out, err := t.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(t.bucket),
		Key:    aws.String(t.key(key)),
	})
	if err != nil {
		return fmt.Errorf("transport: get object %s: %w", key, err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("transport: get object %s: %w", key, err)
	}
	return nil
}

func (t *S3Transport) PutObject(ctx context.Context, key string, r io.Reader, size int64) error {
	_, err := t.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(t.bucket),
		Key:           aws.String(t.key(key)),
		Body:          r,
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return fmt.Errorf("transport: put object %s: %w", key, err)
	}
	return nil
}

// PutObjectMultipart delegates the actual chunking to the SDK's manager
// package rather than hand-rolling CreateMultipartUpload/UploadPart calls:
// manager.Uploader already splits above PartSize and aborts the upload for
// us on failure, the Go-idiomatic equivalent of upload_multipart.rs's
// manual part loop and abort-on-error branch. A body no larger than
// PartSize (TenMegabytes) goes up as a single PutObject, so only bodies
// above TenMegabytes are split into parts.
func (t *S3Transport) PutObjectMultipart(ctx context.Context, key string, r io.Reader, size int64, force bool) error {
	if !force {
		exists, err := t.HeadObject(ctx, key)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("transport: put object multipart %s: %w", key, ErrObjectExists)
		}
	}

	uploader := manager.NewUploader(t.client, func(u *manager.Uploader) {
		u.PartSize = TenMegabytes
	})

	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(t.bucket),
		Key:           aws.String(t.key(key)),
		Body:          r,
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return fmt.Errorf("transport: put object multipart %s: %w", key, err)
	}
	return nil
}
