package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"golang.org/x/time/rate"
)

// ObjectStore is the slice of the content store the reconciler needs.
// Keys are full object keys including the temp/ or assets/ prefix.
type ObjectStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	Copy(ctx context.Context, sourceKey, destKey string) error
	Delete(ctx context.Context, key string) error
}

// S3Store talks to an S3-compatible bucket. All calls go through a rate
// limiter so a large reconciliation cannot saturate the store, and all
// inherit the caller's context deadline.
type S3Store struct {
	client  *s3.Client
	bucket  string
	limiter *rate.Limiter
}

func NewS3Store(client *s3.Client, bucket string) *S3Store {
	return &S3Store{
		client:  client,
		bucket:  bucket,
		limiter: rate.NewLimiter(rate.Limit(50), 100),
	}
}

func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return false, err
	}
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("head %s: %w", key, err)
	}
	return true, nil
}

func (s *S3Store) Copy(ctx context.Context, sourceKey, destKey string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		CopySource: aws.String(s.bucket + "/" + sourceKey),
		Key:        aws.String(destKey),
	})
	if err != nil {
		return fmt.Errorf("copy %s -> %s: %w", sourceKey, destKey, err)
	}
	return nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		// S3 DeleteObject on a missing key already succeeds; anything
		// surfacing here is a real store failure.
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Put uploads a new object. Used by the temp upload endpoint only; the
// reconciler never writes object bodies.
func (s *S3Store) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// ListPrefix returns every object key under prefix. Used by the orphan
// sweeper against the temp/ prefix.
func (s *S3Store) ListPrefix(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchKey" ||
			strings.Contains(code, "404")
	}
	return false
}
