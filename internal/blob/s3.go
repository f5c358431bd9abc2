package blob

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// s3MaxDeleteBatch is the DeleteObjects per-request limit.
const s3MaxDeleteBatch = 1000

// S3API is the subset of the S3 client the store uses.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

type S3Store struct {
	client    S3API
	bucket    string
	keyPrefix string
}

func NewS3Store(client S3API, bucket, keyPrefix string) (*S3Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 blob store: bucket is required")
	}
	return &S3Store{client: client, bucket: bucket, keyPrefix: keyPrefix}, nil
}

func (s *S3Store) objectKey(key string) string {
	return s.keyPrefix + key
}

func (s *S3Store) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	in := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.objectKey(key)),
		Body:          r,
		ContentLength: aws.Int64(size),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return fmt.Errorf("put object to S3: %w", err)
	}
	return nil
}

func (s *S3Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, fmt.Errorf("blob %s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("get object from S3: %w", err)
	}
	return out.Body, nil
}

// DeleteMany uses DeleteObjects in batches. S3 reports missing keys as deleted.
func (s *S3Store) DeleteMany(ctx context.Context, keys []string) error {
	failures := make(map[string]error)

	for i := 0; i < len(keys); i += s3MaxDeleteBatch {
		end := i + s3MaxDeleteBatch
		if end > len(keys) {
			end = len(keys)
		}
		batch := keys[i:end]

		if err := ctx.Err(); err != nil {
			for _, k := range keys[i:] {
				failures[k] = err
			}
			break
		}

		objects := make([]types.ObjectIdentifier, len(batch))
		for j, k := range batch {
			objects[j] = types.ObjectIdentifier{Key: aws.String(s.objectKey(k))}
		}

		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
		})
		if err != nil {
			for _, k := range batch {
				failures[k] = err
			}
			continue
		}

		for _, de := range out.Errors {
			if de.Key == nil {
				continue
			}
			key := (*de.Key)[len(s.keyPrefix):]
			failures[key] = fmt.Errorf("%s: %s", aws.ToString(de.Code), aws.ToString(de.Message))
		}
	}

	if len(failures) > 0 {
		return &DeleteError{Failed: failures}
	}
	return nil
}

func isS3NotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "NoSuchKey" || apiErr.ErrorCode() == "NotFound"
	}
	return false
}
