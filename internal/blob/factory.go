package blob

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog"

	"filevault/internal/config"
)

// New builds the store selected by cfg.Type, decoding that type's options.
func New(ctx context.Context, cfg config.BlobConfig, log zerolog.Logger) (Store, error) {
	switch cfg.Type {
	case "filesystem":
		return newFilesystemFromOptions(cfg.Filesystem, log)
	case "s3":
		return newS3FromOptions(ctx, cfg.S3, log)
	case "memory":
		log.Warn().Msg("using in-memory blob store, content is lost on restart")
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown blob store type: %q", cfg.Type)
	}
}

func newFilesystemFromOptions(options map[string]any, log zerolog.Logger) (Store, error) {
	type filesystemOptions struct {
		Path string `mapstructure:"path"`
	}
	var opts filesystemOptions
	if err := mapstructure.Decode(options, &opts); err != nil {
		return nil, fmt.Errorf("decode filesystem blob options: %w", err)
	}

	store, err := NewFilesystemStore(opts.Path)
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", store.root).Msg("filesystem blob store initialized")
	return store, nil
}

type s3Options struct {
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	KeyPrefix       string `mapstructure:"key_prefix"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	MaxRetries      int    `mapstructure:"max_retries"`
}

func decodeS3Options(options map[string]any) (s3Options, error) {
	var opts s3Options
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &opts,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return opts, err
	}
	if err := dec.Decode(options); err != nil {
		return opts, fmt.Errorf("decode s3 blob options: %w", err)
	}
	if opts.Bucket == "" {
		return opts, fmt.Errorf("s3 blob store: bucket is required")
	}
	if opts.Region == "" {
		return opts, fmt.Errorf("s3 blob store: region is required")
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 5
	}
	return opts, nil
}

func newS3FromOptions(ctx context.Context, options map[string]any, log zerolog.Logger) (Store, error) {
	opts, err := decodeS3Options(options)
	if err != nil {
		return nil, err
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
		awsconfig.WithRetryer(func() aws.Retryer {
			return retry.NewStandard(func(o *retry.StandardOptions) {
				o.MaxAttempts = opts.MaxRetries
			})
		}),
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// MinIO and other S3-compatible endpoints need path-style addressing.
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	store, err := NewS3Store(client, opts.Bucket, opts.KeyPrefix)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("bucket", opts.Bucket).
		Str("region", opts.Region).
		Str("prefix", opts.KeyPrefix).
		Msg("S3 blob store initialized")
	return store, nil
}
