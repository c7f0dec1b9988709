package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// DefaultMaxObjectSize caps a single attachment at 10 MiB.
const DefaultMaxObjectSize = 10 << 20

// Config holds S3-compatible storage configuration.
type Config struct {
	Bucket        string `env:"STORAGE_BUCKET"`
	AccessKey     string `env:"STORAGE_ACCESS_KEY"`
	SecretKey     string `env:"STORAGE_SECRET_KEY"`
	Endpoint      string `env:"STORAGE_ENDPOINT"`
	Region        string `env:"STORAGE_REGION" envDefault:"us-east-1"`
	PathStyle     bool   `env:"STORAGE_PATH_STYLE" envDefault:"false"`
	MaxObjectSize int64  `env:"STORAGE_MAX_OBJECT_SIZE" envDefault:"10485760"`
}

// Enabled reports whether a bucket is configured.
func (c Config) Enabled() bool {
	return c.Bucket != ""
}

func (c Config) validate() error {
	if c.Bucket == "" || c.AccessKey == "" || c.SecretKey == "" {
		return ErrInvalidConfig
	}
	return nil
}

// Object describes a stored blob.
type Object struct {
	Key         string
	Filename    string
	ContentType string
	Size        int64
}

// S3 reads objects from one bucket.
type S3 struct {
	client  *s3.Client
	bucket  string
	maxSize int64
}

// New creates an S3 reader.
func New(cfg Config) (*S3, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.MaxObjectSize <= 0 {
		cfg.MaxObjectSize = DefaultMaxObjectSize
	}

	client := s3.New(s3.Options{
		Region:      cfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
	}, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.PathStyle
		}
	})

	return &S3{client: client, bucket: cfg.Bucket, maxSize: cfg.MaxObjectSize}, nil
}

// Stat returns object metadata without reading the body.
func (s *S3) Stat(ctx context.Context, key string) (*Object, error) {
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, wrapS3Error(err, ErrReadFailed)
	}

	return &Object{
		Key:         key,
		Filename:    path.Base(key),
		ContentType: contentType(key, aws.ToString(head.ContentType)),
		Size:        aws.ToInt64(head.ContentLength),
	}, nil
}

// Open returns a reader over the object body. The caller closes it.
// Objects above the configured limit fail with ErrTooLarge before download.
func (s *S3) Open(ctx context.Context, key string) (io.ReadCloser, *Object, error) {
	obj, err := s.Stat(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	if obj.Size > s.maxSize {
		return nil, nil, fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, key, obj.Size)
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, nil, wrapS3Error(err, ErrReadFailed)
	}
	return out.Body, obj, nil
}

// ReadAll loads the whole object into memory, enforcing the size limit even
// if the object grew after Stat.
func (s *S3) ReadAll(ctx context.Context, key string) ([]byte, *Object, error) {
	body, obj, err := s.Open(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, s.maxSize+1))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrReadFailed, err)
	}
	if int64(len(data)) > s.maxSize {
		return nil, nil, fmt.Errorf("%w: %s", ErrTooLarge, key)
	}
	obj.Size = int64(len(data))
	return data, obj, nil
}

func contentType(key, reported string) string {
	if reported != "" && reported != "application/octet-stream" && reported != "binary/octet-stream" {
		return reported
	}
	if byExt := mime.TypeByExtension(path.Ext(key)); byExt != "" {
		return byExt
	}
	return "application/octet-stream"
}
