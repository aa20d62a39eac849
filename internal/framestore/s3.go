package framestore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config holds connection settings for an S3-compatible object store.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// S3Store stores frames as objects under frames/<id>.jpg.
type S3Store struct {
	client *miniogo.Client
	bucket string
	now    func() time.Time
}

// NewS3Store creates a client for the configured endpoint. It does not
// contact the server; call EnsureBucket for that.
func NewS3Store(cfg S3Config) (*S3Store, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &S3Store{
		client: client,
		bucket: cfg.Bucket,
		now:    time.Now,
	}, nil
}

// EnsureBucket creates the bucket if it does not exist yet.
func (s *S3Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, miniogo.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

// Store uploads jpeg and returns its frame id.
func (s *S3Store) Store(ctx context.Context, jpeg []byte) (string, error) {
	id := NewFrameID(s.now())
	_, err := s.client.PutObject(ctx, s.bucket, ObjectKey(id), bytes.NewReader(jpeg), int64(len(jpeg)), miniogo.PutObjectOptions{
		ContentType: "image/jpeg",
	})
	if err != nil {
		return "", fmt.Errorf("upload frame: %w", err)
	}
	return id, nil
}

// Fetch downloads the frame stored under id.
func (s *S3Store) Fetch(ctx context.Context, id string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, ObjectKey(id), miniogo.GetObjectOptions{})
	if err != nil {
		return nil, fetchErr(err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fetchErr(err)
	}
	return data, nil
}

func fetchErr(err error) error {
	if miniogo.ToErrorResponse(err).Code == "NoSuchKey" {
		return ErrNotFound
	}
	return fmt.Errorf("download frame: %w", err)
}
