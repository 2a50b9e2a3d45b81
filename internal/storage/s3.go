package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectAPI is the part of *minio.Client used by S3.
type ObjectAPI interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(
		ctx context.Context, bucket, key string, reader io.Reader, size int64, opts minio.PutObjectOptions,
	) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucket, key string, opts minio.GetObjectOptions) (*minio.Object, error)
	StatObject(ctx context.Context, bucket, key string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucket, key string, opts minio.RemoveObjectOptions) error
}

// S3 stores images in an S3-compatible bucket with keys "<kind>/<name>".
type S3 struct {
	client ObjectAPI
	bucket string
	log    *slog.Logger
}

// NewMinioClient connects to an S3-compatible endpoint.
func NewMinioClient(endpoint, accessKey, secretKey string, useSSL bool) (*minio.Client, error) {
	if endpoint == "" || accessKey == "" || secretKey == "" {
		return nil, fmt.Errorf("missing one or more required settings: MINIO_ENDPOINT, MINIO_ACCESS_KEY, MINIO_SECRET_KEY")
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}
	return client, nil
}

// NewS3 makes sure bucket exists and returns the store.
func NewS3(ctx context.Context, client ObjectAPI, bucket string, log *slog.Logger) (*S3, error) {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err = client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		log.InfoContext(ctx, "Created image bucket", "bucket", bucket)
	}
	return &S3{client: client, bucket: bucket, log: log}, nil
}

func (s *S3) Put(ctx context.Context, kind, name string, body io.Reader, size int64, contentType string) error {
	if err := CheckName(kind, name); err != nil {
		return err
	}
	_, err := s.client.PutObject(ctx, s.bucket, kind+"/"+name, body, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("failed to store object in S3: %w", err)
	}
	s.log.DebugContext(ctx, "Stored image", "bucket", s.bucket, "key", kind+"/"+name)
	return nil
}

func (s *S3) Open(ctx context.Context, kind, name string) (io.ReadCloser, Info, error) {
	if err := CheckName(kind, name); err != nil {
		return nil, Info{}, err
	}
	key := kind + "/" + name

	stat, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, Info{}, ErrNotFound
		}
		return nil, Info{}, fmt.Errorf("failed to stat object: %w", err)
	}
	object, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, Info{}, fmt.Errorf("failed to get object from S3: %w", err)
	}

	return object, Info{ContentType: stat.ContentType, Size: stat.Size}, nil
}

func (s *S3) Delete(ctx context.Context, kind, name string) error {
	if err := CheckName(kind, name); err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, kind+"/"+name, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove object: %w", err)
	}
	return nil
}
