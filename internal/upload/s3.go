package upload

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3BlobStore struct { // implements BlobStore
	client *s3.Client
	bucket string

	// Stored objects are addressed by this public base URL.
	baseURL string
}

func NewS3BlobStore(accessKeyID, accessKeySecret, endpoint, bucket string) (*S3BlobStore, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, accessKeySecret, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("error initializing S3 client: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})

	return &S3BlobStore{
		client:  client,
		bucket:  bucket,
		baseURL: endpoint + "/" + bucket + "/",
	}, nil
}

func (s *S3BlobStore) Save(ctx context.Context, name string, data []byte) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return "", fmt.Errorf("error putting object %s: %w", name, err)
	}

	uploadLogger.Debug().Str("name", name).Str("bucket", s.bucket).Msg("Upload stored")

	return s.baseURL + name, nil
}

func (s *S3BlobStore) Remove(ctx context.Context, name string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	return err
}
