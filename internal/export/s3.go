package export

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/ignite/learner-analytics/internal/config"
	"github.com/ignite/learner-analytics/internal/pkg/logger"
)

// PutObjectAPI is the slice of the S3 client the uploader needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader stores CSV exports as
// <prefix>/<enterprise>/<report>/<uuid>.csv.
type S3Uploader struct {
	client PutObjectAPI
	bucket string
	prefix string
	newID  func() uuid.UUID
}

// NewS3Uploader loads AWS configuration for cfg. Static keys take
// precedence over a shared profile; with neither the default credential
// chain applies.
func NewS3Uploader(ctx context.Context, cfg config.ExportConfig) (*S3Uploader, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.S3Region)}
	switch {
	case cfg.AccessKey != "" && cfg.SecretKey != "":
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	case cfg.GetAWSProfile() != "":
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.GetAWSProfile()))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return NewS3UploaderWithClient(s3.NewFromConfig(awsCfg), cfg.S3Bucket, cfg.Prefix), nil
}

// NewS3UploaderWithClient uses an existing client.
func NewS3UploaderWithClient(client PutObjectAPI, bucket, prefix string) *S3Uploader {
	return &S3Uploader{client: client, bucket: bucket, prefix: prefix, newID: uuid.New}
}

// Upload renders t and stores it, returning the s3:// URI of the object.
func (u *S3Uploader) Upload(ctx context.Context, enterpriseID uuid.UUID, report string, t Table) (string, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, t); err != nil {
		return "", fmt.Errorf("render %s export: %w", report, err)
	}

	key := path.Join(u.prefix, enterpriseID.String(), report, u.newID().String()+".csv")
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("text/csv"),
		Metadata: map[string]string{
			"report":     report,
			"enterprise": enterpriseID.String(),
			"created_at": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	uri := fmt.Sprintf("s3://%s/%s", u.bucket, key)
	logger.Info("export uploaded", "uri", uri, "records", len(t.Records), "bytes", buf.Len())
	return uri, nil
}
