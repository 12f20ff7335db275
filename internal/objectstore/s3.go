package objectstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"sweep-go/internal/config"
	"sweep-go/internal/sweep"
)

// S3Store implements sweep.ObjectStore against any S3-compatible
// service (AWS S3, MinIO, R2). One store holds one client; buckets are
// passed per call so a store can serve several buckets behind the same
// credentials.
type S3Store struct {
	client   *s3.Client
	uploader *manager.Uploader
}

// NewS3Store builds a client from a bucket credential bundle. A custom
// endpoint is normalized (protocol promotion, port/protocol fixes) and
// switches the client to path-style addressing, which MinIO and R2
// require.
func NewS3Store(ctx context.Context, bucket config.S3Bucket) (*S3Store, error) {
	if bucket.AccessKey == "" || bucket.SecretKey == "" {
		return nil, fmt.Errorf("bucket %s: missing credentials", bucket.Name)
	}

	region := bucket.Region
	if region == "" {
		region = "us-east-1"
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			bucket.AccessKey, bucket.SecretKey, "",
		)),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("configuring S3 client for %s: %w", bucket.Name, err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if bucket.Endpoint != "" {
			o.BaseEndpoint = aws.String(NormalizeEndpoint(bucket.Endpoint))
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		client:   client,
		uploader: manager.NewUploader(client),
	}, nil
}

// ListObjects returns all objects under prefix, following pagination.
func (s *S3Store) ListObjects(ctx context.Context, bucket, prefix string) ([]sweep.ObjectInfo, error) {
	var objects []sweep.ObjectInfo

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing objects in %s: %w", bucket, err)
		}
		for _, obj := range page.Contents {
			info := sweep.ObjectInfo{
				Key:  aws.ToString(obj.Key),
				Size: aws.ToInt64(obj.Size),
			}
			if obj.LastModified != nil {
				info.LastModified = *obj.LastModified
			}
			objects = append(objects, info)
		}
	}
	return objects, nil
}

// HeadObject returns metadata for one object, or nil when it does not
// exist.
func (s *S3Store) HeadObject(ctx context.Context, bucket, key string) (*sweep.ObjectInfo, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NotFound" || apiErr.ErrorCode() == "NoSuchKey") {
			return nil, nil
		}
		return nil, fmt.Errorf("head %s/%s: %w", bucket, key, err)
	}

	info := &sweep.ObjectInfo{
		Key:  key,
		Size: aws.ToInt64(out.ContentLength),
	}
	if out.LastModified != nil {
		info.LastModified = *out.LastModified
	}
	return info, nil
}

// UploadFile uploads a local file through the multipart-capable upload
// manager, reporting progress via the optional callback.
func (s *S3Store) UploadFile(ctx context.Context, localPath, bucket, key string, progress sweep.UploadProgress) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", localPath, err)
	}

	var body = &progressReader{r: f, total: info.Size(), progress: progress}
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return fmt.Errorf("uploading %s to %s/%s: %w", localPath, bucket, key, err)
	}
	return nil
}

// DeleteObject removes one object.
func (s *S3Store) DeleteObject(ctx context.Context, bucket, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("deleting %s/%s: %w", bucket, key, err)
	}
	return nil
}

// progressReader counts bytes handed to the uploader. The upload
// manager may read from several goroutines for multipart uploads, so
// the counter is atomic.
type progressReader struct {
	r        *os.File
	total    int64
	read     atomic.Int64
	progress sweep.UploadProgress
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 && p.progress != nil {
		p.progress(p.read.Add(int64(n)), p.total)
	}
	return n, err
}

// Compile-time check that S3Store implements the interface.
var _ sweep.ObjectStore = (*S3Store)(nil)
