package export

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ArtifactStore archives generated reports in object storage.
type ArtifactStore struct {
	client *minio.Client
	bucket string
}

// NewArtifactStore connects to S3-compatible object storage and ensures the
// bucket exists. Returns an error if the endpoint is unreachable.
func NewArtifactStore(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*ArtifactStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
		}
		log.Printf("export: created artifact bucket %s", bucket)
	}

	return &ArtifactStore{client: client, bucket: bucket}, nil
}

// Archive uploads a generated report and returns its object name.
// Object names are timestamped so successive exports never overwrite.
func (a *ArtifactStore) Archive(ctx context.Context, ideaID string, result *Result) (string, error) {
	objectName := fmt.Sprintf("reports/%s/%s-%s", ideaID, time.Now().UTC().Format("20060102T150405Z"), result.Filename)

	_, err := a.client.PutObject(ctx, a.bucket, objectName,
		bytes.NewReader(result.Data), int64(len(result.Data)),
		minio.PutObjectOptions{ContentType: result.MimeType})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", objectName, err)
	}
	return objectName, nil
}

// ListArchived returns the object names of archived reports for an idea.
func (a *ArtifactStore) ListArchived(ctx context.Context, ideaID string) ([]string, error) {
	prefix := fmt.Sprintf("reports/%s/", ideaID)
	var names []string
	for object := range a.client.ListObjects(ctx, a.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if object.Err != nil {
			return nil, fmt.Errorf("list objects: %w", object.Err)
		}
		names = append(names, object.Key)
	}
	return names, nil
}
