package aws

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Object is one stored object as seen by a listing.
type Object struct {
	Key  string
	Size int64
}

// BucketExists checks the bucket with a head request.
func (c *Client) BucketExists(ctx context.Context, bucket string) (bool, error) {
	_, err := c.S3.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) || apiErrorCode(err, "NotFound", "NoSuchBucket") {
			return false, nil
		}
		return false, fmt.Errorf("failed to head bucket %s: %w", bucket, err)
	}
	return true, nil
}

// ListObjectsPages streams the listing under prefix one page at a time, so
// callers can act per page without holding every key in memory.
func (c *Client) ListObjectsPages(ctx context.Context, bucket, prefix string, fn func(page []Object) error) error {
	paginator := s3.NewListObjectsV2Paginator(c.S3, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			var noBucket *types.NoSuchBucket
			if errors.As(err, &noBucket) {
				return notFoundErr("bucket", bucket)
			}
			return fmt.Errorf("failed to list objects in %s: %w", bucket, err)
		}

		objects := make([]Object, 0, len(page.Contents))
		for _, obj := range page.Contents {
			objects = append(objects, Object{
				Key:  aws.ToString(obj.Key),
				Size: aws.ToInt64(obj.Size),
			})
		}

		if len(objects) == 0 {
			continue
		}
		if err := fn(objects); err != nil {
			return err
		}
	}

	return nil
}

// DeleteObjects removes the given keys in batches of up to 1000, the
// service's per-call limit, and returns how many deletions were requested.
func (c *Client) DeleteObjects(ctx context.Context, bucket string, keys []string) (int, error) {
	const batchSize = 1000

	deleted := 0
	for start := 0; start < len(keys); start += batchSize {
		end := start + batchSize
		if end > len(keys) {
			end = len(keys)
		}

		identifiers := make([]types.ObjectIdentifier, 0, end-start)
		for _, key := range keys[start:end] {
			identifiers = append(identifiers, types.ObjectIdentifier{Key: aws.String(key)})
		}

		_, err := c.S3.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &types.Delete{
				Objects: identifiers,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			return deleted, fmt.Errorf("failed to delete objects in %s: %w", bucket, err)
		}
		deleted += end - start
	}

	return deleted, nil
}

// DeleteBucket removes the bucket. An already-absent bucket is ErrNotFound.
func (c *Client) DeleteBucket(ctx context.Context, bucket string) error {
	_, err := c.S3.DeleteBucket(ctx, &s3.DeleteBucketInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		var noBucket *types.NoSuchBucket
		if errors.As(err, &noBucket) || apiErrorCode(err, "NoSuchBucket") {
			return notFoundErr("bucket", bucket)
		}
		return fmt.Errorf("failed to delete bucket %s: %w", bucket, err)
	}
	return nil
}
