package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// maxDeleteBatch is the S3 limit on keys per DeleteObjects call.
const maxDeleteBatch = 1000

type ObjectInfo struct {
	Path         string
	Size         int64
	LastModified time.Time
}

func (s *S3Storage) Delete(ctx context.Context, path string) error {
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		s.log.Error(ctx, "delete object failed", "path", path, "error", err)
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

// DeleteMany removes paths with batched DeleteObjects calls. Keys the
// service reports as failed are returned in the error.
func (s *S3Storage) DeleteMany(ctx context.Context, paths []string) error {
	for start := 0; start < len(paths); start += maxDeleteBatch {
		end := min(start+maxDeleteBatch, len(paths))

		ids := make([]types.ObjectIdentifier, 0, end-start)
		for _, p := range paths[start:end] {
			ids = append(ids, types.ObjectIdentifier{Key: aws.String(p)})
		}

		out, err := s.api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.opts.Bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			s.log.Error(ctx, "delete objects failed", "count", len(ids), "error", err)
			return fmt.Errorf("delete %d objects: %w", len(ids), err)
		}
		if len(out.Errors) > 0 {
			first := out.Errors[0]
			s.log.Error(ctx, "delete objects partially failed", "failed", len(out.Errors),
				"key", aws.ToString(first.Key), "code", aws.ToString(first.Code))
			return fmt.Errorf("delete objects: %d failed, first %s: %s",
				len(out.Errors), aws.ToString(first.Key), aws.ToString(first.Message))
		}
	}
	return nil
}

// List returns every object under prefix.
func (s *S3Storage) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	p := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.opts.Bucket),
		Prefix: aws.String(prefix),
	})

	var out []ObjectInfo
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			s.log.Error(ctx, "list objects failed", "prefix", prefix, "error", err)
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		for _, o := range page.Contents {
			out = append(out, ObjectInfo{
				Path:         aws.ToString(o.Key),
				Size:         aws.ToInt64(o.Size),
				LastModified: aws.ToTime(o.LastModified),
			})
		}
	}
	return out, nil
}

func (s *S3Storage) Copy(ctx context.Context, from, to string) error {
	_, err := s.api.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.opts.Bucket),
		CopySource: aws.String(s.opts.Bucket + "/" + escapePath(from)),
		Key:        aws.String(to),
	})
	if err != nil {
		s.log.Error(ctx, "copy object failed", "from", from, "to", to, "error", err)
		return fmt.Errorf("copy %s to %s: %w", from, to, err)
	}
	return nil
}

// Move is Copy followed by Delete of the source.
func (s *S3Storage) Move(ctx context.Context, from, to string) error {
	if err := s.Copy(ctx, from, to); err != nil {
		return err
	}
	return s.Delete(ctx, from)
}
