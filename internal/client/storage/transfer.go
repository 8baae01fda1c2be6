package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/docvault/internal/client/models"
	"github.com/dmitrijs2005/docvault/internal/filex"
	"github.com/dmitrijs2005/docvault/internal/netx"
	"golang.org/x/sync/errgroup"
)

// UploadConcurrency bounds the parallel transfers of UploadMany.
const UploadConcurrency = 4

type UploadResult struct {
	Path string
	URL  string
}

// UploadOutcome is the result of one file of an UploadMany call.
type UploadOutcome struct {
	File   models.NewFile
	Result *UploadResult
	Err    error
}

// Upload stores one file under a fresh path for owner/item.
func (s *S3Storage) Upload(ctx context.Context, ownerID, itemID string, f models.NewFile) (*UploadResult, error) {
	if f.Open == nil {
		return nil, fmt.Errorf("upload %q: no content", f.Name)
	}
	mimeType := f.MimeType
	if mimeType == "" {
		mimeType = filex.DetectMimeType(f.Name, nil)
	}

	nonce, err := s.nonce()
	if err != nil {
		return nil, fmt.Errorf("upload %q: %w", f.Name, err)
	}
	path := BuildPath(ownerID, itemID, nonce, f.Name, s.now())

	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.opts.Bucket),
		Key:         aws.String(path),
		ContentType: aws.String(mimeType),
	}, s3.WithPresignExpires(s.opts.URLExpiry))
	if err != nil {
		s.log.Error(ctx, "presign put failed", "path", path, "error", err)
		return nil, fmt.Errorf("upload %q: presign: %w", f.Name, err)
	}

	body, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("upload %q: open: %w", f.Name, err)
	}
	defer body.Close()

	size := f.Size
	if size <= 0 {
		size = -1
	}
	if err := netx.PutPresigned(ctx, s.http, req.URL, mimeType, body, size); err != nil {
		s.log.Error(ctx, "upload failed", "path", path, "error", err)
		return nil, fmt.Errorf("upload %q: %w", f.Name, err)
	}

	s.log.Debug(ctx, "uploaded", "path", path, "size", f.Size)
	return &UploadResult{Path: path, URL: s.AccessURL(ctx, path)}, nil
}

// UploadMany uploads files concurrently. Outcomes are in input order and
// one failure never stops the others.
func (s *S3Storage) UploadMany(ctx context.Context, ownerID, itemID string, files []models.NewFile) []UploadOutcome {
	out := make([]UploadOutcome, len(files))

	var g errgroup.Group
	g.SetLimit(UploadConcurrency)
	for i, f := range files {
		g.Go(func() error {
			res, err := s.Upload(ctx, ownerID, itemID, f)
			out[i] = UploadOutcome{File: f, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return out
}

// Download writes the object at path into w.
func (s *S3Storage) Download(ctx context.Context, path string, w io.Writer) (int64, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(path),
	}, s3.WithPresignExpires(s.opts.URLExpiry))
	if err != nil {
		s.log.Error(ctx, "presign get failed", "path", path, "error", err)
		return 0, fmt.Errorf("download %s: presign: %w", path, err)
	}

	n, err := netx.GetPresigned(ctx, s.http, req.URL, w)
	if err != nil {
		s.log.Error(ctx, "download failed", "path", path, "error", err)
		return n, fmt.Errorf("download %s: %w", path, err)
	}
	return n, nil
}
