// Package storage is the object storage gateway: one S3-compatible bucket
// holding attachment blobs under {owner}/{item}/{unixMillis}-{nonce}_{name}
// paths.
//
// Uploads and downloads go through presigned URLs; deletes, listing and
// copies use the S3 API directly.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/filex"
	"github.com/dmitrijs2005/docvault/internal/logging"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}
)

// ObjectAPI is the part of *s3.Client the gateway calls.
type ObjectAPI interface {
	s3.ListObjectsV2APIClient
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	CopyObject(ctx context.Context, in *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
}

// Presigner is the part of *s3.PresignClient the gateway calls.
type Presigner interface {
	PresignPutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type Options struct {
	Bucket        string
	Region        string
	AccessKey     string
	SecretKey     string
	BaseEndpoint  string
	PublicBaseURL string
	URLExpiry     time.Duration
}

type S3Storage struct {
	api     ObjectAPI
	presign Presigner
	http    *http.Client
	opts    Options
	log     logging.Logger
	now     func() time.Time
	nonce   func() (string, error)
}

// New builds the S3 clients from static credentials. BaseEndpoint, when
// set, points the client at an S3-compatible service with path-style
// addressing.
func New(ctx context.Context, opts Options, log logging.Logger) (*S3Storage, error) {
	if opts.Bucket == "" {
		return nil, errors.New("storage: bucket is required")
	}

	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(opts.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(opts.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return NewWithClients(client, newS3PresignClient(client), opts, log), nil
}

// NewWithClients wires already built clients.
func NewWithClients(api ObjectAPI, presign Presigner, opts Options, log logging.Logger) *S3Storage {
	if opts.URLExpiry <= 0 {
		opts.URLExpiry = common.DefaultSignedURLExpiry
	}
	return &S3Storage{
		api:     api,
		presign: presign,
		http:    &http.Client{Timeout: 5 * time.Minute},
		opts:    opts,
		log:     log,
		now:     time.Now,
		nonce:   newNonce,
	}
}

func newNonce() (string, error) {
	return common.MakeRandHexString(common.ObjectNonceSize)
}

// Bucket is the fixed bucket every path lives in.
func (s *S3Storage) Bucket() string {
	return s.opts.Bucket
}

// BuildPath returns {owner}/{itemID}/{unixMillis}-{nonce}_{sanitized name}.
// The item segment is left out when itemID is empty, the nonce when nonce
// is empty.
func BuildPath(ownerID, itemID, nonce, name string, now time.Time) string {
	parts := []string{ownerID}
	if itemID != "" {
		parts = append(parts, itemID)
	}
	stamp := strconv.FormatInt(now.UnixMilli(), 10)
	if nonce != "" {
		stamp += "-" + nonce
	}
	parts = append(parts, stamp+"_"+filex.SanitizeFileName(name))
	return strings.Join(parts, "/")
}

// PublicURL is the unsigned address of path. It only resolves for buckets
// with public read access.
func (s *S3Storage) PublicURL(path string) string {
	base := strings.TrimRight(s.opts.PublicBaseURL, "/")
	if base == "" {
		if s.opts.BaseEndpoint == "" {
			return ""
		}
		base = strings.TrimRight(s.opts.BaseEndpoint, "/") + "/" + s.opts.Bucket
	}
	return base + "/" + escapePath(path)
}

// SignedURL returns a presigned GET url valid for expiry (the configured
// default when expiry <= 0). Failures are logged and yield "".
func (s *S3Storage) SignedURL(ctx context.Context, path string, expiry time.Duration) string {
	if expiry <= 0 {
		expiry = s.opts.URLExpiry
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(path),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		s.log.Warn(ctx, "presign get failed", "path", path, "error", err)
		return ""
	}
	return req.URL
}

// AccessURL is the url recorded for a new attachment: the public one when
// a public base is configured, a presigned one otherwise.
func (s *S3Storage) AccessURL(ctx context.Context, path string) string {
	if s.opts.PublicBaseURL != "" {
		return s.PublicURL(path)
	}
	return s.SignedURL(ctx, path, 0)
}

func escapePath(p string) string {
	segs := strings.Split(p, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return strings.Join(segs, "/")
}
