package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Skotchmaster/roadblock/internal/config"
)

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

var (
	ErrNotImage = errors.New("file is not an image")
	ErrDisabled = errors.New("image storage is not configured")
)

// ObjectPutter is the part of the S3 client the store uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Upload is the result of one stored image. Records keep PublicID; URL is
// for immediate display.
type Upload struct {
	PublicID string `json:"publicId"`
	URL      string `json:"url"`
}

type Store struct {
	client    ObjectPutter
	bucket    string
	publicURL string
	prefix    string
	now       func() time.Time
}

func New(ctx context.Context, cfg config.Images) (*Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("images: load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewWithClient(client, cfg), nil
}

func NewWithClient(client ObjectPutter, cfg config.Images) *Store {
	prefix := cfg.UploadPreset
	if prefix == "" {
		prefix = "roadblock"
	}
	return &Store{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		prefix:    prefix,
		now:       time.Now,
	}
}

func (s *Store) key(filename string) string {
	d := s.now().UTC()
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("%s/%d/%02d/%02d/%s%s", s.prefix, d.Year(), d.Month(), d.Day(), uuid.New(), ext)
}

func (s *Store) Put(ctx context.Context, filename, contentType string, body io.Reader, size int64) (Upload, error) {
	if s == nil {
		return Upload{}, ErrDisabled
	}
	if !strings.HasPrefix(contentType, "image/") {
		return Upload{}, ErrNotImage
	}

	key := s.key(filename)
	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if size > 0 {
		in.ContentLength = aws.Int64(size)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return Upload{}, fmt.Errorf("images: put %s: %w", key, err)
	}

	return Upload{PublicID: key, URL: s.publicURL + "/" + key}, nil
}

func (s *Store) PutFile(ctx context.Context, fh *multipart.FileHeader) (Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return Upload{}, fmt.Errorf("images: open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		head := make([]byte, 512)
		n, _ := io.ReadFull(f, head)
		contentType = http.DetectContentType(head[:n])
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return Upload{}, fmt.Errorf("images: rewind %s: %w", fh.Filename, err)
		}
	}
	return s.Put(ctx, fh.Filename, contentType, f, fh.Size)
}

// PutFiles uploads every file concurrently and waits for all of them. The
// first failure cancels the rest.
func (s *Store) PutFiles(ctx context.Context, files map[string]*multipart.FileHeader) (map[string]Upload, error) {
	out := make(map[string]Upload, len(files))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for field, fh := range files {
		g.Go(func() error {
			up, err := s.PutFile(gctx, fh)
			if err != nil {
				return fmt.Errorf("%s: %w", field, err)
			}
			mu.Lock()
			out[field] = up
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
