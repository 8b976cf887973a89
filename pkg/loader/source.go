package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Source fetches module content by identifier.
type Source interface {
	Fetch(ctx context.Context, id string) ([]byte, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, id string) ([]byte, error)

// Fetch calls f.
func (f SourceFunc) Fetch(ctx context.Context, id string) ([]byte, error) {
	return f(ctx, id)
}

// Loaders returns one LoadFunc per identifier, in order.
func Loaders(src Source, ids []string) []LoadFunc {
	loaders := make([]LoadFunc, len(ids))
	for i, id := range ids {
		loaders[i] = func(ctx context.Context) (*Module, error) {
			data, err := src.Fetch(ctx, id)
			if err != nil {
				return nil, err
			}
			return &Module{Index: i, ID: id, Source: data}, nil
		}
	}
	return loaders
}

// FileSource reads modules from a directory.
type FileSource struct {
	dir string
}

// NewFileSource creates a source rooted at dir.
func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

// Fetch reads dir/id. Identifiers must stay inside the directory.
func (s *FileSource) Fetch(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := filepath.FromSlash(id)
	if !filepath.IsLocal(name) {
		return nil, fmt.Errorf("module id %q escapes source directory", id)
	}

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, id)
	}
	return data, err
}

// ObjectGetter is the part of *s3.Client used by S3Source.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads modules from an S3 bucket.
//
// Example usage:
//
//	client := s3.New(s3.Options{Region: "eu-west-3"})
//	src := loader.NewS3Source(client, "my-bucket", "build/client/")
type S3Source struct {
	client ObjectGetter
	bucket string
	prefix string
}

// NewS3Source creates a source for bucket. Keys are prefix joined with the
// module identifier.
func NewS3Source(client ObjectGetter, bucket, prefix string) *S3Source {
	return &S3Source{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

// Key returns the object key for a module identifier.
func (s *S3Source) Key(id string) string {
	if s.prefix == "" {
		return id
	}
	return path.Join(s.prefix, id)
}

// Fetch downloads the module object.
func (s *S3Source) Fetch(ctx context.Context, id string) ([]byte, error) {
	key := s.Key(id)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%w: s3://%s/%s", ErrModuleNotFound, s.bucket, key)
		}
		return nil, fmt.Errorf("s3 get %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read %s: %w", key, err)
	}
	return data, nil
}
