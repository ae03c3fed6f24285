package dev

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/vango-dev/enhance/internal/config"
	"github.com/vango-dev/enhance/internal/errors"
)

// TemplateSource resolves a page route to its server markup.
type TemplateSource interface {
	// Read returns the markup for route. A missing page is reported as an
	// E048 error that matches fs.ErrNotExist.
	Read(ctx context.Context, route string) ([]byte, error)
}

// OpenTemplates builds the source selected by cfg.Templates.Driver.
func OpenTemplates(ctx context.Context, cfg *config.Config) (TemplateSource, error) {
	switch cfg.Templates.Driver {
	case "", config.DriverDir:
		return NewDirSource(cfg.TemplatePath()), nil
	case config.DriverS3:
		return NewS3Source(ctx, cfg.Templates.S3)
	default:
		return nil, errors.New("E120").WithDetail("unknown templates driver " + cfg.Templates.Driver)
	}
}

// templateNames returns the candidate file names for route, relative to the
// template root, in lookup order. "/" maps to index.html and "/about" to
// about.html, then about/index.html.
func templateNames(route string) []string {
	clean := strings.Trim(path.Clean("/"+route), "/")
	if clean == "" {
		return []string{"index.html"}
	}
	if path.Ext(clean) != "" {
		return []string{clean}
	}
	return []string{clean + ".html", clean + "/index.html"}
}

// checkRoute rejects routes that climb out of the template root.
func checkRoute(route string) error {
	for _, seg := range strings.FieldsFunc(route, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return errors.New("E047").WithDetail(route)
		}
	}
	return nil
}

func notFound(route string) error {
	return errors.New("E048").WithDetail(route).Wrap(fs.ErrNotExist)
}

// DirSource reads templates from a directory.
type DirSource struct {
	root string
}

// NewDirSource creates a source rooted at dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{root: dir}
}

// Root returns the template directory.
func (d *DirSource) Root() string { return d.root }

// Read implements TemplateSource.
func (d *DirSource) Read(_ context.Context, route string) ([]byte, error) {
	if err := checkRoute(route); err != nil {
		return nil, err
	}
	for _, name := range templateNames(route) {
		full := filepath.Join(d.root, filepath.FromSlash(name))
		if !isWithinDir(full, d.root) {
			return nil, errors.New("E047").WithDetail(route)
		}
		data, err := os.ReadFile(full)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, errors.New("E048").WithDetail(route).Wrap(err)
		}
	}
	return nil, notFound(route)
}

// S3Source reads templates from an S3-compatible bucket.
type S3Source struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Source creates a source from cfg. Credentials come from the default
// AWS chain.
func NewS3Source(ctx context.Context, cfg config.S3Config) (*S3Source, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("E120").WithDetail("templates.s3.bucket is required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, errors.New("E120").WithDetail("aws config").Wrap(err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewS3SourceFromClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewS3SourceFromClient wraps an existing client.
func NewS3SourceFromClient(client *s3.Client, bucket, prefix string) *S3Source {
	return &S3Source{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Read implements TemplateSource.
func (s *S3Source) Read(ctx context.Context, route string) ([]byte, error) {
	if err := checkRoute(route); err != nil {
		return nil, err
	}
	for _, name := range templateNames(route) {
		key := name
		if s.prefix != "" {
			key = s.prefix + "/" + name
		}
		out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			var missing *types.NoSuchKey
			if errors.As(err, &missing) {
				continue
			}
			return nil, errors.New("E048").WithDetail(route).Wrap(err)
		}
		data, err := io.ReadAll(out.Body)
		out.Body.Close()
		if err != nil {
			return nil, errors.New("E048").WithDetail(route).Wrap(err)
		}
		return data, nil
	}
	return nil, notFound(route)
}

func isWithinDir(p, dir string) bool {
	absPath, err := filepath.Abs(p)
	if err != nil {
		return false
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	absPath = filepath.Clean(absPath)
	absDir = filepath.Clean(absDir)
	if absPath == absDir {
		return true
	}
	if !strings.HasSuffix(absDir, string(os.PathSeparator)) {
		absDir += string(os.PathSeparator)
	}
	return strings.HasPrefix(absPath, absDir)
}
