// Package exports keeps a copy of every generated report in Cloud Storage.
package exports

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"finitefield.org/wheel-of-life/internal/platform/observability"
)

const contentTypePDF = "application/pdf"

// Archiver stores a generated report and returns its object path.
type Archiver interface {
	Archive(ctx context.Context, session, fileName string, pdf []byte) (string, error)
}

// Noop discards reports. It is used when no bucket is configured.
type Noop struct{}

func (Noop) Archive(context.Context, string, string, []byte) (string, error) { return "", nil }

type writerFunc func(ctx context.Context, object string) io.WriteCloser

// GCSArchiver writes reports to a Cloud Storage bucket.
type GCSArchiver struct {
	bucket    string
	newWriter writerFunc
	newID     func() string
}

// NewGCSArchiver archives into bucket using client.
func NewGCSArchiver(client *storage.Client, bucket string) (*GCSArchiver, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, fmt.Errorf("exports: bucket is required")
	}
	handle := client.Bucket(bucket)
	return &GCSArchiver{
		bucket: bucket,
		newWriter: func(ctx context.Context, object string) io.WriteCloser {
			w := handle.Object(object).NewWriter(ctx)
			w.ContentType = contentTypePDF
			w.ContentDisposition = `attachment; filename="` + object[strings.LastIndex(object, "/")+1:] + `"`
			return w
		},
		newID: func() string { return ulid.Make().String() },
	}, nil
}

// Archive uploads pdf under a fresh ULID so reports sort by creation time.
func (a *GCSArchiver) Archive(ctx context.Context, session, fileName string, pdf []byte) (string, error) {
	object, err := ReportPath(session, a.newID(), fileName)
	if err != nil {
		return "", err
	}
	w := a.newWriter(ctx, object)
	if _, err := w.Write(pdf); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("exports: write gs://%s/%s: %w", a.bucket, object, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("exports: finalise gs://%s/%s: %w", a.bucket, object, err)
	}
	observability.FromContext(ctx).Info("report archived",
		zap.String("bucket", a.bucket),
		zap.String("object", object),
		zap.Int("bytes", len(pdf)),
	)
	return object, nil
}
