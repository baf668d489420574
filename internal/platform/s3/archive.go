package s3

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/imamik/tradefleet/internal/util/naming"
)

// ObjectStore is the subset of Client the archive needs.
type ObjectStore interface {
	EnsureBucket(ctx context.Context, bucketName string) error
	PutObject(ctx context.Context, bucketName, key, contentType string, data []byte) error
	GetObject(ctx context.Context, bucketName, key string) ([]byte, error)
	ListObjects(ctx context.Context, bucketName, prefix string) ([]string, error)
}

var _ ObjectStore = (*Client)(nil)

// ErrReportNotFound is returned when a run has no archived report.
var ErrReportNotFound = errors.New("report not found")

// Archive stores one JSON report per deployment run.
type Archive struct {
	store  ObjectStore
	bucket string
}

// NewArchive returns an archive writing to bucket.
func NewArchive(store ObjectStore, bucket string) *Archive {
	return &Archive{store: store, bucket: bucket}
}

// Store uploads a run report and returns its object key. The bucket is
// created on first use.
func (a *Archive) Store(ctx context.Context, environment, runID string, report []byte) (string, error) {
	if err := a.store.EnsureBucket(ctx, a.bucket); err != nil {
		return "", err
	}
	key := naming.ReportObject(environment, runID)
	if err := a.store.PutObject(ctx, a.bucket, key, "application/json", report); err != nil {
		return "", err
	}
	return key, nil
}

// Fetch downloads the report of a run.
func (a *Archive) Fetch(ctx context.Context, environment, runID string) ([]byte, error) {
	key := naming.ReportObject(environment, runID)
	data, err := a.store.GetObject(ctx, a.bucket, key)
	if err != nil {
		if isNotFoundError(err) {
			return nil, fmt.Errorf("%w: %s", ErrReportNotFound, key)
		}
		return nil, err
	}
	return data, nil
}

// Runs lists the run ids with an archived report for an environment.
func (a *Archive) Runs(ctx context.Context, environment string) ([]string, error) {
	prefix := path.Dir(naming.ReportObject(environment, "x")) + "/"
	keys, err := a.store.ListObjects(ctx, a.bucket, prefix)
	if err != nil {
		return nil, err
	}

	runs := make([]string, 0, len(keys))
	for _, key := range keys {
		name := strings.TrimPrefix(key, prefix)
		if strings.Contains(name, "/") || !strings.HasSuffix(name, ".json") {
			continue
		}
		runs = append(runs, strings.TrimSuffix(name, ".json"))
	}
	return runs, nil
}
