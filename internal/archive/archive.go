// Package archive tees raw extracted report rows to S3 before
// transformation, leaving a replayable landing-zone trail.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ignite/ga4-loader/internal/config"
	"github.com/ignite/ga4-loader/internal/report"
)

// putter is the slice of the S3 client the archive calls.
type putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archive writes one JSON object per extraction under
// {prefix}/{property}/{table}/{date}.json.
type S3Archive struct {
	client putter
	bucket string
	prefix string
	now    func() time.Time
}

// New builds an S3Archive against the configured bucket using the default
// AWS credential chain.
func New(ctx context.Context, cfg config.ArchiveConfig) (*S3Archive, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewWithClient(s3.NewFromConfig(awsCfg), cfg.Bucket, cfg.Prefix), nil
}

// NewWithClient wraps an existing client. Used by New and by tests.
func NewWithClient(client putter, bucket, prefix string) *S3Archive {
	return &S3Archive{client: client, bucket: bucket, prefix: prefix, now: time.Now}
}

// payload is the archived object shape: enough context to replay the load
// without the warehouse.
type payload struct {
	PropertyID string       `json:"property_id"`
	Table      string       `json:"table"`
	Date       string       `json:"date"`
	RowCount   int          `json:"row_count"`
	ArchivedAt time.Time    `json:"archived_at"`
	Rows       []report.Row `json:"rows"`
}

// Store writes the raw rows for one extraction. Callers treat failures as
// non-fatal.
func (a *S3Archive) Store(ctx context.Context, propertyID, table, date string, rows []report.Row) error {
	body, err := json.Marshal(payload{
		PropertyID: propertyID,
		Table:      table,
		Date:       date,
		RowCount:   len(rows),
		ArchivedAt: a.now().UTC(),
		Rows:       rows,
	})
	if err != nil {
		return fmt.Errorf("encoding archive payload: %w", err)
	}

	key := a.Key(propertyID, table, date)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("archiving to s3://%s/%s: %w", a.bucket, key, err)
	}
	return nil
}

// Key renders the object key for one extraction.
func (a *S3Archive) Key(propertyID, table, date string) string {
	if a.prefix == "" {
		return fmt.Sprintf("%s/%s/%s.json", propertyID, table, date)
	}
	return fmt.Sprintf("%s/%s/%s/%s.json", a.prefix, propertyID, table, date)
}
