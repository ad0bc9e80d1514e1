package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	events "github.com/docker/go-events"
	"github.com/marmos91/dittopnfs/pkg/metrics"
)

// PutObjectAPI is the subset of the S3 client used by S3Sink.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3SinkConfig configures an S3Sink.
type S3SinkConfig struct {
	// Client is the S3 client (required)
	Client PutObjectAPI

	// Bucket receives the report objects (required)
	Bucket string

	// KeyPrefix is prepended to every object key
	KeyPrefix string

	// Timeout bounds a single PutObject call. Default: 10s
	Timeout time.Duration

	// Metrics counts failed uploads. Nil uses the no-op implementation.
	Metrics metrics.TelemetryMetrics
}

// S3Sink archives each report as a JSON object.
//
// Object keys have the form <prefix>/<kind>/<yyyy-mm-dd>/<report id>.json
// using the report's receive date in UTC.
type S3Sink struct {
	client    PutObjectAPI
	bucket    string
	keyPrefix string
	timeout   time.Duration
	metrics   metrics.TelemetryMetrics
}

// NewS3Sink creates an S3Sink.
func NewS3Sink(config S3SinkConfig) (*S3Sink, error) {
	if config.Client == nil {
		return nil, fmt.Errorf("s3 sink: client is required")
	}
	if config.Bucket == "" {
		return nil, fmt.Errorf("s3 sink: bucket is required")
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.Metrics == nil {
		config.Metrics = metrics.NewNoopTelemetryMetrics()
	}

	return &S3Sink{
		client:    config.Client,
		bucket:    config.Bucket,
		keyPrefix: config.KeyPrefix,
		timeout:   config.Timeout,
		metrics:   config.Metrics,
	}, nil
}

// ObjectKey returns the key a report is stored under.
func (s *S3Sink) ObjectKey(report Report) string {
	return path.Join(s.keyPrefix, string(report.Kind),
		report.ReceivedAt.UTC().Format("2006-01-02"), report.ID+".json")
}

// Write implements events.Sink.
func (s *S3Sink) Write(event events.Event) error {
	report, err := asReport(event)
	if err != nil {
		return err
	}

	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("s3 sink: encode report: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.ObjectKey(report)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		s.metrics.RecordSinkError("s3")
		return fmt.Errorf("s3 sink: put %s: %w", report.ID, err)
	}
	return nil
}

// Close implements events.Sink.
func (s *S3Sink) Close() error {
	return nil
}
