package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dev-tams/offhours/internal/config"
)

// Record is one machine's line in the run report. Everything the audit
// log says about a machine ends up here too, so a report alone is
// enough to reconstruct a run.
type Record struct {
	Machine  string `json:"machine"`
	Group    string `json:"group,omitempty"`
	Source   string `json:"tag_source,omitempty"`
	Entry    string `json:"matched_entry,omitempty"`
	Desired  string `json:"desired,omitempty"`
	Observed string `json:"observed,omitempty"`
	Action   string `json:"action"`
	Error    string `json:"error,omitempty"`
}

type Report struct {
	StartedAt time.Time `json:"started_at"`
	Duration  string    `json:"duration"`
	Simulate  bool      `json:"simulate"`
	Records   []Record  `json:"records"`
}

type Sink interface {
	Name() string
	// Write stores the report under key and returns the destination
	// (path, s3:// url, ...).
	Write(ctx context.Context, key string, rep Report) (string, error)
}

// FromConfig builds the configured sink, or nil when reporting is off.
func FromConfig(ctx context.Context, cfg config.ReportConfig) (Sink, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "":
		return nil, nil

	case "local":
		if cfg.Local == nil || cfg.Local.Path == "" {
			return nil, fmt.Errorf("report: local.path is required")
		}
		return NewLocal(cfg.Local.Path), nil

	case "s3":
		if cfg.S3 == nil {
			return nil, fmt.Errorf("report: s3 config missing")
		}
		s, err := NewS3(ctx, S3Options{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Prefix:    cfg.S3.Prefix,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
		})
		if err != nil {
			return nil, fmt.Errorf("report: %w", err)
		}
		return s, nil

	default:
		return nil, fmt.Errorf("report: unknown sink type %q", cfg.Type)
	}
}
