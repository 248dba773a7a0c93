package config

import (
	"fmt"
	"strings"
	"time"
)

func (c *Config) Validate() error {
	if c.AWS.Region == "" {
		return fmt.Errorf("aws.region is required")
	}
	if c.Schedule.TagKey == "" {
		return fmt.Errorf("schedule.tag_key is required")
	}
	if c.Schedule.GroupTagKey == "" {
		return fmt.Errorf("schedule.group_tag_key is required")
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("schedule.timezone %q is not a valid location: %w", c.Schedule.Timezone, err)
	}

	switch strings.ToLower(strings.TrimSpace(c.Report.Type)) {
	case "":
		// no report sink configured
	case "local":
		if c.Report.Local == nil || c.Report.Local.Path == "" {
			return fmt.Errorf("report.local.path is required for report.type=local")
		}
	case "s3":
		if c.Report.S3 == nil || c.Report.S3.Bucket == "" || c.Report.S3.Region == "" {
			return fmt.Errorf("report.s3.bucket and report.s3.region are required for report.type=s3")
		}
	default:
		return fmt.Errorf("report.type %q is not supported (want local or s3)", c.Report.Type)
	}

	for i, nt := range c.Notifications {
		if nt.Type == "" {
			return fmt.Errorf("notifications[%d].type is required", i)
		}
		if len(nt.On) == 0 {
			return fmt.Errorf("notifications[%d].on is required (success, failure, or both)", i)
		}
	}

	return nil
}

// Location returns the reference zone; call Validate first.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
