package config

import (
	"strings"
	"testing"
)

func baseValidConfig() *Config {
	return &Config{
		AWS: AWSConfig{
			Region: "eu-west-1",
		},
		Schedule: ScheduleConfig{
			TagKey:      "offhours",
			GroupTagKey: "resource-group",
			Timezone:    "UTC",
		},
	}
}

func TestValidateAcceptsMinimalConfig(t *testing.T) {
	cfg := baseValidConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}
}

func TestValidateRequiresRegion(t *testing.T) {
	cfg := baseValidConfig()
	cfg.AWS.Region = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error, got nil")
	}
	if !strings.Contains(err.Error(), "aws.region") {
		t.Fatalf("expected aws.region error, got: %v", err)
	}
}

func TestValidateRejectsBogusTimezone(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Schedule.Timezone = "Mars/Olympus_Mons"

	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected timezone validation error, got nil")
	}
}

func TestValidateReportSink(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Report.Type = "local"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for local report without path")
	}

	cfg.Report.Local = &LocalReportConfig{Path: "/var/lib/offhours/reports"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}

	cfg.Report.Type = "ftp"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for unsupported report type")
	}
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cfg := baseValidConfig()
	if got := cfg.Location().String(); got != "UTC" {
		t.Fatalf("Location() = %q, want UTC", got)
	}

	cfg.Schedule.Timezone = "not-a-zone"
	if got := cfg.Location().String(); got != "UTC" {
		t.Fatalf("Location() with bad zone = %q, want UTC fallback", got)
	}
}
