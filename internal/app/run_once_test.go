package app

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dev-tams/offhours/internal/cloud"
	"github.com/dev-tams/offhours/internal/config"
)

func TestNotificationContextIgnoresParentCancelAndPreservesValues(t *testing.T) {
	type key string
	const k key = "trace"

	parent, stop := context.WithCancel(context.WithValue(context.Background(), k, "abc"))
	stop()

	ctx, cancel := notificationContext(parent)
	defer cancel()

	select {
	case <-ctx.Done():
		t.Fatalf("notification context should not be canceled by parent cancel")
	default:
	}

	if got := ctx.Value(k); got != "abc" {
		t.Fatalf("expected context value to be preserved, got %v", got)
	}
}

func TestNotificationContextAppliesTimeout(t *testing.T) {
	ctx, cancel := notificationContext(context.Background())
	defer cancel()

	dl, ok := ctx.Deadline()
	if !ok {
		t.Fatal("expected deadline to be set")
	}

	remaining := time.Until(dl)
	if remaining <= 0 || remaining > notificationTimeout+time.Second {
		t.Fatalf("unexpected deadline window: %s", remaining)
	}
}

func TestNotificationContextToleratesNilParent(t *testing.T) {
	ctx, cancel := notificationContext(nil)
	defer cancel()

	if _, ok := ctx.Deadline(); !ok {
		t.Fatal("expected deadline to be set")
	}
}

func TestRunOnceEmitsTrailerWhenEnumerationFails(t *testing.T) {
	f := &fakeClient{listMachinesErr: fmt.Errorf("credentials expired")}

	var buf bytes.Buffer
	log := zerolog.New(&buf)

	err := RunOnce(context.Background(), f, testConfig(), false, log)
	if err == nil {
		t.Fatal("expected enumeration failure to abort the run")
	}
	if !strings.Contains(err.Error(), "enumerate machines") {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "run finished") {
		t.Fatalf("expected closing trailer even on a fatal run, log:\n%s", out)
	}
	if !strings.Contains(out, "elapsed") {
		t.Fatalf("expected trailer to carry elapsed time, log:\n%s", out)
	}
}

func TestRunOnceWritesReportAndTrailer(t *testing.T) {
	dir := t.TempDir()

	f := &fakeClient{
		machines: []cloud.Machine{
			{ID: "i-1", Name: "web-1", Tags: map[string]string{"offhours": "Saturday"}},
		},
		states: map[string]cloud.PowerState{"i-1": cloud.StateRunning},
	}

	cfg := testConfig()
	cfg.Report = config.ReportConfig{
		Type:      "local",
		Local:     &config.LocalReportConfig{Path: dir},
		Retention: config.RetentionConfig{KeepDaily: 7},
	}

	var buf bytes.Buffer
	log := zerolog.New(&buf)

	if err := RunOnce(context.Background(), f, cfg, true, log); err != nil {
		t.Fatalf("RunOnce() unexpected error: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read report dir: %v", err)
	}
	if len(entries) != 1 || !strings.HasSuffix(entries[0].Name(), ".json") {
		t.Fatalf("expected a single json report, got %v", entries)
	}

	out := buf.String()
	if !strings.Contains(out, "run report written") {
		t.Fatalf("expected report write log, got:\n%s", out)
	}
	if !strings.Contains(out, "run finished") {
		t.Fatalf("expected closing trailer, got:\n%s", out)
	}
}
