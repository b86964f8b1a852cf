package main

import (
	"fmt"
	"testing"

	"github.com/spf13/cobra"

	"github.com/sadopc/goaltrack/internal/domain"
	"github.com/sadopc/goaltrack/internal/identity"
)

func TestFormatSeconds(t *testing.T) {
	tests := []struct {
		secs int64
		want string
	}{
		{0, "0s"},
		{-5, "0s"},
		{45, "45s"},
		{90, "1m30s"},
		{3725, "1h2m5s"},
	}
	for _, tt := range tests {
		if got := formatSeconds(tt.secs); got != tt.want {
			t.Errorf("formatSeconds(%d) = %q, want %q", tt.secs, got, tt.want)
		}
	}
}

func TestIsSignedOut(t *testing.T) {
	if !isSignedOut(domain.ErrNotSignedIn) {
		t.Fatal("expected ErrNotSignedIn to count as signed out")
	}
	if !isSignedOut(fmt.Errorf("restore: %w", identity.ErrSessionExpired)) {
		t.Fatal("expected a wrapped expiry to count as signed out")
	}
	if isSignedOut(fmt.Errorf("disk full")) {
		t.Fatal("expected an unrelated error not to count as signed out")
	}
}

func TestSuggestRequiresTask(t *testing.T) {
	cmd := suggestCmd()
	flag := cmd.Flags().Lookup("task")
	if flag == nil {
		t.Fatal("expected a --task flag")
	}
	if _, ok := flag.Annotations[cobra.BashCompOneRequiredFlag]; !ok {
		t.Fatal("expected --task to be required")
	}
}

func TestExportDefaultsToCSV(t *testing.T) {
	flag := exportCmd().Flags().Lookup("format")
	if flag == nil || flag.DefValue != "csv" {
		t.Fatalf("expected --format to default to csv, got %+v", flag)
	}
}
