package observability_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hotel_booking/internal/adapters/observability"
)

func TestNewLogger_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "booking.log")
	l := observability.NewLogger("prod", path)
	l.Info().Str("hotel_id", "H1").Msg("booking finished")

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(b), `"hotel_id":"H1"`) {
		t.Fatalf("expected JSON line in log file, got %s", b)
	}
}
