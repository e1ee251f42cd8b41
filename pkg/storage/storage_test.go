package storage

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/epccore/mme-core/pkg/analytics"
)

func TestWriteCDRWritesHeaderAndRow(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStorage(&Config{
		CDREnabled:    true,
		CDRPath:       dir,
		CDRFields:     []string{"imsi", "procedure", "result", "cause"},
		RetentionDays: 30,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Close()

	rec := Record{
		IMSI: "001010000000001",
		Completion: analytics.Completion{
			Procedure: "ATT",
			Result:    analytics.ResultFailure,
			Cause:     96,
		},
		StartTime: time.Now(),
		EndTime:   time.Now(),
	}
	if err := s.WriteCDR(rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected exactly one CDR file, got %v (%v)", entries, err)
	}

	f, err := os.Open(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header + 1 row, got %d rows", len(rows))
	}
	if rows[1][0] != "001010000000001" || rows[1][1] != "ATT" || rows[1][3] != "96" {
		t.Fatalf("unexpected row: %v", rows[1])
	}
}

func TestWriteCDRNoopWhenDisabled(t *testing.T) {
	s, err := NewStorage(&Config{CDREnabled: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Close()

	if err := s.WriteCDR(Record{IMSI: "x"}); err != nil {
		t.Fatalf("expected writing with CDR disabled to be a no-op, got %v", err)
	}
}
