// Package storage writes rotating CDR (Call Detail Record) files for
// completed EMM/ESM procedures, adapted from the teacher's
// pkg/storage/storage.go. The teacher's EventWriter (raw decoded-message
// JSONL dump) is dropped: this core exposes no generic protocol-decoder
// surface for it to archive, only completed procedures, which the CDR
// writer already covers (see DESIGN.md).
package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/epccore/mme-core/pkg/analytics"
)

// Storage owns the CDR writer and its retention cleanup routine.
type Storage struct {
	config    *Config
	cdrWriter *CDRWriter
	mu        sync.Mutex
}

// Config holds storage configuration.
type Config struct {
	CDREnabled    bool
	CDRPath       string
	CDRFields     []string
	RetentionDays int
}

// CDRWriter writes completed-procedure CDRs to rotating CSV files.
type CDRWriter struct {
	basePath   string
	file       *os.File
	writer     *csv.Writer
	fields     []string
	lastRotate time.Time
	mu         sync.Mutex
}

// Record is one completed-procedure CDR.
type Record struct {
	IMSI         string
	MMEUES1APID  uint32
	Completion   analytics.Completion
	EBI          uint8
	StartTime    time.Time
	EndTime      time.Time
	PLMN         string
	TAC          uint16
	APN          string
}

// NewStorage creates a new storage instance and starts its retention
// cleanup routine.
func NewStorage(config *Config) (*Storage, error) {
	storage := &Storage{config: config}

	if config.CDREnabled {
		cdrWriter, err := NewCDRWriter(config.CDRPath, config.CDRFields)
		if err != nil {
			return nil, fmt.Errorf("failed to create CDR writer: %w", err)
		}
		storage.cdrWriter = cdrWriter
	}

	go storage.cleanupRoutine()

	return storage, nil
}

// NewCDRWriter creates a new CDR writer.
func NewCDRWriter(basePath string, fields []string) (*CDRWriter, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, err
	}

	writer := &CDRWriter{
		basePath:   basePath,
		fields:     fields,
		lastRotate: time.Now(),
	}

	if err := writer.rotate(); err != nil {
		return nil, err
	}

	return writer, nil
}

// WriteCDR writes a CDR for one completed procedure.
func (s *Storage) WriteCDR(rec Record) error {
	if !s.config.CDREnabled || s.cdrWriter == nil {
		return nil
	}
	return s.cdrWriter.Write(rec)
}

// Write writes a record, rotating to a new file once the current one is
// more than an hour old.
func (w *CDRWriter) Write(rec Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if time.Since(w.lastRotate) > time.Hour {
		if err := w.rotate(); err != nil {
			return err
		}
	}

	if err := w.writer.Write(w.buildRecord(rec)); err != nil {
		return err
	}

	w.writer.Flush()
	return w.writer.Error()
}

func (w *CDRWriter) buildRecord(rec Record) []string {
	record := make([]string, len(w.fields))

	for i, field := range w.fields {
		switch field {
		case "imsi":
			record[i] = rec.IMSI
		case "mme_ue_s1ap_id":
			record[i] = fmt.Sprintf("%d", rec.MMEUES1APID)
		case "procedure":
			record[i] = rec.Completion.Procedure
		case "ebi":
			record[i] = fmt.Sprintf("%d", rec.EBI)
		case "start_time":
			record[i] = rec.StartTime.Format(time.RFC3339)
		case "end_time":
			record[i] = rec.EndTime.Format(time.RFC3339)
		case "duration_ms":
			record[i] = fmt.Sprintf("%d", rec.Completion.Duration.Milliseconds())
		case "result":
			record[i] = resultString(rec.Completion.Result)
		case "cause":
			record[i] = fmt.Sprintf("%d", rec.Completion.Cause)
		case "plmn":
			record[i] = rec.PLMN
		case "tac":
			record[i] = fmt.Sprintf("%d", rec.TAC)
		case "apn":
			record[i] = rec.APN
		default:
			record[i] = ""
		}
	}

	return record
}

func resultString(r analytics.Result) string {
	switch r {
	case analytics.ResultSuccess:
		return "success"
	case analytics.ResultFailure:
		return "failure"
	case analytics.ResultTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

func (w *CDRWriter) rotate() error {
	if w.writer != nil {
		w.writer.Flush()
	}
	if w.file != nil {
		w.file.Close()
	}

	filename := fmt.Sprintf("cdr_%s.csv", time.Now().Format("2006-01-02_15"))
	path := filepath.Join(w.basePath, filename)

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	w.file = file
	w.writer = csv.NewWriter(file)

	if stat, err := file.Stat(); err == nil && stat.Size() == 0 {
		if err := w.writer.Write(w.fields); err != nil {
			return err
		}
		w.writer.Flush()
	}

	w.lastRotate = time.Now()
	return nil
}

// Close flushes and closes the CDR writer.
func (w *CDRWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.writer != nil {
		w.writer.Flush()
	}
	if w.file != nil {
		return w.file.Close()
	}
	return nil
}

func (s *Storage) cleanupRoutine() {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		s.cleanup()
	}
}

func (s *Storage) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.config.CDREnabled {
		return
	}

	cutoff := time.Now().AddDate(0, 0, -s.config.RetentionDays)
	s.cleanupDirectory(s.config.CDRPath, cutoff)
}

func (s *Storage) cleanupDirectory(dirPath string, cutoff time.Time) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			os.Remove(filepath.Join(dirPath, entry.Name()))
		}
	}
}

// Close closes the CDR writer.
func (s *Storage) Close() error {
	if s.cdrWriter != nil {
		s.cdrWriter.Close()
	}
	return nil
}
