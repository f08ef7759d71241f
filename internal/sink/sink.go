// Package sink persists successful tag results as newline-delimited JSON,
// with optional file splitting and resume support.
package sink

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"cardtag/internal/card"
)

// Sink appends tag results to a rolling set of JSONL files. All mutable
// run state (success count, current file index, per-file count) lives here,
// guarded by one mutex so concurrent workers can hand results over directly.
type Sink struct {
	mu        sync.Mutex
	basePath  string
	splitSize int // successes per file before rolling over; 0 disables
	fileIndex int
	fileCount int
	successes int
	perFile   []int
	logger    *zap.Logger
}

// New creates a sink writing to basePath, rolling to a new part file after
// every splitSize successful writes when splitSize > 0.
func New(basePath string, splitSize int, logger *zap.Logger) *Sink {
	return &Sink{
		basePath:  basePath,
		splitSize: splitSize,
		perFile:   []int{0},
		logger:    logger,
	}
}

// PartPath derives the output filename for a file index: the base path
// unsuffixed for index 0, then "_part2", "_part3", ... inserted before the
// extension.
func PartPath(basePath string, index int) string {
	if index == 0 {
		return basePath
	}
	ext := filepath.Ext(basePath)
	stem := strings.TrimSuffix(basePath, ext)
	return fmt.Sprintf("%s_part%d%s", stem, index+1, ext)
}

// Append writes one result as a JSON line. The file is opened in append
// mode per write and never held open, so interruption leaves a valid
// readable file. The split decision is evaluated per successful write.
func (s *Sink) Append(result card.TagResult) error {
	line, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.splitSize > 0 && s.fileCount >= s.splitSize {
		s.fileIndex++
		s.fileCount = 0
		s.perFile = append(s.perFile, 0)
		s.logger.Info("switching to new output file",
			zap.String("path", PartPath(s.basePath, s.fileIndex)))
	}

	path := PartPath(s.basePath, s.fileIndex)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("failed to append to %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}

	s.successes++
	s.fileCount++
	s.perFile[s.fileIndex]++
	return nil
}

// Resume scans the base file and every existing part file for recorded
// oracle_ids. Lines that fail to parse are skipped with a warning rather
// than aborting the scan: one corrupt line must never forfeit completed
// work. A missing base file yields an empty set.
func (s *Sink) Resume() (map[string]bool, error) {
	processed := make(map[string]bool)

	for index := 0; ; index++ {
		path := PartPath(s.basePath, index)
		if err := s.scanFile(path, processed); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				break
			}
			return nil, err
		}
	}

	return processed, nil
}

func (s *Sink) scanFile(path string, processed map[string]bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var result card.TagResult
		if err := json.Unmarshal([]byte(line), &result); err != nil {
			s.logger.Warn("skipping unparseable line in resume scan",
				zap.String("path", path),
				zap.Int("line", lineNo),
				zap.Error(err))
			continue
		}
		if id := result.OracleID(); id != "" {
			processed[id] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to scan %s: %w", path, err)
	}
	return nil
}

// Reset truncates the base output file. Used when resume is disabled.
func (s *Sink) Reset() error {
	if err := os.WriteFile(s.basePath, nil, 0o644); err != nil {
		return fmt.Errorf("failed to clear %s: %w", s.basePath, err)
	}
	return nil
}

// Successes returns the number of results written this run.
func (s *Sink) Successes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.successes
}

// FileCounts returns the per-file record counts for this run, indexed by
// file index.
func (s *Sink) FileCounts() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.perFile...)
}

// BasePath returns the configured base output path.
func (s *Sink) BasePath() string {
	return s.basePath
}
