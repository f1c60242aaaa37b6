// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gitlab.com/tozd/go/errors"
)

// RunLog is the append-only diagnostics file for one process run. Every raw
// rsync line ends up here, noise included. It is never read back.
type RunLog struct {
	mu   sync.Mutex
	path string
	file *os.File
	w    *bufio.Writer
}

// RunLogName returns the file name used for a run started at t,
// e.g. "Wed-Oct-16-2026-1792137600000".
func RunLogName(t time.Time) string {
	day := strings.ReplaceAll(t.Format("Mon Jan 02 2006"), " ", "-")
	return fmt.Sprintf("%s-%d", day, t.UnixMilli())
}

// OpenRunLog creates dir if needed and opens a fresh run log inside it.
func OpenRunLog(dir string, now time.Time) (*RunLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Errorf("creating log directory: %w", err)
	}

	path := filepath.Join(dir, RunLogName(now))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Errorf("opening run log: %w", err)
	}

	return &RunLog{
		path: path,
		file: f,
		w:    bufio.NewWriter(f),
	}, nil
}

// Path returns the location of the log file.
func (r *RunLog) Path() string {
	return r.path
}

func (r *RunLog) append(prefix, line string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return errors.New("run log is closed")
	}
	if _, err := fmt.Fprintf(r.w, "%s: %s\n", prefix, line); err != nil {
		return errors.Errorf("appending to run log: %w", err)
	}
	if err := r.w.Flush(); err != nil {
		return errors.Errorf("flushing run log: %w", err)
	}
	return nil
}

// RecordOutput appends a stdout line.
func (r *RunLog) RecordOutput(line string) error {
	return r.append("Rsync output", line)
}

// RecordError appends a stderr line.
func (r *RunLog) RecordError(line string) error {
	return r.append("Rsync Error", line)
}

// Close flushes and closes the file. Safe to call more than once.
func (r *RunLog) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return nil
	}
	flushErr := r.w.Flush()
	closeErr := r.file.Close()
	r.file = nil
	if flushErr != nil {
		return errors.Errorf("flushing run log: %w", flushErr)
	}
	if closeErr != nil {
		return errors.Errorf("closing run log: %w", closeErr)
	}
	return nil
}
