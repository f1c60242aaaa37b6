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

package transfer

import (
	"context"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// DefaultBinary is the transfer tool executed by Syncer.
const DefaultBinary = "rsync"

const readChunkSize = 32 * 1024

// 📥 Request describes one remote-to-local directory transfer
type Request struct {
	SourcePath      string // remote directory, no trailing separator
	DestinationPath string // existing local directory, no trailing separator
	DryRun          bool
	Transport       TransportOptions
}

// 📤 Result is the outcome of one transfer run
type Result struct {
	ExitCode       int
	RawCommand     string
	ChangedFiles   []string // relative paths in the order rsync reported them
	NoiseLineCount int
}

// 📝 Recorder receives every raw line rsync produces
type Recorder interface {
	RecordOutput(line string) error
	RecordError(line string) error
}

// Options configures a Syncer.
type Options struct {
	Binary   string   // defaults to DefaultBinary
	Recorder Recorder // optional
}

// 🔄 Syncer runs rsync and turns its output into a changed-file list
type Syncer struct {
	binary   string
	recorder Recorder
}

// New creates a Syncer.
func New(opts Options) *Syncer {
	binary := opts.Binary
	if binary == "" {
		binary = DefaultBinary
	}
	return &Syncer{
		binary:   binary,
		recorder: opts.Recorder,
	}
}

// validate checks the request before anything is executed
func (r Request) validate() error {
	if strings.HasSuffix(r.SourcePath, "/") {
		return &PreconditionError{Path: r.SourcePath, Reason: "source path must not end with /"}
	}
	if strings.HasSuffix(r.DestinationPath, "/") || strings.HasSuffix(r.DestinationPath, string(os.PathSeparator)) {
		return &PreconditionError{Path: r.DestinationPath, Reason: "destination path must not end with /"}
	}
	info, err := os.Stat(r.DestinationPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &PreconditionError{Path: r.DestinationPath, Reason: "backup destination does not exist"}
		}
		return errors.Errorf("checking destination: %w", err)
	}
	if !info.IsDir() {
		return &PreconditionError{Path: r.DestinationPath, Reason: "backup destination is not a directory"}
	}
	return nil
}

// Args returns the rsync arguments for the request.
func (r Request) Args() []string {
	args := []string{"-avt", "--progress"}
	if r.DryRun {
		args = append(args, "--dry-run")
	}
	escapedSource := strings.ReplaceAll(r.SourcePath, " ", `\ `)
	return append(args,
		"--rsh="+BuildShellCommand(r.Transport),
		r.Transport.host()+":"+escapedSource+"/",
		r.DestinationPath+"/",
	)
}

// commandString renders the command line for logs and errors
func commandString(binary string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, binary)
	for _, a := range args {
		if strings.ContainsAny(a, " \t\"'") {
			a = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

// collector gathers classified lines from both stream readers
type collector struct {
	mu       sync.Mutex
	logger   *zerolog.Logger
	recorder Recorder
	result   *Result
	stderr   []string
}

func (c *collector) handle(s Stream, lines []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, line := range lines {
		c.record(s, line)

		if c.isNoise(s, line) {
			c.result.NoiseLineCount++
			c.logger.Trace().Str("stream", s.String()).Str("line", line).Msg("noise")
			continue
		}

		if s == Stderr {
			c.logger.Warn().Str("line", line).Msg("rsync stderr")
			c.stderr = append(c.stderr, line)
			continue
		}

		c.logger.Debug().Str("file", line).Msg("changed file")
		c.result.ChangedFiles = append(c.result.ChangedFiles, line)
	}
}

func (c *collector) isNoise(s Stream, line string) bool {
	if s == Stderr {
		return IsStderrNoise(line)
	}
	return IsNoise(line)
}

func (c *collector) record(s Stream, line string) {
	if c.recorder == nil {
		return
	}
	var err error
	if s == Stderr {
		err = c.recorder.RecordError(line)
	} else {
		err = c.recorder.RecordOutput(line)
	}
	if err != nil {
		c.logger.Warn().Err(err).Msg("writing run log")
	}
}

// drain reads r until EOF and feeds every chunk through the parser
func drain(r io.Reader, s Stream, parser *LineBuffer, c *collector) error {
	buf := make([]byte, readChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			c.handle(s, parser.Feed(buf[:n]))
		}
		if err == io.EOF {
			c.handle(s, parser.Flush())
			return nil
		}
		if err != nil {
			return errors.Errorf("reading %s: %w", s, err)
		}
	}
}

// 🚀 Sync runs rsync for req and returns the files it reported.
//
// Any non-zero exit status yields an *ExitError. Any stderr line that is
// not noise yields a *StderrError, even when rsync exited cleanly.
func (s *Syncer) Sync(ctx context.Context, req Request) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	args := req.Args()
	result := &Result{
		RawCommand:   commandString(s.binary, args),
		ChangedFiles: []string{},
	}

	logger := zerolog.Ctx(ctx).With().
		Str("source", req.SourcePath).
		Str("destination", req.DestinationPath).
		Bool("dry_run", req.DryRun).
		Logger()

	if req.Transport.TrustOnFirstUse() {
		logger.Warn().Str("key", req.Transport.PrivateKeyPath).Msg("host key checking disabled for this transfer")
	}
	logger.Debug().Str("command", result.RawCommand).Msg("running rsync")

	cmd := exec.CommandContext(ctx, s.binary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Errorf("creating stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, errors.Errorf("creating stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, errors.Errorf("starting %s: %w", s.binary, err)
	}

	parser := NewParser()
	c := &collector{
		logger:   &logger,
		recorder: s.recorder,
		result:   result,
	}

	var g errgroup.Group
	g.Go(func() error { return drain(stdout, Stdout, parser.buffer(Stdout), c) })
	g.Go(func() error { return drain(stderr, Stderr, parser.buffer(Stderr), c) })
	readErr := g.Wait()

	waitErr := cmd.Wait()
	if readErr != nil {
		return nil, errors.Errorf("reading rsync output: %w", readErr)
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return nil, errors.Errorf("waiting for rsync: %w", waitErr)
		}
		result.ExitCode = exitErr.ExitCode()
	}

	logger.Debug().
		Int("exit_code", result.ExitCode).
		Int("changed", len(result.ChangedFiles)).
		Int("noise", result.NoiseLineCount).
		Msg("rsync finished")

	if result.ExitCode != 0 {
		return nil, errors.WithStack(&ExitError{Code: result.ExitCode, Command: result.RawCommand, Stderr: c.stderr})
	}
	if len(c.stderr) > 0 {
		return nil, errors.WithStack(&StderrError{Command: result.RawCommand, Lines: c.stderr})
	}

	return result, nil
}
