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

package operation

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/mediasync/pkg/filter"
	"github.com/walteh/mediasync/pkg/log"
	"github.com/walteh/mediasync/pkg/review"
	"github.com/walteh/mediasync/pkg/transfer"
)

// 📦 Category is one source directory backed up into one archive directory
type Category struct {
	Name        string
	Source      string // remote directory
	Destination string // local archive directory
	MediaType   review.MediaType
	Review      bool // ask the category reviewer before importing
}

// 🔌 Syncer runs one transfer
type Syncer interface {
	Sync(ctx context.Context, req transfer.Request) (*transfer.Result, error)
}

// 📥 Importer copies approved files out of the archive
type Importer interface {
	Import(ctx context.Context, archiveRoot string, files []string) (int, error)
}

// 🔧 Options contains everything a pipeline needs
type Options struct {
	Syncer    Syncer
	Transport transfer.TransportOptions
	// Consent is asked once per category after the dry run.
	Consent review.Reviewer
	// Reviewer builds the reviewer for categories with Review set.
	Reviewer func(Category) review.Reviewer
	Rules    filter.IgnoreRules
	Importer Importer
	// DryRunOnly stops every category after the dry run.
	DryRunOnly bool
}

// 🎮 Pipeline runs categories
type Pipeline struct {
	opts Options
}

// 🏭 New creates a pipeline with the given options
func New(opts Options) (*Pipeline, error) {
	if opts.Syncer == nil {
		return nil, errors.Errorf("syncer is required")
	}
	if !opts.DryRunOnly {
		if opts.Consent == nil {
			return nil, errors.Errorf("consent reviewer is required")
		}
		if opts.Importer == nil {
			return nil, errors.Errorf("importer is required")
		}
	}
	return &Pipeline{opts: opts}, nil
}

// 📋 Report summarizes one category run
type Report struct {
	Category   string
	Candidates []string // reported by the dry run
	Synced     []string // written by the real transfer
	Filtered   []string // synced minus ignored
	Approved   []string // filtered files the reviewer accepted
	Imported   int
	Skipped    bool
	SkipReason string
}

const (
	SkipInSync   = "already in sync"
	SkipDeclined = "declined"
	SkipPreview  = "preview only"
)

func (r *Report) String() string {
	if r.Skipped {
		return fmt.Sprintf("%s: skipped (%s), %d candidates", r.Category, r.SkipReason, len(r.Candidates))
	}
	return fmt.Sprintf("%s: %d candidates, %d synced, %d after filter, %d approved, %d imported",
		r.Category, len(r.Candidates), len(r.Synced), len(r.Filtered), len(r.Approved), r.Imported)
}

func (r *Report) skip(reason string) *Report {
	r.Skipped = true
	r.SkipReason = reason
	return r
}

// 🏃 Run backs up one category
func (p *Pipeline) Run(ctx context.Context, cat Category) (*Report, error) {
	logger := zerolog.Ctx(ctx).With().Str("category", cat.Name).Logger()
	ctx = logger.WithContext(ctx)
	console := log.FromContext(ctx)

	console.StartCategory(ctx, log.CategoryOperation{
		Name:        cat.Name,
		Source:      cat.Source,
		Destination: cat.Destination,
		DryRun:      p.opts.DryRunOnly,
	})
	defer console.EndCategory(ctx)

	report := &Report{Category: cat.Name}

	dry, err := p.sync(ctx, cat, true)
	if err != nil {
		return report, errors.Errorf("dry run of %s: %w", cat.Name, err)
	}
	report.Candidates = dropDirectories(dry.ChangedFiles)

	if len(report.Candidates) == 0 {
		console.Infof("%s is already in sync", cat.Name)
		return report.skip(SkipInSync), nil
	}
	for _, f := range report.Candidates {
		console.LogFileOperation(ctx, log.FileOperation{Path: f, Status: log.FileCandidate})
	}

	if p.opts.DryRunOnly {
		return report.skip(SkipPreview), nil
	}

	if _, err := p.opts.Consent.Review(ctx, report.Candidates); err != nil {
		if errors.Is(err, review.ErrDeclined) {
			console.Warningf("Aborting %s", cat.Name)
			return report.skip(SkipDeclined), nil
		}
		return report, errors.Errorf("asking for consent: %w", err)
	}

	full, err := p.sync(ctx, cat, false)
	if err != nil {
		return report, errors.Errorf("syncing %s: %w", cat.Name, err)
	}
	report.Synced = dropDirectories(full.ChangedFiles)
	for _, f := range report.Synced {
		console.LogFileOperation(ctx, log.FileOperation{Path: f, Status: log.FileSynced})
	}

	report.Filtered = filter.Filter(ctx, report.Synced, p.opts.Rules)
	for _, f := range report.Synced {
		if ignored, reason := p.opts.Rules.Match(f); ignored {
			console.LogFileOperation(ctx, log.FileOperation{Path: f, Status: log.FileIgnored, Reason: reason})
		}
	}

	report.Approved, err = p.review(ctx, cat, report.Filtered)
	if err != nil {
		if errors.Is(err, review.ErrDeclined) {
			console.Warningf("Review of %s declined, nothing imported", cat.Name)
			return report.skip(SkipDeclined), nil
		}
		return report, errors.Errorf("reviewing %s: %w", cat.Name, err)
	}
	for _, f := range rejected(report.Filtered, report.Approved) {
		console.LogFileOperation(ctx, log.FileOperation{Path: f, Status: log.FileRejected})
	}

	if len(report.Approved) == 0 {
		logger.Info().Msg("nothing to import")
		return report, nil
	}

	report.Imported, err = p.opts.Importer.Import(ctx, cat.Destination, report.Approved)
	for _, f := range report.Approved[:report.Imported] {
		console.LogFileOperation(ctx, log.FileOperation{Path: f, Status: log.FileImported})
	}
	if err != nil {
		return report, errors.Errorf("importing %s: %w", cat.Name, err)
	}

	return report, nil
}

func (p *Pipeline) sync(ctx context.Context, cat Category, dryRun bool) (*transfer.Result, error) {
	return p.opts.Syncer.Sync(ctx, transfer.Request{
		SourcePath:      cat.Source,
		DestinationPath: cat.Destination,
		DryRun:          dryRun,
		Transport:       p.opts.Transport,
	})
}

func (p *Pipeline) review(ctx context.Context, cat Category, files []string) ([]string, error) {
	if len(files) == 0 {
		return []string{}, nil
	}
	if !cat.Review || p.opts.Reviewer == nil {
		return review.ApproveAll{}.Review(ctx, files)
	}
	return p.opts.Reviewer(cat).Review(ctx, files)
}

// rsync -v also lists the directories it creates, e.g. "Sent/"
func dropDirectories(files []string) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		if strings.HasSuffix(f, "/") {
			continue
		}
		out = append(out, f)
	}
	return out
}

func rejected(all, approved []string) []string {
	ok := make(map[string]bool, len(approved))
	for _, a := range approved {
		ok[a] = true
	}
	var out []string
	for _, f := range all {
		if !ok[f] {
			out = append(out, f)
		}
	}
	return out
}
