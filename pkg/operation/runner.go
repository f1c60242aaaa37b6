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

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/mediasync/pkg/log"
)

// 🔌 CategoryRunner backs up a single category
type CategoryRunner interface {
	Run(ctx context.Context, cat Category) (*Report, error)
}

// 🏃 Runner executes categories strictly one after another
type Runner struct {
	pipeline        CategoryRunner
	continueOnError bool
}

// 🏗️ NewRunner creates a new runner
func NewRunner(pipeline CategoryRunner, continueOnError bool) *Runner {
	return &Runner{
		pipeline:        pipeline,
		continueOnError: continueOnError,
	}
}

// 🏃 RunAll runs every category in order. A failing category stops the run
// unless continueOnError is set, in which case all failures are joined.
func (r *Runner) RunAll(ctx context.Context, cats []Category) ([]*Report, error) {
	logger := zerolog.Ctx(ctx)
	console := log.FromContext(ctx)

	reports := make([]*Report, 0, len(cats))
	var errs []error

	for _, cat := range cats {
		if err := ctx.Err(); err != nil {
			errs = append(errs, errors.Errorf("run cancelled before %s: %w", cat.Name, err))
			break
		}

		console.Header("backing up " + cat.Name)
		report, err := r.pipeline.Run(ctx, cat)
		if report != nil {
			reports = append(reports, report)
			console.Info(report.String())
		}
		console.LogNewline()

		if err != nil {
			logger.Error().Err(err).Str("category", cat.Name).Msg("category failed")
			console.Errorf("%s failed: %v", cat.Name, err)
			errs = append(errs, err)
			if !r.continueOnError {
				break
			}
		}
	}

	if len(errs) > 0 {
		return reports, errors.Join(errs...)
	}
	return reports, nil
}
