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

package commands

import (
	"slices"
	"strings"
	"time"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/mediasync/pkg/config"
	"github.com/walteh/mediasync/pkg/log"
	"github.com/walteh/mediasync/pkg/operation"
)

// selectCategories keeps the named categories in run order. No names
// selects all of them.
func selectCategories(all []operation.Category, names []string) ([]operation.Category, error) {
	if len(names) == 0 {
		return all, nil
	}

	known := make([]string, 0, len(all))
	for _, c := range all {
		known = append(known, c.Name)
	}
	for _, n := range names {
		if !slices.Contains(known, n) {
			return nil, errors.Errorf("unknown category %q (known: %s)", n, strings.Join(known, ", "))
		}
	}

	out := make([]operation.Category, 0, len(names))
	for _, c := range all {
		if slices.Contains(names, c.Name) {
			out = append(out, c)
		}
	}
	return out, nil
}

func openRunLog(cfg *config.Config, console *log.Logger) (*log.RunLog, error) {
	runLog, err := log.OpenRunLog(cfg.LogDir, time.Now())
	if err != nil {
		return nil, errors.Errorf("opening run log: %w", err)
	}
	if loc := cfg.Location(); loc != "" {
		console.Infof("Config: %s", loc)
	}
	console.Infof("Run log: %s", runLog.Path())
	return runLog, nil
}

func summarize(console *log.Logger, reports []*operation.Report) {
	imported := 0
	for _, r := range reports {
		imported += r.Imported
	}
	console.Successf("%d categories processed, %d files imported", len(reports), imported)
}
