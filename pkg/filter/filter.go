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

// Package filter drops synced files that must not be imported.
package filter

import (
	"context"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
)

// StructuralExclusions are always applied: files restored from the phone's
// trash, items re-downloaded from iCloud, and the camera's trash markers.
var StructuralExclusions = []string{
	"Restored/",
	"Downloaded from iCloud/",
	"Camera/.trashed-",
}

// IgnoreRules is loaded once per run and not modified afterwards. The
// zero value still applies StructuralExclusions.
type IgnoreRules struct {
	exactNames     map[string]struct{}
	pathSubstrings []string
	globs          []string
}

// NewIgnoreRules builds rules from exact relative paths, extra path
// substrings and doublestar glob patterns. Exact names are trimmed.
func NewIgnoreRules(exactNames, pathSubstrings, globs []string) IgnoreRules {
	exact := make(map[string]struct{}, len(exactNames))
	for _, n := range exactNames {
		if n = strings.TrimSpace(n); n != "" {
			exact[n] = struct{}{}
		}
	}

	subs := make([]string, 0, len(pathSubstrings))
	for _, s := range pathSubstrings {
		if s != "" {
			subs = append(subs, s)
		}
	}

	return IgnoreRules{
		exactNames:     exact,
		pathSubstrings: subs,
		globs:          append([]string(nil), globs...),
	}
}

// Match reports whether path is ignored and which rule matched.
func (r IgnoreRules) Match(path string) (bool, string) {
	if _, ok := r.exactNames[path]; ok {
		return true, "exact: " + path
	}
	for _, set := range [][]string{StructuralExclusions, r.pathSubstrings} {
		for _, s := range set {
			if strings.Contains(path, s) {
				return true, "substring: " + s
			}
		}
	}
	for _, g := range r.globs {
		// patterns are validated in config, a bad one simply never matches
		if ok, err := doublestar.Match(g, path); err == nil && ok {
			return true, "glob: " + g
		}
	}
	return false, ""
}

// Filter returns files without the ignored ones, preserving order.
func Filter(ctx context.Context, files []string, rules IgnoreRules) []string {
	logger := zerolog.Ctx(ctx)

	kept := make([]string, 0, len(files))
	for _, f := range files {
		if ignored, reason := rules.Match(f); ignored {
			logger.Debug().Str("file", f).Str("rule", reason).Msg("file ignored")
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

// ValidateGlobs checks that every pattern is well formed.
func ValidateGlobs(globs []string) []string {
	var bad []string
	for _, g := range globs {
		if !doublestar.ValidatePattern(g) {
			bad = append(bad, g)
		}
	}
	return bad
}
