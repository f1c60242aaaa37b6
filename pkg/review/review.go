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

// Package review gates imports behind human approval.
//
// A Reviewer receives the candidate files of one category and returns the
// approved subset, in candidate order. Declining the whole batch is reported
// as ErrDeclined, which callers treat as a skip rather than a failure.
package review

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gitlab.com/tozd/go/errors"
)

// ErrDeclined is returned when the user refuses to proceed.
var ErrDeclined = errors.Base("declined by user")

// Reviewer decides which candidates may continue.
type Reviewer interface {
	Review(ctx context.Context, candidates []string) ([]string, error)
}

// MediaType selects how candidates are previewed.
type MediaType int

const (
	Image MediaType = iota
	Video
)

func (m MediaType) String() string {
	switch m {
	case Image:
		return "image"
	case Video:
		return "video"
	default:
		return fmt.Sprintf("MediaType(%d)", int(m))
	}
}

// ParseMediaType accepts "image" or "video", case-insensitively.
func ParseMediaType(s string) (MediaType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "image", "images":
		return Image, nil
	case "video", "videos":
		return Video, nil
	}
	return 0, errors.Errorf("unknown media type %q", s)
}

// Item is one candidate as shown on the review page.
type Item struct {
	// RelativePath is the path under the archive root; it is also the form field name.
	RelativePath string
	// DisplayName is the file name the preview is served under.
	DisplayName string
}

// Session is one review round.
type Session struct {
	ID        string
	Items     []Item
	MediaType MediaType
}

// NewSession builds a session for candidates. Display names are basenames;
// a basename already taken is prefixed with the candidate's index, counting
// up until the name is free.
func NewSession(candidates []string, mediaType MediaType) *Session {
	taken := make(map[string]bool, len(candidates))
	items := make([]Item, 0, len(candidates))
	for i, c := range candidates {
		base := filepath.Base(c)
		name := base
		for n := i; taken[name]; n++ {
			name = fmt.Sprintf("%d_%s", n, base)
		}
		taken[name] = true
		items = append(items, Item{RelativePath: c, DisplayName: name})
	}
	return &Session{
		ID:        uuid.NewString(),
		Items:     items,
		MediaType: mediaType,
	}
}

// Approved returns the items selected by approve, in session order.
func (s *Session) Approved(approve func(Item) bool) []string {
	out := make([]string, 0, len(s.Items))
	for _, it := range s.Items {
		if approve(it) {
			out = append(out, it.RelativePath)
		}
	}
	return out
}

// ApproveAll approves every candidate without asking.
type ApproveAll struct{}

func (ApproveAll) Review(_ context.Context, candidates []string) ([]string, error) {
	return append([]string{}, candidates...), nil
}
