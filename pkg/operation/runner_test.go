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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

// 🔧 fakePipeline records the order categories are run in
type fakePipeline struct {
	fail   map[string]error
	ran    []string
	active int
	maxAct int
}

func (f *fakePipeline) Run(ctx context.Context, cat Category) (*Report, error) {
	f.active++
	defer func() { f.active-- }()
	if f.active > f.maxAct {
		f.maxAct = f.active
	}
	f.ran = append(f.ran, cat.Name)
	if err := f.fail[cat.Name]; err != nil {
		return &Report{Category: cat.Name}, err
	}
	return &Report{Category: cat.Name, Imported: 1}, nil
}

func categories(names ...string) []Category {
	cats := make([]Category, 0, len(names))
	for _, n := range names {
		cats = append(cats, Category{Name: n})
	}
	return cats
}

func TestRunnerRunAll(t *testing.T) {
	errImages := errors.New("images failed")
	errVideos := errors.New("videos failed")

	tests := []struct {
		name            string
		fail            map[string]error
		continueOnError bool
		wantRan         []string
		wantErrs        []error
	}{
		{
			name:    "all_succeed",
			wantRan: []string{"camera", "images", "videos"},
		},
		{
			name:     "stop_on_first_error",
			fail:     map[string]error{"images": errImages},
			wantRan:  []string{"camera", "images"},
			wantErrs: []error{errImages},
		},
		{
			name:            "continue_on_error",
			fail:            map[string]error{"images": errImages, "videos": errVideos},
			continueOnError: true,
			wantRan:         []string{"camera", "images", "videos"},
			wantErrs:        []error{errImages, errVideos},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, console := testContext(t)
			fake := &fakePipeline{fail: tt.fail}

			reports, err := NewRunner(fake, tt.continueOnError).RunAll(ctx, categories("camera", "images", "videos"))

			assert.Equal(t, tt.wantRan, fake.ran)
			assert.Equal(t, 1, fake.maxAct, "categories must not overlap")
			assert.Len(t, reports, len(tt.wantRan))
			assert.Contains(t, console.String(), "camera: 0 candidates")

			if len(tt.wantErrs) == 0 {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantErrs {
				assert.ErrorIs(t, err, want)
			}
		})
	}
}

func TestRunnerCancelled(t *testing.T) {
	ctx, _ := testContext(t)
	ctx, cancel := context.WithCancel(ctx)
	cancel()

	fake := &fakePipeline{}
	reports, err := NewRunner(fake, true).RunAll(ctx, categories("camera"))
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, reports)
	assert.Empty(t, fake.ran)
}
