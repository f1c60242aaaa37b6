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

package review

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSession(t *testing.T) {
	s := NewSession([]string{"Sent/IMG-1.jpg", "IMG-2.jpg", "IMG-1.jpg", "a/b/IMG-1.jpg"}, Video)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, Video, s.MediaType)
	assert.Equal(t, []Item{
		{RelativePath: "Sent/IMG-1.jpg", DisplayName: "IMG-1.jpg"},
		{RelativePath: "IMG-2.jpg", DisplayName: "IMG-2.jpg"},
		{RelativePath: "IMG-1.jpg", DisplayName: "2_IMG-1.jpg"},
		{RelativePath: "a/b/IMG-1.jpg", DisplayName: "3_IMG-1.jpg"},
	}, s.Items)

	// a prefixed name may already belong to another candidate
	clash := NewSession([]string{"2_a.jpg", "a.jpg", "d/a.jpg"}, Image)
	assert.Equal(t, []Item{
		{RelativePath: "2_a.jpg", DisplayName: "2_a.jpg"},
		{RelativePath: "a.jpg", DisplayName: "a.jpg"},
		{RelativePath: "d/a.jpg", DisplayName: "3_a.jpg"},
	}, clash.Items)

	other := NewSession(nil, Image)
	assert.NotEqual(t, s.ID, other.ID)
	assert.Empty(t, other.Items)
}

func TestParseMediaType(t *testing.T) {
	tests := []struct {
		in      string
		want    MediaType
		wantErr bool
	}{
		{in: "image", want: Image},
		{in: "Images", want: Image},
		{in: " video ", want: Video},
		{in: "VIDEOS", want: Video},
		{in: "audio", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMediaType(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, strings.TrimSuffix(strings.ToLower(strings.TrimSpace(tt.in)), "s"), got.String())
		})
	}
}

func TestApproveAll(t *testing.T) {
	in := []string{"a", "b"}
	got, err := ApproveAll{}.Review(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, in, got)

	got[0] = "changed"
	assert.Equal(t, "a", in[0])
}
