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
	"bytes"
	"context"
	"testing"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/mediasync/pkg/filter"
	"github.com/walteh/mediasync/pkg/log"
	"github.com/walteh/mediasync/pkg/review"
	"github.com/walteh/mediasync/pkg/transfer"
)

// 🔧 MockSyncer is a mock implementation of the Syncer interface
type MockSyncer struct {
	mock.Mock
}

func (m *MockSyncer) Sync(ctx context.Context, req transfer.Request) (*transfer.Result, error) {
	result := m.Called(ctx, req)
	res, _ := result.Get(0).(*transfer.Result)
	return res, result.Error(1)
}

// 🔧 MockReviewer is a mock implementation of review.Reviewer
type MockReviewer struct {
	mock.Mock
}

func (m *MockReviewer) Review(ctx context.Context, candidates []string) ([]string, error) {
	result := m.Called(ctx, candidates)
	approved, _ := result.Get(0).([]string)
	return approved, result.Error(1)
}

// 🔧 MockImporter is a mock implementation of the Importer interface
type MockImporter struct {
	mock.Mock
}

func (m *MockImporter) Import(ctx context.Context, archiveRoot string, files []string) (int, error) {
	result := m.Called(ctx, archiveRoot, files)
	return result.Int(0), result.Error(1)
}

func testContext(t *testing.T) (context.Context, *bytes.Buffer) {
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = false })

	var console bytes.Buffer
	zlog := zerolog.New(zerolog.NewTestWriter(t))
	ctx := zlog.WithContext(context.Background())
	ctx = log.NewContext(ctx, log.New(&console, zlog))
	return ctx, &console
}

func dryRun(dry bool) any {
	return mock.MatchedBy(func(req transfer.Request) bool { return req.DryRun == dry })
}

var whatsappImages = Category{
	Name:        "whatsapp-images",
	Source:      "/sdcard/WhatsApp/Images",
	Destination: "/backup/WhatsappImages",
	MediaType:   review.Image,
	Review:      true,
}

var camera = Category{
	Name:        "camera",
	Source:      "/sdcard/DCIM/Camera",
	Destination: "/backup",
	MediaType:   review.Image,
}

func TestPipelineFullFlow(t *testing.T) {
	ctx, console := testContext(t)

	syncer := &MockSyncer{}
	consent := &MockReviewer{}
	reviewer := &MockReviewer{}
	importer := &MockImporter{}

	transport := transfer.TransportOptions{RemoteHost: "pixel"}

	syncer.On("Sync", mock.Anything, transfer.Request{
		SourcePath:      whatsappImages.Source,
		DestinationPath: whatsappImages.Destination,
		DryRun:          true,
		Transport:       transport,
	}).Return(&transfer.Result{ChangedFiles: []string{"Sent/", "Sent/IMG-1.jpg", "IMG-2.jpg", "Restored/IMG-3.jpg", "IMG-4.jpg"}}, nil).Once()

	syncer.On("Sync", mock.Anything, transfer.Request{
		SourcePath:      whatsappImages.Source,
		DestinationPath: whatsappImages.Destination,
		DryRun:          false,
		Transport:       transport,
	}).Return(&transfer.Result{ChangedFiles: []string{"Sent/", "Sent/IMG-1.jpg", "IMG-2.jpg", "Restored/IMG-3.jpg", "IMG-4.jpg"}}, nil).Once()

	consent.On("Review", mock.Anything, []string{"Sent/IMG-1.jpg", "IMG-2.jpg", "Restored/IMG-3.jpg", "IMG-4.jpg"}).
		Return([]string{"Sent/IMG-1.jpg", "IMG-2.jpg", "Restored/IMG-3.jpg", "IMG-4.jpg"}, nil).Once()

	// ignored files never reach the reviewer
	reviewer.On("Review", mock.Anything, []string{"Sent/IMG-1.jpg", "IMG-4.jpg"}).
		Return([]string{"IMG-4.jpg"}, nil).Once()

	importer.On("Import", mock.Anything, whatsappImages.Destination, []string{"IMG-4.jpg"}).Return(1, nil).Once()

	var reviewedCategory Category
	p, err := New(Options{
		Syncer:    syncer,
		Transport: transport,
		Consent:   consent,
		Reviewer: func(c Category) review.Reviewer {
			reviewedCategory = c
			return reviewer
		},
		Rules:    filter.NewIgnoreRules([]string{"IMG-2.jpg"}, nil, nil),
		Importer: importer,
	})
	require.NoError(t, err)

	report, err := p.Run(ctx, whatsappImages)
	require.NoError(t, err)

	assert.Equal(t, &Report{
		Category:   "whatsapp-images",
		Candidates: []string{"Sent/IMG-1.jpg", "IMG-2.jpg", "Restored/IMG-3.jpg", "IMG-4.jpg"},
		Synced:     []string{"Sent/IMG-1.jpg", "IMG-2.jpg", "Restored/IMG-3.jpg", "IMG-4.jpg"},
		Filtered:   []string{"Sent/IMG-1.jpg", "IMG-4.jpg"},
		Approved:   []string{"IMG-4.jpg"},
		Imported:   1,
	}, report)
	assert.Equal(t, whatsappImages, reviewedCategory)

	out := console.String()
	assert.Contains(t, out, "[backing up /backup/WhatsappImages]")
	assert.Contains(t, out, "IMG-2.jpg")
	assert.Contains(t, out, "exact: IMG-2.jpg")
	assert.Contains(t, out, "substring: Restored/")
	assert.Contains(t, out, "✗ Sent/IMG-1.jpg")
	assert.Contains(t, out, "✓ IMG-4.jpg")

	mock.AssertExpectationsForObjects(t, syncer, consent, reviewer, importer)
}

func TestPipelineAlreadyInSync(t *testing.T) {
	ctx, console := testContext(t)

	syncer := &MockSyncer{}
	consent := &MockReviewer{}
	reviewer := &MockReviewer{}
	importer := &MockImporter{}

	syncer.On("Sync", mock.Anything, dryRun(true)).Return(&transfer.Result{ChangedFiles: []string{"WhatsApp Images/"}}, nil).Once()

	p, err := New(Options{
		Syncer:   syncer,
		Consent:  consent,
		Reviewer: func(Category) review.Reviewer { return reviewer },
		Importer: importer,
	})
	require.NoError(t, err)

	report, err := p.Run(ctx, whatsappImages)
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.Equal(t, SkipInSync, report.SkipReason)
	assert.Empty(t, report.Candidates)
	assert.Contains(t, console.String(), "already in sync")

	syncer.AssertExpectations(t)
	syncer.AssertNumberOfCalls(t, "Sync", 1)
	consent.AssertNotCalled(t, "Review", mock.Anything, mock.Anything)
	reviewer.AssertNotCalled(t, "Review", mock.Anything, mock.Anything)
	importer.AssertNotCalled(t, "Import", mock.Anything, mock.Anything, mock.Anything)
}

func TestPipelineConsentDeclined(t *testing.T) {
	ctx, console := testContext(t)

	syncer := &MockSyncer{}
	consent := &MockReviewer{}
	importer := &MockImporter{}

	syncer.On("Sync", mock.Anything, dryRun(true)).Return(&transfer.Result{ChangedFiles: []string{"IMG_1.jpg"}}, nil).Once()
	consent.On("Review", mock.Anything, []string{"IMG_1.jpg"}).Return(nil, review.ErrDeclined).Once()

	p, err := New(Options{Syncer: syncer, Consent: consent, Importer: importer})
	require.NoError(t, err)

	report, err := p.Run(ctx, camera)
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.Equal(t, SkipDeclined, report.SkipReason)
	assert.Equal(t, []string{"IMG_1.jpg"}, report.Candidates)
	assert.Contains(t, console.String(), "Aborting "+camera.Name)

	syncer.AssertNumberOfCalls(t, "Sync", 1)
	importer.AssertNotCalled(t, "Import", mock.Anything, mock.Anything, mock.Anything)
}

func TestPipelineReviewDeclined(t *testing.T) {
	ctx, console := testContext(t)

	syncer := &MockSyncer{}
	consent := &MockReviewer{}
	reviewer := &MockReviewer{}
	importer := &MockImporter{}

	syncer.On("Sync", mock.Anything, mock.Anything).Return(&transfer.Result{ChangedFiles: []string{"IMG-1.jpg"}}, nil).Twice()
	consent.On("Review", mock.Anything, mock.Anything).Return([]string{"IMG-1.jpg"}, nil).Once()
	reviewer.On("Review", mock.Anything, []string{"IMG-1.jpg"}).Return(nil, review.ErrDeclined).Once()

	p, err := New(Options{
		Syncer:   syncer,
		Consent:  consent,
		Reviewer: func(Category) review.Reviewer { return reviewer },
		Importer: importer,
	})
	require.NoError(t, err)

	report, err := p.Run(ctx, whatsappImages)
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.Equal(t, []string{"IMG-1.jpg"}, report.Synced)
	assert.Contains(t, console.String(), "Review of "+whatsappImages.Name+" declined")
	importer.AssertNotCalled(t, "Import", mock.Anything, mock.Anything, mock.Anything)
}

func TestPipelineCategoryWithoutReview(t *testing.T) {
	ctx, _ := testContext(t)

	syncer := &MockSyncer{}
	consent := &MockReviewer{}
	importer := &MockImporter{}

	syncer.On("Sync", mock.Anything, mock.Anything).Return(&transfer.Result{ChangedFiles: []string{"IMG_1.jpg", "IMG_2.jpg"}}, nil).Twice()
	consent.On("Review", mock.Anything, mock.Anything).Return([]string{"IMG_1.jpg", "IMG_2.jpg"}, nil).Once()
	importer.On("Import", mock.Anything, "/backup", []string{"IMG_1.jpg", "IMG_2.jpg"}).Return(2, nil).Once()

	p, err := New(Options{
		Syncer:  syncer,
		Consent: consent,
		Reviewer: func(Category) review.Reviewer {
			t.Fatal("camera has no review")
			return nil
		},
		Importer: importer,
	})
	require.NoError(t, err)

	report, err := p.Run(ctx, camera)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Imported)
	assert.Equal(t, []string{"IMG_1.jpg", "IMG_2.jpg"}, report.Approved)
	mock.AssertExpectationsForObjects(t, syncer, consent, importer)
}

func TestPipelineFailures(t *testing.T) {
	exitErr := errors.WithStack(&transfer.ExitError{Code: 12, Command: "rsync -avt"})

	tests := []struct {
		name       string
		setup      func(s *MockSyncer, c *MockReviewer, i *MockImporter)
		wantErr    string
		wantReport func(t *testing.T, r *Report)
	}{
		{
			name: "dry_run_fails",
			setup: func(s *MockSyncer, c *MockReviewer, i *MockImporter) {
				s.On("Sync", mock.Anything, dryRun(true)).Return(nil, exitErr)
			},
			wantErr: "dry run of camera",
		},
		{
			name: "real_run_fails",
			setup: func(s *MockSyncer, c *MockReviewer, i *MockImporter) {
				s.On("Sync", mock.Anything, dryRun(true)).Return(&transfer.Result{ChangedFiles: []string{"a.jpg"}}, nil)
				s.On("Sync", mock.Anything, dryRun(false)).Return(nil, exitErr)
				c.On("Review", mock.Anything, mock.Anything).Return([]string{"a.jpg"}, nil)
			},
			wantErr: "syncing camera",
			wantReport: func(t *testing.T, r *Report) {
				assert.Equal(t, []string{"a.jpg"}, r.Candidates)
			},
		},
		{
			name: "consent_fails",
			setup: func(s *MockSyncer, c *MockReviewer, i *MockImporter) {
				s.On("Sync", mock.Anything, dryRun(true)).Return(&transfer.Result{ChangedFiles: []string{"a.jpg"}}, nil)
				c.On("Review", mock.Anything, mock.Anything).Return(nil, errors.New("stdin closed"))
			},
			wantErr: "asking for consent",
		},
		{
			name: "import_fails_partway",
			setup: func(s *MockSyncer, c *MockReviewer, i *MockImporter) {
				s.On("Sync", mock.Anything, mock.Anything).Return(&transfer.Result{ChangedFiles: []string{"a.jpg", "b.jpg"}}, nil)
				c.On("Review", mock.Anything, mock.Anything).Return([]string{"a.jpg", "b.jpg"}, nil)
				i.On("Import", mock.Anything, "/backup", []string{"a.jpg", "b.jpg"}).Return(1, errors.New("disk full"))
			},
			wantErr: "importing camera",
			wantReport: func(t *testing.T, r *Report) {
				assert.Equal(t, 1, r.Imported)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, _ := testContext(t)
			s, c, i := &MockSyncer{}, &MockReviewer{}, &MockImporter{}
			tt.setup(s, c, i)

			p, err := New(Options{Syncer: s, Consent: c, Importer: i})
			require.NoError(t, err)

			report, err := p.Run(ctx, camera)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			require.NotNil(t, report)
			if tt.wantReport != nil {
				tt.wantReport(t, report)
			}
		})
	}

	t.Run("exit_error_is_preserved", func(t *testing.T) {
		ctx, _ := testContext(t)
		s := &MockSyncer{}
		s.On("Sync", mock.Anything, mock.Anything).Return(nil, exitErr)

		p, err := New(Options{Syncer: s, Consent: &MockReviewer{}, Importer: &MockImporter{}})
		require.NoError(t, err)

		_, err = p.Run(ctx, camera)
		var ee *transfer.ExitError
		require.True(t, errors.As(err, &ee))
		assert.Equal(t, 12, ee.Code)
	})
}

func TestPipelinePreview(t *testing.T) {
	ctx, console := testContext(t)

	syncer := &MockSyncer{}
	syncer.On("Sync", mock.Anything, dryRun(true)).Return(&transfer.Result{ChangedFiles: []string{"IMG_1.jpg"}}, nil).Once()

	p, err := New(Options{Syncer: syncer, DryRunOnly: true})
	require.NoError(t, err)

	report, err := p.Run(ctx, camera)
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.Equal(t, SkipPreview, report.SkipReason)
	assert.Equal(t, []string{"IMG_1.jpg"}, report.Candidates)
	assert.Contains(t, console.String(), "IMG_1.jpg")
	syncer.AssertNumberOfCalls(t, "Sync", 1)
}

func TestNewValidatesOptions(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr string
	}{
		{name: "no_syncer", opts: Options{}, wantErr: "syncer is required"},
		{name: "no_consent", opts: Options{Syncer: &MockSyncer{}, Importer: &MockImporter{}}, wantErr: "consent reviewer is required"},
		{name: "no_importer", opts: Options{Syncer: &MockSyncer{}, Consent: &MockReviewer{}}, wantErr: "importer is required"},
		{name: "preview_needs_only_syncer", opts: Options{Syncer: &MockSyncer{}, DryRunOnly: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestReportString(t *testing.T) {
	r := &Report{Category: "camera", Candidates: []string{"a", "b"}, Synced: []string{"a", "b"}, Filtered: []string{"a"}, Approved: []string{"a"}, Imported: 1}
	assert.Equal(t, "camera: 2 candidates, 2 synced, 1 after filter, 1 approved, 1 imported", r.String())

	s := (&Report{Category: "camera"}).skip(SkipInSync)
	assert.Equal(t, "camera: skipped (already in sync), 0 candidates", s.String())
}
