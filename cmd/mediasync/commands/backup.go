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
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/mediasync/cmd/mediasync/opts"
	"github.com/walteh/mediasync/pkg/config"
	"github.com/walteh/mediasync/pkg/importer"
	"github.com/walteh/mediasync/pkg/log"
	"github.com/walteh/mediasync/pkg/operation"
	"github.com/walteh/mediasync/pkg/review"
	"github.com/walteh/mediasync/pkg/transfer"
)

// NewBackupCmd creates the backup command
func NewBackupCmd(o *opts.RootOpts) *cobra.Command {
	var (
		categories []string
		noReview   bool
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Back up phone media and import new files",
		Long: `Backup runs every category (camera, whatsapp-images, whatsapp-videos) in order.
For each category it will:
1. Dry-run rsync to list what would change
2. Ask for consent before writing anything
3. Run rsync for real
4. Drop ignored files
5. Open a review page for messaging media
6. Copy approved files into the import folder`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := zerolog.Ctx(cmd.Context()).With().Str("command", "backup").Logger().WithContext(cmd.Context())
			console := log.FromContext(ctx)

			cfg, err := o.Config(ctx)
			if err != nil {
				return err
			}

			cats, err := selectCategories(cfg.Categories(), categories)
			if err != nil {
				return err
			}

			runLog, err := openRunLog(cfg, console)
			if err != nil {
				return err
			}
			defer runLog.Close()

			console.Infof("Excluded files: %v", []string(cfg.IgnoreFiles))

			prompt := review.NewPrompt(cmd.InOrStdin(), cmd.OutOrStdout())
			prompt.AssumeYes = yes

			pipeline, err := operation.New(operation.Options{
				Syncer:    transfer.New(transfer.Options{Recorder: runLog}),
				Transport: cfg.Transport(),
				Consent:   prompt,
				Reviewer:  reviewerFactory(cmd, cfg, noReview),
				Rules:     cfg.IgnoreRules(),
				Importer:  importer.New(cfg.ImportPath),
			})
			if err != nil {
				return errors.Errorf("creating pipeline: %w", err)
			}

			reports, err := operation.NewRunner(pipeline, cfg.ContinueOnError).RunAll(ctx, cats)
			summarize(console, reports)
			if err != nil {
				return errors.Errorf("backing up: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&categories, "category", nil, "only run these categories (camera, whatsapp-images, whatsapp-videos)")
	cmd.Flags().BoolVar(&noReview, "no-review", false, "import without the browser review step")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask before syncing")

	return cmd
}

func reviewerFactory(cmd *cobra.Command, cfg *config.Config, noReview bool) func(operation.Category) review.Reviewer {
	if noReview {
		return nil
	}
	return func(cat operation.Category) review.Reviewer {
		return &review.Web{
			Root:       cat.Destination,
			MediaType:  cat.MediaType,
			Addr:       cfg.ReviewAddr,
			PublicURL:  cfg.ReviewURL,
			ScratchDir: cfg.ScratchDir,
			Out:        cmd.OutOrStdout(),
		}
	}
}
