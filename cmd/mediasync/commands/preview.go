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
	"github.com/walteh/mediasync/pkg/log"
	"github.com/walteh/mediasync/pkg/operation"
	"github.com/walteh/mediasync/pkg/transfer"
)

// NewPreviewCmd creates the preview command
func NewPreviewCmd(o *opts.RootOpts) *cobra.Command {
	var categories []string

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "List what a backup would transfer without changing anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := zerolog.Ctx(cmd.Context()).With().Str("command", "preview").Logger().WithContext(cmd.Context())
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

			pipeline, err := operation.New(operation.Options{
				Syncer:     transfer.New(transfer.Options{Recorder: runLog}),
				Transport:  cfg.Transport(),
				DryRunOnly: true,
			})
			if err != nil {
				return errors.Errorf("creating pipeline: %w", err)
			}

			// a failing category should not hide the others in a preview
			if _, err := operation.NewRunner(pipeline, true).RunAll(ctx, cats); err != nil {
				return errors.Errorf("previewing: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&categories, "category", nil, "only preview these categories")

	return cmd
}
