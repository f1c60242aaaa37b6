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

package main

import (
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/walteh/mediasync/cmd/mediasync/commands"
	"github.com/walteh/mediasync/cmd/mediasync/opts"
	"github.com/walteh/mediasync/pkg/log"
)

func newRootCmd() *cobra.Command {
	rootOpts := &opts.RootOpts{}

	rootCmd := &cobra.Command{
		Use:   "mediasync",
		Short: "Back up phone media over ssh and import it into PhotoPrism",
		Long: `mediasync copies new media from a phone reachable over ssh into a local
archive with rsync, asks before anything is written, lets you review
messaging images and videos in the browser, and copies what you approve
into the PhotoPrism import folder.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			zlog := setupLogging(rootOpts.Debug, os.Stderr)
			ctx := zlog.WithContext(cmd.Context())
			ctx = log.NewContext(ctx, log.New(cmd.OutOrStdout(), zlog))
			cmd.SetContext(ctx)
		},
	}

	addRootFlags(rootCmd, rootOpts)

	rootCmd.AddCommand(
		commands.NewBackupCmd(rootOpts),
		commands.NewPreviewCmd(rootOpts),
		commands.NewVersionCmd(),
	)

	return rootCmd
}

// addRootFlags adds shared flags to the root command
func addRootFlags(cmd *cobra.Command, o *opts.RootOpts) {
	cmd.PersistentFlags().StringVarP(&o.ConfigFile, "config", "c", "", "config file path (.yaml, .hcl, .json or .env); defaults to ./.env when present")
	cmd.PersistentFlags().BoolVarP(&o.Debug, "debug", "d", false, "enable debug logging")
}

// setupLogging configures zerolog based on flags
func setupLogging(debug bool, w io.Writer) zerolog.Logger {
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: w}).
		With().
		Timestamp().
		Str("run_id", uuid.NewString()).
		Logger()
	zerolog.DefaultContextLogger = &logger
	return logger
}
