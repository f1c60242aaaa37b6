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

package config

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/mediasync/pkg/filter"
	"github.com/walteh/mediasync/pkg/operation"
	"github.com/walteh/mediasync/pkg/review"
	"github.com/walteh/mediasync/pkg/transfer"
)

const (
	CategoryCamera         = "camera"
	CategoryWhatsappImages = "whatsapp-images"
	CategoryWhatsappVideos = "whatsapp-videos"
)

// 🔧 Config holds every setting of a run. Field tags name the file keys and
// the environment variables.
type Config struct {
	// local archive root, rsync destination for the camera
	ArchiveRoot string `yaml:"archive_root" json:"archive_root" hcl:"archive_root,optional" env:"HDD_BACKUP" validate:"required"`
	// PhotoPrism import folder
	ImportPath string `yaml:"import_path" json:"import_path" hcl:"import_path,optional" env:"PHOTOPRISM_IMPORT_PATH" validate:"required"`

	// remote source directories
	CameraSource         string `yaml:"camera_source" json:"camera_source" hcl:"camera_source,optional" env:"PHONE_CAMERA" validate:"required"`
	WhatsappImagesSource string `yaml:"whatsapp_images_source" json:"whatsapp_images_source" hcl:"whatsapp_images_source,optional" env:"WHATSAPP_IMAGES_PATH" validate:"required"`
	WhatsappVideosSource string `yaml:"whatsapp_videos_source" json:"whatsapp_videos_source" hcl:"whatsapp_videos_source,optional" env:"WHATSAPP_VIDEOS_PATH" validate:"required"`

	IgnoreFiles      List `yaml:"ignore_files" json:"ignore_files" hcl:"ignore_files,optional" env:"IGNORE_FILES"`
	IgnoreSubstrings List `yaml:"ignore_substrings" json:"ignore_substrings" hcl:"ignore_substrings,optional" env:"IGNORE_SUBSTRINGS"`
	IgnorePatterns   List `yaml:"ignore_patterns" json:"ignore_patterns" hcl:"ignore_patterns,optional" env:"IGNORE_PATTERNS"`

	RemoteHost    string `yaml:"remote_host" json:"remote_host" hcl:"remote_host,optional" env:"REMOTE_HOST" env-default:"phone"`
	SSHPort       int    `yaml:"ssh_port" json:"ssh_port" hcl:"ssh_port,optional" env:"SSH_PORT" validate:"gte=0,lte=65535"`
	SSHPrivateKey string `yaml:"ssh_private_key" json:"ssh_private_key" hcl:"ssh_private_key,optional" env:"SSH_PRIVATE_KEY"`

	ReviewAddr string `yaml:"review_addr" json:"review_addr" hcl:"review_addr,optional" env:"REVIEW_ADDR" env-default:":3000"`
	ReviewURL  string `yaml:"review_url" json:"review_url" hcl:"review_url,optional" env:"REVIEW_URL" env-default:"http://localhost:3000"`
	ScratchDir string `yaml:"scratch_dir" json:"scratch_dir" hcl:"scratch_dir,optional" env:"SCRATCH_DIR"`

	LogDir          string `yaml:"log_dir" json:"log_dir" hcl:"log_dir,optional" env:"LOG_DIR" env-default:"logs"`
	ContinueOnError bool   `yaml:"continue_on_error" json:"continue_on_error" hcl:"continue_on_error,optional" env:"CONTINUE_ON_ERROR"`

	location string
}

// Location is the file the config was read from, empty when it came only
// from the environment.
func (c *Config) Location() string {
	return c.location
}

// 📋 List is a string list that reads a JSON array from the environment,
// e.g. IGNORE_FILES='["Camera/IMG_1.jpg", "Sent/IMG-2.jpg"]'. Items are
// trimmed and empty items dropped.
type List []string

// SetValue implements cleanenv.Setter.
func (l *List) SetValue(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*l = nil
		return nil
	}
	var raw []string
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return errors.Errorf("parsing JSON list %q: %w", s, err)
	}
	*l = List(raw).normalize()
	return nil
}

func (l List) normalize() List {
	out := make(List, 0, len(l))
	for _, v := range l {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// 🗂️ Categories returns the three backup categories in run order.
func (c *Config) Categories() []operation.Category {
	return []operation.Category{
		{
			Name:        CategoryCamera,
			Source:      c.CameraSource,
			Destination: c.ArchiveRoot,
			MediaType:   review.Image,
			Review:      false,
		},
		{
			Name:        CategoryWhatsappImages,
			Source:      c.WhatsappImagesSource,
			Destination: filepath.Join(c.ArchiveRoot, "WhatsappImages"),
			MediaType:   review.Image,
			Review:      true,
		},
		{
			Name:        CategoryWhatsappVideos,
			Source:      c.WhatsappVideosSource,
			Destination: filepath.Join(c.ArchiveRoot, "WhatsappVideos"),
			MediaType:   review.Video,
			Review:      true,
		},
	}
}

// 🚫 IgnoreRules builds the filter rules for the run.
func (c *Config) IgnoreRules() filter.IgnoreRules {
	return filter.NewIgnoreRules(c.IgnoreFiles, c.IgnoreSubstrings, c.IgnorePatterns)
}

// 🔌 Transport returns the remote shell settings.
func (c *Config) Transport() transfer.TransportOptions {
	return transfer.TransportOptions{
		RemoteHost:     c.RemoteHost,
		SSHPort:        c.SSHPort,
		PrivateKeyPath: c.SSHPrivateKey,
	}
}
