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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"

	"github.com/walteh/mediasync/pkg/filter"
)

// DefaultEnvFile is read when no config file is given and it exists in the
// working directory.
const DefaultEnvFile = ".env"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report fields by the environment variable that sets them
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := f.Tag.Get("env")
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// 📥 Load reads the configuration. The file at path is optional; the
// format is chosen by extension:
// - .yaml or .yml for YAML
// - .hcl for HCL
// - .json for JSON
// - .env for dotenv files
//
// Environment variables always take precedence over file values.
func Load(ctx context.Context, path string) (*Config, error) {
	logger := zerolog.Ctx(ctx)

	if path == "" {
		if _, err := os.Stat(DefaultEnvFile); err == nil {
			path = DefaultEnvFile
		}
	}

	cfg := &Config{}
	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
		cfg.location = path
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, errors.Errorf("reading environment: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	logger.Debug().
		Str("location", cfg.location).
		Str("archive_root", cfg.ArchiveRoot).
		Str("import_path", cfg.ImportPath).
		Str("remote_host", cfg.RemoteHost).
		Strs("ignore_files", cfg.IgnoreFiles).
		Msg("configuration loaded")

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	ext := strings.ToLower(filepath.Ext(path))

	// dotenv files are applied to the process environment by cleanenv
	if ext == ".env" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return errors.Errorf("reading env file: %w", err)
		}
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Errorf("reading config file: %w", err)
	}

	switch ext {
	case ".json":
		err = loadJSON(data, cfg)
	case ".yaml", ".yml":
		err = loadYAML(data, cfg)
	case ".hcl":
		err = loadHCL(data, path, cfg)
	default:
		return errors.Errorf("unsupported file extension %q", ext)
	}
	return err
}

// loadJSON loads a configuration from JSON data
func loadJSON(data []byte, cfg *Config) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		return errors.Errorf("parsing JSON: %w", err)
	}
	return nil
}

// loadYAML loads a configuration from YAML data
func loadYAML(data []byte, cfg *Config) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return errors.Errorf("parsing YAML: %w", err)
	}
	return nil
}

// loadHCL loads a configuration from HCL data
func loadHCL(data []byte, filename string, cfg *Config) error {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return errors.Errorf("parsing HCL: %s", diags.Error())
	}

	home, _ := homedir.Dir()
	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"home": cty.StringVal(home),
		},
	}

	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, cfg)
	if diags.HasErrors() {
		return errors.Errorf("decoding HCL: %s", diags.Error())
	}
	return nil
}

func (c *Config) normalize() error {
	c.IgnoreFiles = c.IgnoreFiles.normalize()
	c.IgnoreSubstrings = c.IgnoreSubstrings.normalize()
	c.IgnorePatterns = c.IgnorePatterns.normalize()

	for _, p := range []*string{&c.ArchiveRoot, &c.ImportPath, &c.SSHPrivateKey, &c.LogDir, &c.ScratchDir} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return errors.Errorf("expanding %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// ✅ Validate checks required values and glob syntax. Problems are returned
// together as an *Error.
func Validate(cfg *Config) error {
	cerr := &Error{}

	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return errors.Errorf("validating config: %w", err)
		}
		for _, fe := range verrs {
			if fe.Tag() == "required" {
				cerr.Missing = append(cerr.Missing, fe.Field())
				continue
			}
			cerr.Invalid = append(cerr.Invalid, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		}
	}

	for _, g := range filter.ValidateGlobs(cfg.IgnorePatterns) {
		cerr.Invalid = append(cerr.Invalid, fmt.Sprintf("IGNORE_PATTERNS has a malformed glob %q", g))
	}

	if len(cerr.Missing) > 0 || len(cerr.Invalid) > 0 {
		return errors.WithStack(cerr)
	}
	return nil
}
