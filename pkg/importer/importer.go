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

// Package importer copies approved files into the photo library's import
// folder.
package importer

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 📥 Importer places files flat into Root, keyed by their basename
type Importer struct {
	Root string
}

// 🏭 New creates an importer for the given import folder
func New(root string) *Importer {
	return &Importer{Root: filepath.Clean(root)}
}

// 📋 Import copies each file (relative to archiveRoot) into the import
// folder and returns how many were copied. It stops at the first failure.
func (i *Importer) Import(ctx context.Context, archiveRoot string, files []string) (int, error) {
	logger := zerolog.Ctx(ctx)

	info, err := os.Stat(i.Root)
	if err != nil {
		return 0, errors.Errorf("checking import folder: %w", err)
	}
	if !info.IsDir() {
		return 0, errors.Errorf("import folder %s is not a directory", i.Root)
	}

	seen := make(map[string]string, len(files))
	copied := 0
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return copied, errors.Errorf("import cancelled: %w", err)
		}

		name := filepath.Base(file)
		if prev, ok := seen[name]; ok {
			logger.Warn().Str("file", file).Str("previous", prev).Msg("duplicate basename, overwriting")
		}
		seen[name] = file

		src := filepath.Join(archiveRoot, file)
		dst := filepath.Join(i.Root, name)

		logger.Debug().Str("src", src).Str("dst", dst).Msg("copying")
		if err := CopyFileAtomic(src, dst); err != nil {
			return copied, errors.Errorf("importing %s: %w", file, err)
		}
		copied++
	}

	return copied, nil
}

// 🔒 CopyFileAtomic copies src to dst through a temp file in dst's directory,
// keeping src's modification time.
func CopyFileAtomic(src, dst string) error {
	source, err := os.Open(src)
	if err != nil {
		return errors.Errorf("opening source file: %w", err)
	}
	defer source.Close()

	info, err := source.Stat()
	if err != nil {
		return errors.Errorf("reading source file info: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return errors.Errorf("creating temp file: %w", err)
	}
	tempPath := tmp.Name()

	if _, err := io.Copy(tmp, source); err != nil {
		tmp.Close()
		os.Remove(tempPath)
		return errors.Errorf("copying file content: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tempPath)
		return errors.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tempPath, info.Mode().Perm()); err != nil {
		os.Remove(tempPath)
		return errors.Errorf("setting file mode: %w", err)
	}
	if err := os.Chtimes(tempPath, info.ModTime(), info.ModTime()); err != nil {
		os.Remove(tempPath)
		return errors.Errorf("setting file times: %w", err)
	}

	if err := os.Rename(tempPath, dst); err != nil {
		os.Remove(tempPath)
		return errors.Errorf("renaming temp file: %w", err)
	}

	return nil
}
