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

package transfer

import (
	"fmt"
	"strings"
)

// PreconditionError reports a request rejected before rsync was started.
type PreconditionError struct {
	Path   string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed for %q: %s", e.Path, e.Reason)
}

// ExitError reports a non-zero rsync exit status.
type ExitError struct {
	Code    int
	Command string
	Stderr  []string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("rsync exited with code %d", e.Code)
	if len(e.Stderr) > 0 {
		msg += ": " + strings.Join(e.Stderr, "; ")
	}
	return msg
}

// StderrError reports non-noise rsync output on stderr. It is raised even
// when the exit status is zero.
type StderrError struct {
	Command string
	Lines   []string
}

func (e *StderrError) Error() string {
	return fmt.Sprintf("rsync wrote %d line(s) to stderr: %s", len(e.Lines), strings.Join(e.Lines, "; "))
}
