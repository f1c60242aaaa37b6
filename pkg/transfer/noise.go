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
	"regexp"
	"strings"
)

// progressPattern matches rsync --progress updates such as
// "  241401856  22%  460.43MB/s   00:00:01".
var progressPattern = regexp.MustCompile(`\d+%\s+\d+(?:\.\d+)?[KMGTkmgt]?B/s`)

// IsNoise reports whether line is rsync or ssh chatter rather than the
// relative path of a transferred file. All knowledge of the tool's banner
// and progress formats lives here.
func IsNoise(line string) bool {
	trimmed := strings.TrimSpace(line)

	switch {
	case trimmed == "":
		return true
	case trimmed == "./":
		return true
	case strings.HasPrefix(trimmed, "receiving ") && strings.Contains(trimmed, "file list"):
		return true
	case strings.Contains(line, "sent") && strings.Contains(line, "received"):
		return true
	case strings.Contains(line, "total size"):
		return true
	case isHostKeyAdvisory(line):
		return true
	case strings.HasPrefix(line, "Transfer starting:"),
		strings.HasPrefix(line, "Skip existing"),
		strings.HasPrefix(line, "Transfer complete:"):
		return true
	case progressPattern.MatchString(line):
		return true
	}
	return false
}

// IsStderrNoise reports whether a stderr line may be ignored. Only blank
// lines and the ssh host key advisory qualify; anything else on stderr
// fails the transfer.
func IsStderrNoise(line string) bool {
	return strings.TrimSpace(line) == "" || isHostKeyAdvisory(line)
}

func isHostKeyAdvisory(line string) bool {
	return strings.Contains(line, "Permanently added") && strings.Contains(line, "known hosts")
}
