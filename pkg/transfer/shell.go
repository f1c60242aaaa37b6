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
	"strconv"
	"strings"
)

const (
	// DefaultShell is the remote-shell program handed to rsync.
	DefaultShell = "ssh"
	// DefaultHost is an ~/.ssh/config alias for the phone.
	DefaultHost = "phone"
)

// 🔌 TransportOptions describes how rsync reaches the remote device
type TransportOptions struct {
	RemoteHost     string // user@host or ssh config alias
	SSHPort        int    // 0 means the ssh default
	PrivateKeyPath string // empty means default credential and host-key handling
	Shell          string // remote-shell program, defaults to ssh
}

// host returns the remote host, falling back to DefaultHost
func (o TransportOptions) host() string {
	if o.RemoteHost == "" {
		return DefaultHost
	}
	return o.RemoteHost
}

// TrustOnFirstUse reports whether host-key verification is disabled for the run.
func (o TransportOptions) TrustOnFirstUse() bool {
	return o.PrivateKeyPath != ""
}

// 🔧 BuildShellCommand builds the value passed to rsync's --rsh flag.
//
// Passing a private key disables StrictHostKeyChecking and the known-hosts
// file. Unattended runs accept any host key the remote presents.
func BuildShellCommand(opts TransportOptions) string {
	shell := opts.Shell
	if shell == "" {
		shell = DefaultShell
	}

	parts := []string{shell}
	if opts.SSHPort > 0 {
		parts = append(parts, "-p", strconv.Itoa(opts.SSHPort))
	}
	if opts.PrivateKeyPath != "" {
		parts = append(parts,
			"-i", opts.PrivateKeyPath,
			"-o", "StrictHostKeyChecking=no",
			"-o", "UserKnownHostsFile=/dev/null",
		)
	}
	return strings.Join(parts, " ")
}
