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
)

// Stream identifies one of the subprocess output streams.
type Stream int

const (
	Stdout Stream = iota
	Stderr
)

func (s Stream) String() string {
	switch s {
	case Stdout:
		return "stdout"
	case Stderr:
		return "stderr"
	default:
		return fmt.Sprintf("stream(%d)", int(s))
	}
}

// LineBuffer reassembles lines from arbitrarily sized chunks of one stream.
// Bytes are kept undecoded until a terminator arrives, so a multi-byte rune
// split across two reads comes out whole.
type LineBuffer struct {
	pending []byte
}

func isTerminator(c byte) bool {
	return c == '\n' || c == '\r'
}

// Feed appends chunk and returns every line completed by it. Runs of '\r'
// and '\n' collapse into one boundary and empty lines are never returned.
// The trailing unterminated segment stays buffered for the next call.
func (b *LineBuffer) Feed(chunk []byte) []string {
	b.pending = append(b.pending, chunk...)

	var lines []string
	start := 0
	for i, c := range b.pending {
		if !isTerminator(c) {
			continue
		}
		if i > start {
			lines = append(lines, string(b.pending[start:i]))
		}
		start = i + 1
	}

	n := copy(b.pending, b.pending[start:])
	b.pending = b.pending[:n]
	return lines
}

// Flush returns the buffered partial line, if any, and empties the buffer.
// rsync does not always terminate its last block of output.
func (b *LineBuffer) Flush() []string {
	if len(b.pending) == 0 {
		return nil
	}
	line := string(b.pending)
	b.pending = b.pending[:0]
	return []string{line}
}

// Len returns the number of buffered bytes.
func (b *LineBuffer) Len() int {
	return len(b.pending)
}

// Parser owns one LineBuffer per output stream of a single transfer run.
type Parser struct {
	buffers [2]LineBuffer
}

// NewParser returns a parser with empty buffers.
func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) buffer(s Stream) *LineBuffer {
	if s != Stdout && s != Stderr {
		panic(fmt.Sprintf("transfer: unknown %s", s))
	}
	return &p.buffers[s]
}

// Feed passes chunk to the buffer of stream s.
func (p *Parser) Feed(s Stream, chunk []byte) []string {
	return p.buffer(s).Feed(chunk)
}

// Flush drains the buffer of stream s.
func (p *Parser) Flush(s Stream) []string {
	return p.buffer(s).Flush()
}
