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

package review

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// Question is asked before a batch is accepted.
const Question = "Do you want to proceed? (Y/n)"

// Prompt lists the candidates on Out and asks for consent on In. Only an
// exact "Y" accepts; everything else, including end of input, declines.
//
// In is read by a single goroutine started on the first question. A line
// typed after a cancelled question answers the next one.
type Prompt struct {
	In  io.Reader
	Out io.Writer

	// AssumeYes skips the question and accepts every batch.
	AssumeYes bool

	once  sync.Once
	lines chan lineResult
}

func NewPrompt(in io.Reader, out io.Writer) *Prompt {
	return &Prompt{In: in, Out: out}
}

// answers starts the reader goroutine on first use. The channel is closed
// after the first read error.
func (p *Prompt) answers() <-chan lineResult {
	p.once.Do(func() {
		p.lines = make(chan lineResult)
		go func() {
			defer close(p.lines)
			r := bufio.NewReader(p.In)
			for {
				line, err := r.ReadString('\n')
				if line == "" && errors.Is(err, io.EOF) {
					return
				}
				p.lines <- lineResult{line: line, err: err}
				if err != nil {
					return
				}
			}
		}()
	})
	return p.lines
}

func (p *Prompt) Review(ctx context.Context, candidates []string) ([]string, error) {
	logger := zerolog.Ctx(ctx)

	items := make([]pterm.BulletListItem, 0, len(candidates))
	for _, c := range candidates {
		items = append(items, pterm.BulletListItem{Level: 0, Text: c})
	}
	list, err := pterm.DefaultBulletList.WithItems(items).Srender()
	if err != nil {
		return nil, errors.Errorf("rendering candidate list: %w", err)
	}

	if _, err := io.WriteString(p.Out, pterm.Info.Sprintfln("The following %d files will be synced:", len(candidates))+list); err != nil {
		return nil, errors.Errorf("writing candidate list: %w", err)
	}

	if p.AssumeYes {
		logger.Info().Int("count", len(candidates)).Msg("accepting batch without asking")
		return append([]string{}, candidates...), nil
	}

	if _, err := io.WriteString(p.Out, Question+" "); err != nil {
		return nil, errors.Errorf("writing question: %w", err)
	}

	answer, err := p.readLine(ctx)
	if err != nil {
		return nil, err
	}

	if answer != "Y" {
		logger.Info().Str("answer", answer).Msg("aborting")
		return nil, ErrDeclined
	}
	return append([]string{}, candidates...), nil
}

type lineResult struct {
	line string
	err  error
}

// readLine waits for the next line. End of input reads as an empty answer.
func (p *Prompt) readLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", errors.Errorf("waiting for answer: %w", ctx.Err())
	case res, ok := <-p.answers():
		if !ok {
			return "", nil
		}
		if res.err != nil && !errors.Is(res.err, io.EOF) {
			return "", errors.Errorf("reading answer: %w", res.err)
		}
		return strings.TrimRight(res.line, "\r\n"), nil
	}
}
