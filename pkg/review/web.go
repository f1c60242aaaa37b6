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
	"context"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"

	"github.com/walteh/mediasync/pkg/importer"
)

const (
	DefaultAddr      = ":3000"
	submittedMessage = "Thank you for your selection!"
	shutdownTimeout  = 5 * time.Second
)

// only one review page may be served per process
var webSessionActive atomic.Bool

var pageTemplate = template.Must(template.New("review").Funcs(template.FuncMap{
	"pathEscape": url.PathEscape,
}).Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>mediasync review</title></head>
<body>
<form action="/submit" method="post">
{{- range .Items }}
<div style="display: flex; align-items: center; justify-content: space-between; margin-bottom: 20px; width: 600px;">
  <div style="flex: 1;">
    <a href="/images/{{ pathEscape .DisplayName }}">
    {{- if $.Video }}
      <video src="/images/{{ pathEscape .DisplayName }}" style="width: 100%;" controls preload="metadata"></video>
    {{- else }}
      <img src="/images/{{ pathEscape .DisplayName }}" style="width: 100%;">
    {{- end }}
    </a>
  </div>
  <div style="flex: 1; text-align: center;">
    <label>{{ .DisplayName }}</label>
  </div>
  <div style="flex: 1; text-align: center;">
    <input type="radio" name="{{ .RelativePath }}" value="yes" checked> Yes
    <input type="radio" name="{{ .RelativePath }}" value="no"> No
  </div>
</div>
{{- end }}
<button type="submit">Submit</button>
</form>
</body>
</html>
`))

// Web serves a one-shot review page. Candidates are copied from Root into a
// per-session scratch directory and served from there; that directory is
// removed once the page has been submitted or the context is cancelled.
type Web struct {
	// Root is the archive directory candidates are relative to.
	Root      string
	MediaType MediaType

	// Addr is the listen address, DefaultAddr when empty.
	Addr string
	// PublicURL is the address announced to the user. When empty it is
	// derived from the listener.
	PublicURL string
	// ScratchDir is the parent of the per-session scratch directory, the
	// system temp directory when empty. Existing content is left alone.
	ScratchDir string

	// Out receives the "go to" message. Optional.
	Out io.Writer
	// OnReady is called once the listener is open. Optional.
	OnReady func(url string)
}

func (w *Web) Review(ctx context.Context, candidates []string) ([]string, error) {
	if !webSessionActive.CompareAndSwap(false, true) {
		panic("review: a web review session is already running")
	}
	defer webSessionActive.Store(false)

	logger := zerolog.Ctx(ctx)

	if len(candidates) == 0 {
		return []string{}, nil
	}

	session := NewSession(candidates, w.MediaType)
	logger.Debug().Str("session", session.ID).Int("items", len(session.Items)).Msg("starting review session")

	scratch, err := w.prepareScratch(session)
	if scratch != "" {
		defer cleanupScratch(ctx, scratch)
	}
	if err != nil {
		return nil, err
	}

	addr := w.Addr
	if addr == "" {
		addr = DefaultAddr
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Errorf("listening on %s: %w", addr, err)
	}

	publicURL := w.PublicURL
	if publicURL == "" {
		publicURL = "http://" + ln.Addr().String()
	}

	results := make(chan []string, 1)
	var submitOnce sync.Once

	srv := &http.Server{
		Handler:           w.router(session, scratch, results, &submitOnce),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Errorf("serving review page: %w", err)
		}
		return nil
	})

	var approved []string
	g.Go(func() error {
		var waitErr error
		select {
		case approved = <-results:
		case <-gctx.Done():
			waitErr = gctx.Err()
		}

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("review server shutdown")
		}
		logger.Debug().Str("session", session.ID).Msg("review server closed")
		return waitErr
	})

	logger.Info().Str("url", publicURL).Str("session", session.ID).Msg("review page ready")
	if w.Out != nil {
		fmt.Fprintf(w.Out, "Go to %s to continue\n", publicURL)
	}
	if w.OnReady != nil {
		w.OnReady(publicURL)
	}

	if err := g.Wait(); err != nil {
		return nil, errors.Errorf("web review: %w", err)
	}

	logger.Info().Int("approved", len(approved)).Int("candidates", len(candidates)).Msg("review submitted")
	return approved, nil
}

func (w *Web) router(session *Session, scratch string, results chan<- []string, once *sync.Once) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", func(rw http.ResponseWriter, _ *http.Request) {
		rw.Header().Set("Content-Type", "text/html; charset=utf-8")
		data := struct {
			Items []Item
			Video bool
		}{session.Items, session.MediaType == Video}
		if err := pageTemplate.Execute(rw, data); err != nil {
			http.Error(rw, err.Error(), http.StatusInternalServerError)
		}
	}).Methods(http.MethodGet)

	r.PathPrefix("/images/").Handler(http.StripPrefix("/images/", http.FileServer(http.Dir(scratch)))).Methods(http.MethodGet)

	r.HandleFunc("/submit", func(rw http.ResponseWriter, req *http.Request) {
		if err := req.ParseForm(); err != nil {
			http.Error(rw, err.Error(), http.StatusBadRequest)
			return
		}
		approved := session.Approved(func(it Item) bool {
			return req.PostForm.Get(it.RelativePath) == "yes"
		})
		accepted := false
		once.Do(func() {
			results <- approved
			accepted = true
		})
		if !accepted {
			http.Error(rw, "selection already submitted", http.StatusConflict)
			return
		}
		fmt.Fprint(rw, submittedMessage)
	}).Methods(http.MethodPost)

	return r
}

func (w *Web) prepareScratch(session *Session) (string, error) {
	if w.ScratchDir != "" {
		if err := os.MkdirAll(w.ScratchDir, 0755); err != nil {
			return "", errors.Errorf("creating scratch directory: %w", err)
		}
	}
	dir, err := os.MkdirTemp(w.ScratchDir, "mediasync-review-*")
	if err != nil {
		return "", errors.Errorf("creating scratch directory: %w", err)
	}

	for _, it := range session.Items {
		src := filepath.Join(w.Root, it.RelativePath)
		dst := filepath.Join(dir, it.DisplayName)
		if err := importer.CopyFileAtomic(src, dst); err != nil {
			return dir, errors.Errorf("copying %s for preview: %w", it.RelativePath, err)
		}
	}
	return dir, nil
}

// cleanupScratch removes every file in dir and then dir itself. Failures
// are logged.
func cleanupScratch(ctx context.Context, dir string) {
	logger := zerolog.Ctx(ctx)

	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Warn().Err(err).Str("dir", dir).Msg("reading scratch directory")
		return
	}
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if err := os.RemoveAll(path); err != nil {
			logger.Warn().Err(err).Str("file", path).Msg("removing scratch file")
		}
	}
	if err := os.Remove(dir); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn().Err(err).Str("dir", dir).Msg("removing scratch directory")
	}
}
