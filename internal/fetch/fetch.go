// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch downloads remote question papers into the upload folder,
// where the watcher or a batch conversion picks them up.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/renameio/v2"
	"go.uber.org/zap"

	"github.com/pdiddy/mockexam/internal/httputil"
	"github.com/pdiddy/mockexam/internal/pdftext"
	"github.com/pdiddy/mockexam/pkg/types"
)

// ErrNotPDF is returned when a download does not start with a PDF header.
var ErrNotPDF = errors.New("response is not a PDF")

// BatchResult holds the outcome of a batch download run.
type BatchResult struct {
	Downloaded int
	Skipped    int
	Failed     int
	Paths      []string
}

// Total returns the total number of URLs processed.
func (r BatchResult) Total() int {
	return r.Downloaded + r.Skipped + r.Failed
}

// HasFailures reports whether any download failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// Fetcher downloads PDFs over HTTP.
type Fetcher struct {
	client *httputil.Client
	cfg    types.FetchConfig
	log    *zap.Logger
	sleep  func(context.Context, time.Duration) error
}

// New returns a Fetcher that writes into cfg.UploadDir.
func New(client *httputil.Client, cfg types.FetchConfig, log *zap.Logger) *Fetcher {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = "uploads"
	}
	return &Fetcher{client: client, cfg: cfg, log: log, sleep: sleepCtx}
}

// FileName derives the upload filename from a URL: the last path segment,
// unescaped, with a .pdf extension added when missing.
func FileName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing URL %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported URL scheme %q in %q", u.Scheme, rawURL)
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." || name == "" {
		return "", fmt.Errorf("URL %q has no file name", rawURL)
	}
	name = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r < ' ' {
			return '_'
		}
		return r
	}, name)
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		name += ".pdf"
	}
	return name, nil
}

// Fetch downloads rawURL into the upload folder. If a file with the same
// name is already there the download is skipped.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, w io.Writer) (dest string, skipped bool, err error) {
	name, err := FileName(rawURL)
	if err != nil {
		return "", false, err
	}
	dest = filepath.Join(f.cfg.UploadDir, name)

	if _, err := os.Stat(dest); err == nil {
		fmt.Fprintf(w, "skipped:     %s (already exists)\n", name)
		return dest, true, nil
	}

	if err := os.MkdirAll(f.cfg.UploadDir, 0o755); err != nil {
		return "", false, fmt.Errorf("creating directory %s: %w", f.cfg.UploadDir, err)
	}

	fmt.Fprintf(w, "downloading: %s\n", name)
	if err := f.download(ctx, rawURL, dest); err != nil {
		return "", false, fmt.Errorf("downloading %s: %w", name, err)
	}
	return dest, false, nil
}

// FetchBatch downloads every URL, printing per-item status and returning
// a summary. It continues after individual failures and waits
// DownloadDelay between consecutive downloads.
func (f *Fetcher) FetchBatch(ctx context.Context, urls []string, w io.Writer) BatchResult {
	var result BatchResult
	for i, u := range urls {
		if i > 0 && f.cfg.DownloadDelay > 0 {
			if err := f.sleep(ctx, f.cfg.DownloadDelay); err != nil {
				break
			}
		}
		dest, skipped, err := f.Fetch(ctx, u, w)
		if err != nil {
			fmt.Fprintf(w, "failed:      %s (%v)\n", u, err)
			f.log.Warn("download failed", zap.String("url", u), zap.Error(err))
			result.Failed++
			continue
		}
		if skipped {
			result.Skipped++
		} else {
			result.Downloaded++
		}
		result.Paths = append(result.Paths, dest)
	}
	fmt.Fprintf(w, "\nBatch summary: %d downloaded, %d skipped, %d failed (total: %d)\n",
		result.Downloaded, result.Skipped, result.Failed, result.Total())
	return result
}

// download streams url into a pending file next to destPath and renames it
// into place only after the body was read completely and looks like a PDF.
func (f *Fetcher) download(ctx context.Context, rawURL, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}
	req.Header.Set("Accept", "application/pdf")

	resp, err := f.client.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, rawURL)
	}

	head := make([]byte, 1024)
	n, err := io.ReadFull(resp.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading response: %w", err)
	}
	head = head[:n]
	if !pdftext.HasPDFHeader(head) {
		return fmt.Errorf("%w (content type %q)", ErrNotPDF, resp.Header.Get("Content-Type"))
	}

	pf, err := renameio.NewPendingFile(destPath, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer pf.Cleanup()

	if _, err := io.Copy(pf, io.MultiReader(bytes.NewReader(head), resp.Body)); err != nil {
		return fmt.Errorf("writing download: %w", err)
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
