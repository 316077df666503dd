// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert runs the extraction pipeline for uploaded question
// papers: PDF text, parsed questions, validated JSON written atomically to
// the output folder, manifest update and upload cleanup.
package convert

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/renameio/v2"

	"github.com/pdiddy/mockexam/internal/manifest"
	"github.com/pdiddy/mockexam/internal/paper"
	"github.com/pdiddy/mockexam/pkg/types"
)

// Defaults for an empty ConversionConfig.
const (
	DefaultUploadDir = "uploads"
	DefaultOutputDir = "tests"
)

// ErrReservedName is returned for an upload whose question file would
// overwrite the manifest.
var ErrReservedName = errors.New("output name is reserved for the manifest")

// TextExtractor returns the text content of a PDF. pdftext backends
// implement it.
type TextExtractor interface {
	Name() string
	Text(ctx context.Context, pdfPath string) (string, error)
}

// Converter turns uploaded PDFs into question files.
type Converter struct {
	extractor TextExtractor
	parser    *paper.Parser
	cfg       types.ConversionConfig

	// SkipUnchanged skips a source whose checksum matches its manifest
	// entry when the output file is still present.
	SkipUnchanged bool

	now func() time.Time
}

// New builds a Converter. Empty directories in cfg fall back to the
// defaults.
func New(extractor TextExtractor, parser *paper.Parser, cfg types.ConversionConfig) *Converter {
	if cfg.UploadDir == "" {
		cfg.UploadDir = DefaultUploadDir
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultOutputDir
	}
	if cfg.ManifestFile == "" {
		cfg.ManifestFile = manifest.DefaultFile
	}
	return &Converter{extractor: extractor, parser: parser, cfg: cfg, now: time.Now}
}

// Config returns the effective configuration.
func (c *Converter) Config() types.ConversionConfig { return c.cfg }

// ManifestPath returns the location of the manifest file.
func (c *Converter) ManifestPath() string {
	return filepath.Join(c.cfg.OutputDir, c.cfg.ManifestFile)
}

// OutputPath returns where the question file for pdfPath is written.
func (c *Converter) OutputPath(pdfPath string) string {
	return filepath.Join(c.cfg.OutputDir, paper.SourceSet(pdfPath)+".json")
}

// Result describes one conversion.
type Result struct {
	Status     types.ConversionStatus
	Document   types.Document
	OutputPath string
}

// ConvertFile converts the PDF at pdfPath. On success the question file is
// replaced atomically, the manifest entry is upserted and, when configured,
// the upload is removed. On any failure nothing is written and the upload
// is left in place. Layout problems are returned as *paper.ParseError.
func (c *Converter) ConvertFile(ctx context.Context, pdfPath string) (Result, error) {
	source := filepath.Base(pdfPath)
	res := Result{Status: types.ConversionFailed, OutputPath: c.OutputPath(pdfPath)}

	if strings.EqualFold(filepath.Base(res.OutputPath), c.cfg.ManifestFile) {
		return res, fmt.Errorf("%w: %s would overwrite %s", ErrReservedName, source, c.ManifestPath())
	}

	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return res, fmt.Errorf("reading PDF %s: %w", pdfPath, err)
	}
	sum := sha256.Sum256(data)
	checksum := hex.EncodeToString(sum[:])

	if c.SkipUnchanged {
		same, err := c.unchanged(res.OutputPath, checksum)
		if err != nil {
			return res, err
		}
		if same {
			res.Status = types.ConversionNone
			return res, c.removeUpload(pdfPath)
		}
	}

	text, err := c.extractor.Text(ctx, pdfPath)
	if err != nil {
		return res, paper.WithSource(fmt.Errorf("extracting text with %s: %w", c.extractor.Name(), err), source)
	}

	set := paper.SourceSet(pdfPath)
	questions, err := c.parser.Parse(text, set)
	if err != nil {
		return res, paper.WithSource(err, source)
	}

	out, err := paper.Marshal(questions)
	if err != nil {
		return res, paper.WithSource(err, source)
	}

	if err := os.MkdirAll(c.cfg.OutputDir, 0o755); err != nil {
		return res, fmt.Errorf("creating output directory: %w", err)
	}
	prev, err := os.ReadFile(res.OutputPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return res, fmt.Errorf("reading previous output %s: %w", res.OutputPath, err)
	}
	hadPrev := err == nil
	if err := renameio.WriteFile(res.OutputPath, out, 0o644); err != nil {
		return res, fmt.Errorf("writing %s: %w", res.OutputPath, err)
	}

	doc := types.Document{
		Source:      source,
		SourceSet:   set,
		Checksum:    checksum,
		ConvertedAt: c.now().UTC().Truncate(time.Second),
		Questions:   questions,
	}
	entry := types.ManifestEntry{
		Name:          paper.Title(pdfPath),
		Filename:      filepath.Base(res.OutputPath),
		SourceSet:     set,
		QuestionCount: len(questions),
		ConvertedAt:   doc.ConvertedAt,
		Checksum:      checksum,
	}
	if err := manifest.Upsert(c.ManifestPath(), entry); err != nil {
		if rerr := restoreOutput(res.OutputPath, prev, hadPrev); rerr != nil {
			return res, errors.Join(err, rerr)
		}
		return res, err
	}

	res.Status = types.ConversionDone
	res.Document = doc
	return res, c.removeUpload(pdfPath)
}

// unchanged reports whether the manifest already records checksum for the
// output at outPath and the output still exists.
func (c *Converter) unchanged(outPath, checksum string) (bool, error) {
	if _, err := os.Stat(outPath); err != nil {
		return false, nil
	}
	entries, err := manifest.Load(c.ManifestPath())
	if err != nil {
		return false, err
	}
	name := filepath.Base(outPath)
	for _, e := range entries {
		if e.Filename == name {
			return e.Checksum == checksum, nil
		}
	}
	return false, nil
}

// restoreOutput puts back the question file that was in place before a
// failed run, or removes the new one if there was none.
func restoreOutput(path string, prev []byte, hadPrev bool) error {
	if hadPrev {
		if err := renameio.WriteFile(path, prev, 0o644); err != nil {
			return fmt.Errorf("restoring %s: %w", path, err)
		}
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

func (c *Converter) removeUpload(pdfPath string) error {
	if !c.cfg.RemoveProcessed {
		return nil
	}
	if err := os.Remove(pdfPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing processed upload %s: %w", pdfPath, err)
	}
	return nil
}

// BatchResult holds the outcome of a batch conversion run.
type BatchResult struct {
	Converted int
	Skipped   int
	Failed    int
}

// Total returns the total number of PDFs processed.
func (r BatchResult) Total() int {
	return r.Converted + r.Skipped + r.Failed
}

// HasFailures reports whether any PDF failed conversion.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// ConvertPaper converts one PDF and prints a status line to w.
func (c *Converter) ConvertPaper(ctx context.Context, pdfPath string, w io.Writer) types.ConversionStatus {
	name := filepath.Base(pdfPath)
	res, err := c.ConvertFile(ctx, pdfPath)
	switch {
	case err != nil:
		fmt.Fprintf(w, "failed:    %s (%v)\n", name, err)
		return types.ConversionFailed
	case res.Status == types.ConversionNone:
		fmt.Fprintf(w, "skipped:   %s (unchanged)\n", name)
	default:
		fmt.Fprintf(w, "converted: %s -> %s (%d questions)\n", name, res.OutputPath, len(res.Document.Questions))
	}
	return res.Status
}

// ConvertBatch processes pdfPaths one after another, printing per-file
// status to w and returning a summary. A failure does not stop the batch.
func (c *Converter) ConvertBatch(ctx context.Context, pdfPaths []string, w io.Writer) BatchResult {
	var result BatchResult
	for _, p := range pdfPaths {
		if ctx.Err() != nil {
			break
		}
		switch c.ConvertPaper(ctx, p, w) {
		case types.ConversionDone:
			result.Converted++
		case types.ConversionNone:
			result.Skipped++
		case types.ConversionFailed:
			result.Failed++
		}
	}
	fmt.Fprintf(w, "\nBatch summary: %d converted, %d skipped, %d failed (total: %d)\n",
		result.Converted, result.Skipped, result.Failed, result.Total())
	return result
}

// ConvertDir converts every PDF in the upload directory.
func (c *Converter) ConvertDir(ctx context.Context, w io.Writer) (BatchResult, error) {
	paths, err := ListPDFs(c.cfg.UploadDir)
	if err != nil {
		return BatchResult{}, err
	}
	if len(paths) == 0 {
		fmt.Fprintf(w, "no PDFs in %s\n", c.cfg.UploadDir)
		return BatchResult{}, nil
	}
	return c.ConvertBatch(ctx, paths, w), nil
}

// ListPDFs returns the *.pdf files directly inside dir, sorted by name.
// A missing directory yields no files.
func ListPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.Type().IsRegular() && IsPDFName(e.Name()) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// IsPDFName reports whether name has a .pdf extension and is not a hidden
// or editor temp file.
func IsPDFName(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~") {
		return false
	}
	return strings.EqualFold(filepath.Ext(base), ".pdf")
}
