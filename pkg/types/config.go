package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "mockexam/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// MaxRetries bounds retries on HTTP 429 (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// TextBackend identifies the PDF text extraction tool.
type TextBackend string

const (
	BackendNative     TextBackend = "native"
	BackendPdftotext  TextBackend = "pdftotext"
	BackendMarkitdown TextBackend = "markitdown"
)

// ConversionConfig holds settings for the conversion stage.
type ConversionConfig struct {
	// Backend selects the text extraction tool: native, pdftotext, or markitdown.
	Backend TextBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// UploadDir is the folder where source PDFs are dropped (default "uploads").
	UploadDir string `json:"upload_dir" yaml:"upload_dir" mapstructure:"upload_dir"`

	// OutputDir receives one JSON file per converted PDF and the manifest
	// (default "tests").
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`

	// ManifestFile is the manifest filename inside OutputDir
	// (default "test_manifest.json").
	ManifestFile string `json:"manifest_file" yaml:"manifest_file" mapstructure:"manifest_file"`

	// LayoutFile optionally overrides the built-in paper layout with a YAML file.
	LayoutFile string `json:"layout_file,omitempty" yaml:"layout_file,omitempty" mapstructure:"layout_file"`

	// RemoveProcessed deletes an upload after it converted successfully.
	RemoveProcessed bool `json:"remove_processed" yaml:"remove_processed" mapstructure:"remove_processed"`
}

// WatchConfig holds settings for the ingestion watcher.
type WatchConfig struct {
	ConversionConfig `yaml:",inline" mapstructure:",squash"`

	// Debounce is the quiet period after the last event on a file before it
	// is converted (default 2s).
	Debounce time.Duration `json:"debounce" yaml:"debounce" mapstructure:"debounce"`

	// SweepSchedule is an optional cron spec (e.g. "@every 10m") for
	// periodic rescans of the upload folder.
	SweepSchedule string `json:"sweep_schedule,omitempty" yaml:"sweep_schedule,omitempty" mapstructure:"sweep_schedule"`
}

// FetchConfig holds settings for downloading remote PDFs into the upload folder.
type FetchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// DownloadDelay is the delay between consecutive downloads (default 1s).
	DownloadDelay time.Duration `json:"download_delay" yaml:"download_delay" mapstructure:"download_delay"`

	// UploadDir is where downloaded PDFs are written.
	UploadDir string `json:"upload_dir" yaml:"upload_dir" mapstructure:"upload_dir"`
}

// BankConfig holds settings for the question bank.
type BankConfig struct {
	// BankDir is the directory holding the SQLite database and exports
	// (default "bank").
	BankDir string `json:"bank_dir" yaml:"bank_dir" mapstructure:"bank_dir"`

	// TestsDir is the conversion output folder to index.
	TestsDir string `json:"tests_dir" yaml:"tests_dir" mapstructure:"tests_dir"`

	// MaxResults is the default maximum number of query results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`
}
