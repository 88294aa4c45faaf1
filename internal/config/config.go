package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/docsweep/docsweep/internal/detect"
	"github.com/docsweep/docsweep/internal/extract"
)

const (
	// Mode constants
	ModeStdio = "stdio"
	ModeRun   = "run"

	// Default values
	DefaultLogLevel      = "info"
	DefaultMaxFileSize   = 100 * 1024 * 1024 // 100MB
	DefaultPageBatchSize = 5
	DefaultMaxDistance   = 1
	DefaultLanguage      = "eng"
	DefaultRegion        = "eu-west-2"

	// Directory permissions
	DefaultDirPerm = 0o750
)

// Config holds all configuration for the docsweep service
type Config struct {
	// Execution mode: "stdio" serves MCP over standard I/O, "run" processes
	// one document from flags and exits.
	Mode string

	// Directories
	InputDir  string
	OutputDir string
	WorkDir   string // base for per-session state

	// Pipeline defaults
	ExtractionMethod string // text, tesseract, textract
	DetectionMethod  string // none, local, comprehend
	PageBatchSize    int
	EntityTypes      []string
	RedactSignatures bool
	RedactHandwrite  bool

	// Deny-list fuzzy matching
	FuzzyMaxDistance int
	FuzzyWholePhrase bool

	// Cloud settings
	AWSRegion string

	// Local OCR settings
	TesseractLanguage string

	// Application configuration
	Version          string
	ServerName       string
	LogLevel         string
	MaxFileSize      int64 // Maximum input file size in bytes
	LogDocumentNames bool  // usage log carries document names only when set
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:              ModeStdio, // Default to stdio mode for MCP compatibility
		InputDir:          currentDir,
		OutputDir:         filepath.Join(currentDir, "output"),
		WorkDir:           filepath.Join(currentDir, "work"),
		ExtractionMethod:  string(extract.MethodTextLayer),
		DetectionMethod:   string(detect.MethodLocal),
		PageBatchSize:     DefaultPageBatchSize,
		RedactSignatures:  true,
		RedactHandwrite:   true,
		FuzzyMaxDistance:  DefaultMaxDistance,
		AWSRegion:         DefaultRegion,
		TesseractLanguage: DefaultLanguage,
		Version:           "1.0.0",
		ServerName:        "docsweep",
		LogLevel:          DefaultLogLevel,
		MaxFileSize:       DefaultMaxFileSize,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	// Expand paths if needed
	for _, dir := range []*string{&cfg.InputDir, &cfg.OutputDir, &cfg.WorkDir} {
		if *dir == "" {
			continue
		}
		if expanded, err := filepath.Abs(*dir); err == nil {
			*dir = expanded
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	// Set environment variable prefix
	viper.SetEnvPrefix("DOCSWEEP")
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("inputdir", cfg.InputDir)
	viper.SetDefault("outputdir", cfg.OutputDir)
	viper.SetDefault("workdir", cfg.WorkDir)
	viper.SetDefault("extract", cfg.ExtractionMethod)
	viper.SetDefault("detect", cfg.DetectionMethod)
	viper.SetDefault("batchsize", cfg.PageBatchSize)
	viper.SetDefault("entities", strings.Join(cfg.EntityTypes, ","))
	viper.SetDefault("signatures", cfg.RedactSignatures)
	viper.SetDefault("handwriting", cfg.RedactHandwrite)
	viper.SetDefault("fuzzydistance", cfg.FuzzyMaxDistance)
	viper.SetDefault("fuzzyphrase", cfg.FuzzyWholePhrase)
	viper.SetDefault("region", cfg.AWSRegion)
	viper.SetDefault("language", cfg.TesseractLanguage)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
	viper.SetDefault("logdocnames", cfg.LogDocumentNames)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Execution mode: 'stdio' for MCP standard I/O, 'run' for one-shot processing")
	pflag.String("inputdir", cfg.InputDir, "Directory containing input documents")
	pflag.String("outputdir", cfg.OutputDir, "Directory for review files and redacted output")
	pflag.String("workdir", cfg.WorkDir, "Base directory for per-session working state")
	pflag.String("extract", cfg.ExtractionMethod, "Extraction method: text, tesseract or textract")
	pflag.String("detect", cfg.DetectionMethod, "Detection method: none, local or comprehend")
	pflag.Int("batchsize", cfg.PageBatchSize, "Pages processed per redaction batch")
	pflag.String("entities", strings.Join(cfg.EntityTypes, ","), "Comma-separated entity types to detect (empty = defaults)")
	pflag.Bool("signatures", cfg.RedactSignatures, "Redact detected signatures")
	pflag.Bool("handwriting", cfg.RedactHandwrite, "Redact detected handwriting")
	pflag.Int("fuzzydistance", cfg.FuzzyMaxDistance, "Maximum edit distance for fuzzy deny-list matching")
	pflag.Bool("fuzzyphrase", cfg.FuzzyWholePhrase, "Fuzzy-match deny terms as whole phrases instead of per word")
	pflag.String("region", cfg.AWSRegion, "AWS region for Textract and Comprehend")
	pflag.String("language", cfg.TesseractLanguage, "Tesseract language")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum input file size in bytes")
	pflag.Bool("logdocnames", cfg.LogDocumentNames, "Include document names in the usage log")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, name := range []string{
		"mode", "inputdir", "outputdir", "workdir", "extract", "detect",
		"batchsize", "entities", "signatures", "handwriting",
		"fuzzydistance", "fuzzyphrase", "region", "language",
		"loglevel", "maxfilesize", "logdocnames",
	} {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\ndocsweep - PII detection and redaction for documents and tabular data\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                        # stdio MCP mode (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --inputdir=/docs --outputdir=/out      # stdio mode, custom directories\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=run --extract=textract          # one-shot run with cloud OCR\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  DOCSWEEP_MODE          Execution mode\n")
		fmt.Fprintf(os.Stderr, "  DOCSWEEP_INPUTDIR      Input document directory\n")
		fmt.Fprintf(os.Stderr, "  DOCSWEEP_OUTPUTDIR     Output directory\n")
		fmt.Fprintf(os.Stderr, "  DOCSWEEP_EXTRACT       Extraction method\n")
		fmt.Fprintf(os.Stderr, "  DOCSWEEP_DETECT        Detection method\n")
		fmt.Fprintf(os.Stderr, "  DOCSWEEP_REGION        AWS region\n")
		fmt.Fprintf(os.Stderr, "  DOCSWEEP_LOGLEVEL      Log level\n")
		fmt.Fprintf(os.Stderr, "  DOCSWEEP_MAXFILESIZE   Maximum file size\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.InputDir = viper.GetString("inputdir")
	cfg.OutputDir = viper.GetString("outputdir")
	cfg.WorkDir = viper.GetString("workdir")
	cfg.ExtractionMethod = viper.GetString("extract")
	cfg.DetectionMethod = viper.GetString("detect")
	cfg.PageBatchSize = viper.GetInt("batchsize")
	cfg.RedactSignatures = viper.GetBool("signatures")
	cfg.RedactHandwrite = viper.GetBool("handwriting")
	cfg.FuzzyMaxDistance = viper.GetInt("fuzzydistance")
	cfg.FuzzyWholePhrase = viper.GetBool("fuzzyphrase")
	cfg.AWSRegion = viper.GetString("region")
	cfg.TesseractLanguage = viper.GetString("language")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
	cfg.LogDocumentNames = viper.GetBool("logdocnames")

	cfg.EntityTypes = nil
	if raw := viper.GetString("entities"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				cfg.EntityTypes = append(cfg.EntityTypes, strings.ToUpper(t))
			}
		}
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate mode
	if c.Mode != ModeStdio && c.Mode != ModeRun {
		return errors.New("mode must be either 'stdio' or 'run'")
	}

	switch extract.Method(c.ExtractionMethod) {
	case extract.MethodTextLayer, extract.MethodTesseract, extract.MethodTextract:
	default:
		return fmt.Errorf("invalid extraction method: %s (must be one of: text, tesseract, textract)", c.ExtractionMethod)
	}

	switch detect.Method(c.DetectionMethod) {
	case detect.MethodNone, detect.MethodLocal, detect.MethodCloud:
	default:
		return fmt.Errorf("invalid detection method: %s (must be one of: none, local, comprehend)", c.DetectionMethod)
	}

	if c.PageBatchSize < 1 {
		return errors.New("page batch size must be at least 1")
	}

	if c.FuzzyMaxDistance < 0 {
		return errors.New("fuzzy distance cannot be negative")
	}

	// Validate directories, creating them when absent
	for _, dir := range []string{c.InputDir, c.OutputDir, c.WorkDir} {
		if dir == "" {
			return errors.New("input, output and work directories cannot be empty")
		}
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, DefaultDirPerm); err != nil {
				return fmt.Errorf("cannot create directory %s: %w", dir, err)
			}
		} else if err != nil {
			return fmt.Errorf("cannot access directory %s: %w", dir, err)
		}
	}

	// Validate max file size
	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// Extraction returns the configured extraction method.
func (c *Config) Extraction() extract.Method { return extract.Method(c.ExtractionMethod) }

// Detection returns the configured detection method.
func (c *Config) Detection() detect.Method { return detect.Method(c.DetectionMethod) }

// Entities returns the configured entity type allow set.
func (c *Config) Entities() []detect.EntityType {
	out := make([]detect.EntityType, len(c.EntityTypes))
	for i, t := range c.EntityTypes {
		out[i] = detect.EntityType(t)
	}
	return out
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, InputDir: %s, OutputDir: %s, Extract: %s, Detect: %s, LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.InputDir, c.OutputDir, c.ExtractionMethod, c.DetectionMethod, c.LogLevel, c.MaxFileSize)
}

// IsRunMode returns true if the service processes one document and exits
func (c *Config) IsRunMode() bool {
	return c.Mode == ModeRun
}

// IsStdioMode returns true if the service is running as a stdio MCP server
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
