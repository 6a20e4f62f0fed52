package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue/token"
	"github.com/spf13/afero"

	"github.com/roach88/notiondb/internal/compiler"
	"github.com/roach88/notiondb/internal/config"
	"github.com/roach88/notiondb/internal/engine"
	"github.com/roach88/notiondb/internal/native"
	"github.com/roach88/notiondb/internal/notion"
	"github.com/roach88/notiondb/internal/project"
	"github.com/roach88/notiondb/internal/remote"
	"github.com/roach88/notiondb/internal/store"
)

// LoadResult contains the table definitions read from a file or directory.
type LoadResult struct {
	Tables    []*compiler.TableSpec
	FileCount int // Number of CUE files read
}

// LoadError represents an error that occurred while loading definitions.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants for load failures. Validation codes (E1xx) come
// from the compiler package.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // File unreadable or CUE compile failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeWriteFailed = "E007" // File write error
)

// LoadTables reads table definitions from a .cue file, or from every .cue
// file under a directory in lexical order. Files are compiled separately;
// the first failure stops loading.
func LoadTables(fs afero.Fs, path string) (*LoadResult, error) {
	info, err := fs.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("path not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing %s: %v", path, err)}
	}

	files := []string{path}
	if info.IsDir() {
		files, err = FindCUEFiles(fs, path)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
		}
		if len(files) == 0 {
			return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}
		}
	}

	result := &LoadResult{FileCount: len(files)}
	for _, file := range files {
		src, err := afero.ReadFile(fs, file)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading %s: %v", file, err)}
		}
		tables, err := compiler.CompileSource(file, src)
		if err != nil {
			return nil, convertCompileError(err, file)
		}
		result.Tables = append(result.Tables, tables...)
	}
	return result, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths, sorted.
func FindCUEFiles(fs afero.Fs, dir string) ([]string, error) {
	var files []string
	err := afero.Walk(fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, file string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    ErrCodeLoadFailed,
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeLoadFailed,
		Message: fmt.Sprintf("%s: %v", file, err),
	}
}

// fs returns the injected filesystem or the OS one.
func (o *RootOptions) fs() afero.Fs {
	if o.Fs == nil {
		o.Fs = afero.NewOsFs()
	}
	return o.Fs
}

// tokenStore returns the injected token store, opening the OS keyring on
// first use.
func (o *RootOptions) tokenStore() (config.TokenStore, error) {
	if o.Tokens != nil {
		return o.Tokens, nil
	}
	ring, err := config.OpenKeyring()
	if err != nil {
		return nil, err
	}
	o.Tokens = ring
	return ring, nil
}

// newLoader builds a config loader from the global flags. A keyring that
// cannot be opened only means the token must come from somewhere else.
func (o *RootOptions) newLoader() *config.Loader {
	opts := []config.Option{config.WithFs(o.fs())}
	if o.ConfigFile != "" {
		opts = append(opts, config.WithConfigFile(o.ConfigFile))
	}
	if o.WorkDir != "" {
		opts = append(opts, config.WithWorkDir(o.WorkDir))
	}
	if o.HomeDir != "" {
		opts = append(opts, config.WithHomeDir(o.HomeDir))
	}
	if tokens, err := o.tokenStore(); err == nil {
		opts = append(opts, config.WithTokenStore(tokens))
	}

	loader := config.NewLoader(opts...)
	if o.Backend != "" {
		loader.Viper().Set(config.KeyBackend, o.Backend)
	}
	if o.LocalPath != "" {
		loader.Viper().Set(config.KeyLocalPath, o.LocalPath)
	}
	return loader
}

// loadConfig resolves and validates the settings every store command needs.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	cfg, err := o.newLoader().Load()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if o.Verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid config", err)
	}
	return cfg, nil
}

// newLogger writes text logs at the configured level to w.
func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// session is an open store plus the executor over it.
type session struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    remote.Store
	executor *engine.Executor
	close    func() error
}

// openSession loads config and opens the configured backend.
func (o *RootOptions) openSession(errOut io.Writer) (*session, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(errOut, cfg.LogLevel)

	s := &session{cfg: cfg, logger: logger, close: func() error { return nil }}
	switch cfg.Backend {
	case config.BackendLocal:
		st, err := store.Open(cfg.LocalPath)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open local store", err)
		}
		s.store = st
		s.close = st.Close
	default:
		s.store = notion.New(cfg.Token,
			notion.WithBaseURL(cfg.BaseURL),
			notion.WithVersion(cfg.NotionVersion),
			notion.WithTimeout(cfg.Timeout),
			notion.WithLogger(logger),
		)
	}
	logger.Debug("store opened", "backend", cfg.Backend, "config", cfg.ConfigFile, "token_source", cfg.TokenSource)

	s.executor = engine.New(s.store, executorOptions(cfg, logger)...)
	return s, nil
}

func executorOptions(cfg *config.Config, logger *slog.Logger) []engine.Option {
	nc := native.DefaultConfig()
	nc.DefaultPageSize = cfg.PageSize

	opts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithConfig(nc),
		engine.WithRequireMatch(cfg.RequireMatch),
	}
	if len(cfg.Tables) > 0 || cfg.DatabaseID != "" {
		opts = append(opts, engine.WithTables(cfg.Tables, cfg.DatabaseID))
	}
	if cfg.KeepEmptyRows {
		opts = append(opts, engine.WithRowPolicy(project.KeepAllRows))
	}
	return opts
}

// errorCode maps an error to the code shown in CLI output.
func errorCode(err error) string {
	var engErr *engine.Error
	if errors.As(err, &engErr) {
		return string(engErr.Code)
	}
	if rErr, ok := remote.AsError(err); ok {
		return strings.ToUpper(rErr.Code)
	}
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	return ErrCodeGeneric
}
