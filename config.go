// Store configuration.
//
// Config is passed to Open directly. LoadConfig reads the same settings
// from a JSONC file (JSON with comments and trailing commas) so a host
// application can keep them next to its other configuration.
package mingledb

import (
	"fmt"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
	"github.com/tailscale/hujson"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Config holds store configuration options. Zero values select defaults.
type Config struct {
	Compression  int         // CompressionZlib (default) or CompressionZstd
	SyncWrites   bool        // fsync after every append
	ReadBuffer   int         // buffer size for reading (default 64KB)
	MaxFrameSize int         // maximum frame payload (default 16MB)
	MaxDocSize   int         // maximum decompressed document (default 64MB)
	PasswordCost int         // bcrypt cost for credential digests
	Logger       *zap.Logger // defaults to a no-op logger
}

func (c Config) withDefaults() Config {
	if c.Compression == 0 {
		c.Compression = CompressionZlib
	}
	if c.ReadBuffer == 0 {
		c.ReadBuffer = 64 * 1024
	}
	if c.MaxFrameSize == 0 {
		c.MaxFrameSize = MaxFrameSize
	}
	if c.MaxDocSize == 0 {
		c.MaxDocSize = MaxDocumentSize
	}
	if c.PasswordCost == 0 {
		c.PasswordCost = bcrypt.DefaultCost
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// fileConfig is the on-disk form read by LoadConfig.
type fileConfig struct {
	Dir          string `json:"dir"`
	Compression  string `json:"compression,omitempty"`
	SyncWrites   bool   `json:"sync_writes,omitempty"`
	ReadBuffer   int    `json:"read_buffer,omitempty"`
	MaxFrameSize int    `json:"max_frame_size,omitempty"`
	MaxDocSize   int    `json:"max_document_size,omitempty"`
	PasswordCost int    `json:"password_cost,omitempty"`
}

// LoadConfig reads a JSONC configuration file and returns the data
// directory and the Config it describes. A relative dir is resolved
// against the directory holding the configuration file.
//
//	{
//	  "dir": "data",          // collection files live here
//	  "compression": "zstd",  // "zlib" (default) or "zstd"
//	  "sync_writes": true,
//	}
func LoadConfig(path string) (string, Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", Config{}, fmt.Errorf("config: %w", err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return "", Config{}, fmt.Errorf("config: invalid JSONC: %w", err)
	}

	var fc fileConfig
	if err := json.Unmarshal(standardized, &fc); err != nil {
		return "", Config{}, fmt.Errorf("config: invalid JSON: %w", err)
	}

	if fc.Dir == "" {
		return "", Config{}, fmt.Errorf("config: %q: dir is required", path)
	}
	dir := fc.Dir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(filepath.Dir(path), dir)
	}

	cfg := Config{
		SyncWrites:   fc.SyncWrites,
		ReadBuffer:   fc.ReadBuffer,
		MaxFrameSize: fc.MaxFrameSize,
		MaxDocSize:   fc.MaxDocSize,
		PasswordCost: fc.PasswordCost,
	}
	switch fc.Compression {
	case "", "zlib":
		cfg.Compression = CompressionZlib
	case "zstd":
		cfg.Compression = CompressionZstd
	default:
		return "", Config{}, fmt.Errorf("config: unknown compression %q (supported: zlib, zstd)", fc.Compression)
	}
	if cfg.PasswordCost != 0 && (cfg.PasswordCost < bcrypt.MinCost || cfg.PasswordCost > bcrypt.MaxCost) {
		return "", Config{}, fmt.Errorf("config: password_cost %d out of range [%d, %d]", cfg.PasswordCost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if cfg.ReadBuffer < 0 || cfg.MaxFrameSize < 0 || cfg.MaxDocSize < 0 {
		return "", Config{}, fmt.Errorf("config: negative buffer size")
	}

	return dir, cfg, nil
}

// OpenConfig loads a configuration file and opens the store it names.
// logger may be nil.
func OpenConfig(path string, logger *zap.Logger) (*DB, error) {
	dir, cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	cfg.Logger = logger
	return Open(dir, cfg)
}
