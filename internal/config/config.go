package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// AppName is used for the config directory and the environment prefix.
const AppName = "apkship"

// EnvPrefix is the prefix for environment variable overrides (APKSHIP_FOLDER_NAME, ...).
const EnvPrefix = "APKSHIP"

// Defaults for the Flutter release workflow.
const (
	DefaultBundleURL    = "https://drive.google.com/uc?id=1deJqUyasbYFygEUd1Ex90q8HWY9JujQs"
	DefaultScope        = "https://www.googleapis.com/auth/drive"
	DefaultFolderName   = "shared-app"
	DefaultFileName     = "androidapp.apk"
	DefaultArtifactPath = "build/app/outputs/flutter-apk/app-release.apk"
	DefaultMimeType     = "application/vnd.android.package-archive"
	DefaultMarker       = "Built"
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
)

// DefaultBuildCommand is the build invocation; pass-through arguments are appended to it.
var DefaultBuildCommand = []string{"flutter", "run", "--release"}

// Config keys, shared by the config file and the environment.
const (
	keyRecordPath   = "record_path"
	keyBundlePath   = "bundle_path"
	keyBundleURL    = "bundle_url"
	keyScopes       = "scopes"
	keyFolderName   = "folder_name"
	keyFileName     = "file_name"
	keyArtifactPath = "artifact_path"
	keyMimeType     = "mime_type"
	keyBuildCommand = "build_command"
	keyMarker       = "marker"
	keyLogLevel     = "log_level"
	keyLogFormat    = "log_format"
)

// Config holds everything the workflow components need. It replaces fixed
// module-level paths and names: each component receives the values it uses
// at construction.
type Config struct {
	// RecordPath is where the Authorization Record (refresh token) is stored
	RecordPath string

	// BundlePath is where the Credential Bundle (OAuth client descriptor) is stored
	BundlePath string

	// BundleURL is the remote location the Credential Bundle is fetched from
	BundleURL string

	// Scopes are the OAuth scopes requested during consent
	Scopes []string

	// FolderName is the Drive folder the artifact is uploaded into
	FolderName string

	// FileName is the name of the uploaded file inside FolderName
	FileName string

	// ArtifactPath is the local build artifact, absolute
	ArtifactPath string

	// MimeType is the content type sent with the upload
	MimeType string

	// BuildCommand is the external build invocation (program followed by arguments)
	BuildCommand []string

	// Marker is the substring in build output that signals completion
	Marker string

	// LogLevel is one of debug, info, warn, error
	LogLevel string

	// LogFormat is text or json
	LogFormat string
}

// ConfigDir returns the per-user directory holding apkship's files.
func ConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		dir = filepath.Join(homeDir(), ".config")
	}
	return filepath.Join(dir, AppName)
}

// Default returns a Config populated with the built-in defaults.
func Default() *Config {
	dir := ConfigDir()
	return &Config{
		RecordPath:   filepath.Join(dir, "token.json"),
		BundlePath:   filepath.Join(dir, "credentials.json"),
		BundleURL:    DefaultBundleURL,
		Scopes:       []string{DefaultScope},
		FolderName:   DefaultFolderName,
		FileName:     DefaultFileName,
		ArtifactPath: resolvePath(DefaultArtifactPath),
		MimeType:     DefaultMimeType,
		BuildCommand: append([]string(nil), DefaultBuildCommand...),
		Marker:       DefaultMarker,
		LogLevel:     DefaultLogLevel,
		LogFormat:    DefaultLogFormat,
	}
}

// Load builds a Config from defaults, an optional YAML config file and
// APKSHIP_* environment variables, in increasing order of precedence.
//
// If path is empty, <config dir>/config.yaml is read when it exists.
// An explicit path that cannot be read is an error.
func Load(path string) (*Config, error) {
	def := Default()

	v := viper.New()
	v.SetDefault(keyRecordPath, def.RecordPath)
	v.SetDefault(keyBundlePath, def.BundlePath)
	v.SetDefault(keyBundleURL, def.BundleURL)
	v.SetDefault(keyScopes, def.Scopes)
	v.SetDefault(keyFolderName, def.FolderName)
	v.SetDefault(keyFileName, def.FileName)
	v.SetDefault(keyArtifactPath, DefaultArtifactPath)
	v.SetDefault(keyMimeType, def.MimeType)
	v.SetDefault(keyBuildCommand, def.BuildCommand)
	v.SetDefault(keyMarker, def.Marker)
	v.SetDefault(keyLogLevel, def.LogLevel)
	v.SetDefault(keyLogFormat, def.LogFormat)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(os.ExpandEnv(path))
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		defaultFile := filepath.Join(ConfigDir(), "config.yaml")
		if _, err := os.Stat(defaultFile); err == nil {
			v.SetConfigFile(defaultFile)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg := &Config{
		RecordPath:   expandPath(v.GetString(keyRecordPath)),
		BundlePath:   expandPath(v.GetString(keyBundlePath)),
		BundleURL:    strings.TrimSpace(v.GetString(keyBundleURL)),
		Scopes:       v.GetStringSlice(keyScopes),
		FolderName:   v.GetString(keyFolderName),
		FileName:     v.GetString(keyFileName),
		ArtifactPath: resolvePath(expandPath(v.GetString(keyArtifactPath))),
		MimeType:     v.GetString(keyMimeType),
		BuildCommand: v.GetStringSlice(keyBuildCommand),
		Marker:       v.GetString(keyMarker),
		LogLevel:     strings.ToLower(v.GetString(keyLogLevel)),
		LogFormat:    strings.ToLower(v.GetString(keyLogFormat)),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that every field a component depends on is usable.
func (c *Config) Validate() error {
	var errs []error

	if c.RecordPath == "" {
		errs = append(errs, errors.New("record_path is required"))
	}
	if c.BundlePath == "" {
		errs = append(errs, errors.New("bundle_path is required"))
	}
	if c.BundleURL == "" {
		errs = append(errs, errors.New("bundle_url is required"))
	}
	if len(c.Scopes) == 0 {
		errs = append(errs, errors.New("at least one scope is required"))
	}
	if strings.TrimSpace(c.FolderName) == "" {
		errs = append(errs, errors.New("folder_name is required"))
	}
	if strings.TrimSpace(c.FileName) == "" {
		errs = append(errs, errors.New("file_name is required"))
	}
	if c.ArtifactPath == "" {
		errs = append(errs, errors.New("artifact_path is required"))
	}
	if c.MimeType == "" {
		errs = append(errs, errors.New("mime_type is required"))
	}
	if len(c.BuildCommand) == 0 || c.BuildCommand[0] == "" {
		errs = append(errs, errors.New("build_command is required"))
	}
	if c.Marker == "" {
		errs = append(errs, errors.New("marker is required"))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.LogLevel] {
		errs = append(errs, fmt.Errorf("invalid log level %q, must be one of: debug, info, warn, error", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("invalid log format %q, must be one of: text, json", c.LogFormat))
	}

	return errors.Join(errs...)
}

// resolvePath makes a relative path absolute against the working directory,
// which is where the build tool writes its outputs.
func resolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	wd, err := os.Getwd()
	if err != nil {
		return p
	}
	return filepath.Join(wd, p)
}

// expandPath expands environment variables and a leading ~.
func expandPath(p string) string {
	p = os.ExpandEnv(p)
	if p == "~" {
		return homeDir()
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(homeDir(), p[2:])
	}
	return p
}

func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return os.Getenv("HOME")
}
