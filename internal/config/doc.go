// Package config loads apkship's configuration.
//
// Values come from three layers, later ones winning:
//   - built-in defaults for the Flutter release workflow
//   - an optional YAML file (<user config dir>/apkship/config.yaml or an explicit path)
//   - APKSHIP_* environment variables, e.g. APKSHIP_FOLDER_NAME=nightly
//
// The resulting Config is passed to each component at construction; no
// package keeps paths or names in global state.
package config
