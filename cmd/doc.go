// Package cmd implements the command-line interface for apkship.
//
// This package provides the following commands:
//   - bundle: Run the release build and upload the APK once it is built
//   - upload: Upload an existing APK without building
//   - auth: Authorize Google Drive access, optionally resetting the stored token
//   - list: List the files in the upload folder
//   - version: Display version information
//
// Arguments to bundle are forwarded to the build command unchanged.
package cmd
