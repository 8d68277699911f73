// Package build runs the external release build and watches its output for
// the artifact.
//
// The build command's stdout and stderr are echoed line by line. When a
// stdout line contains the completion marker while the artifact file exists,
// the build's Ready channel delivers the artifact once; later matching lines
// are ignored. Wait returns the process exit code.
package build
