// Package publish uploads a build artifact to Google Drive and wires the
// upload to a running build.
//
// Publisher performs one upload: authorize, find or create the target
// folder, then upload the artifact or replace the content of the existing
// file of the same name, and print the resulting links. Pipeline starts the
// build and runs the Publisher when the build reports its artifact ready.
package publish
