// Package history keeps a local record of canonical device states in SQLite.
//
// A Recorder registered as a synchronizer listener writes a row whenever a
// device's translated state differs from the last one it wrote. The API reads
// the rows back through Repository.History. Nothing on the refresh or command
// path depends on this package.
package history
