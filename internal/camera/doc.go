// Package camera feeds images dropped into a directory to the security service.
//
// The watcher reacts to created and written image files, waits for writes to
// settle and submits each file at most at the configured rate.
package camera
