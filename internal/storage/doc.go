// Package storage owns the two flat directories the server works with: the
// staging area for uploaded HTML documents and the outbound directory of
// generated PDFs.
//
// The outbound directory is its own catalog. Registry is the only type that
// lists, resolves, opens, commits or deletes files there, so the containment
// check applied by Resolve cannot be bypassed by callers.
package storage
