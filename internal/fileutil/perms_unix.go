//go:build !windows

package fileutil

import "os"

// SecureWriteFile writes data to a file readable and writable only by the
// owner (0600).
func SecureWriteFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0600)
}

// SecureMkdirAll creates a directory tree accessible only by the owner (0700).
func SecureMkdirAll(path string) error {
	return os.MkdirAll(path, 0700)
}

// SecureOpenFile opens a file for writing, creating it 0600 if needed.
func SecureOpenFile(path string, flag int) (*os.File, error) {
	return os.OpenFile(path, flag, 0600)
}

// restrictToOwner is a no-op on Unix; mode bits at creation time already
// exclude group and other.
func restrictToOwner(string) error { return nil }
