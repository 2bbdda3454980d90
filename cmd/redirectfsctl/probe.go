package main

import "os"

// osFilesystemProbe satisfies director.FilesystemProbe against the real
// filesystem, the production counterpart to the fake probes the director
// package's own tests use.
type osFilesystemProbe struct{}

func (osFilesystemProbe) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (osFilesystemProbe) DirectoryExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
