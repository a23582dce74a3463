package registry

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// copyIntoSubfolder copies the file at path into a named subfolder of its own
// directory, creating the subfolder on demand. The source file is untouched.
func copyIntoSubfolder(path, folder string) error {
	targetDir := filepath.Join(filepath.Dir(path), folder)
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return fmt.Errorf("create subfolder: %w", err)
	}
	return copyFileContents(path, filepath.Join(targetDir, filepath.Base(path)))
}

func copyFileContents(sourcePath, targetPath string) error {
	source, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer source.Close()

	info, err := source.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	dest, err := os.OpenFile(targetPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}

	if _, err := io.Copy(dest, source); err != nil {
		dest.Close()
		return fmt.Errorf("copy data: %w", err)
	}
	if err := dest.Close(); err != nil {
		return fmt.Errorf("close destination: %w", err)
	}
	return nil
}
