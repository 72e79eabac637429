package toolinstall

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
)

// extractTarGz extracts only the named regular-file members of a tar.gz
// archive into destDir. Anything else in the archive is ignored.
func extractTarGz(archivePath, destDir string, members []string) error {
	wanted := make(map[string]bool, len(members))
	for _, m := range members {
		wanted[m] = true
	}

	// #nosec G304 -- archivePath lives in the run's own temp dir
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("failed to read gzip stream: %w", err)
	}
	defer gz.Close()

	found := 0
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read archive: %w", err)
		}
		name := filepath.Clean(hdr.Name)
		if hdr.Typeflag != tar.TypeReg || !wanted[name] {
			continue
		}

		dest := filepath.Join(destDir, name)
		if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
			return err
		}
		out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o700)
		if err != nil {
			return err
		}
		// Bounded copy: release binaries are tens of MB, 1 GiB is a
		// sanity cap against a malformed header.
		_, err = io.Copy(out, io.LimitReader(tr, 1<<30))
		if closeErr := out.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			return fmt.Errorf("failed to extract %s: %w", name, err)
		}
		found++
	}

	if found != len(members) {
		return fmt.Errorf("archive is missing %d of %d expected binaries", len(members)-found, len(members))
	}
	return nil
}
