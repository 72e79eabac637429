// Package personalize applies one-time template substitutions across the
// repository tree.
//
// The repository ships with placeholder values (domain, email, node name)
// that must be replaced with the operator's own before the reconciler takes
// over. Whether the tree still needs personalizing is detected through a
// sentinel string in a known file: once the sentinel is gone, the whole
// operation is a no-op and touches nothing.
package personalize

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Rule is a single ordered substitution.
type Rule struct {
	Pattern     string
	Replacement string
}

// matchExts lists the file suffixes personalization applies to.
var matchExts = []string{".yaml", ".yml", ".md"}

// Needed reports whether the sentinel is still present in the given file.
// A missing file counts as already personalized.
func Needed(root, sentinelFile, sentinel string) (bool, error) {
	data, err := os.ReadFile(filepath.Join(root, sentinelFile))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read sentinel file: %w", err)
	}
	return strings.Contains(string(data), sentinel), nil
}

// Personalize applies all rules in order to every matching file under root,
// in place. It returns the number of files rewritten.
//
// A failure writing any single file aborts the whole operation. Files
// already rewritten stay rewritten; partial application is accepted and
// resolved by re-running, since the sentinel only disappears once the
// sentinel file itself has been rewritten.
func Personalize(root, sentinelFile, sentinel string, rules []Rule) (int, error) {
	needed, err := Needed(root, sentinelFile, sentinel)
	if err != nil {
		return 0, err
	}
	if !needed {
		return 0, nil
	}

	changed := 0
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !matches(path) {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		out := string(data)
		for _, rule := range rules {
			out = strings.ReplaceAll(out, rule.Pattern, rule.Replacement)
		}
		if out == string(data) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(out), info.Mode().Perm()); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		changed++
		return nil
	})
	if err != nil {
		return changed, fmt.Errorf("personalization failed: %w", err)
	}
	return changed, nil
}

func matches(path string) bool {
	ext := filepath.Ext(path)
	for _, m := range matchExts {
		if ext == m {
			return true
		}
	}
	return false
}
