package common

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// skipped while hashing the build context: nothing in them reaches the image
var skipDirs = map[string]bool{
	".git":      true,
	"_examples": true,
	"infra":     true,
}

// GenerateHash fingerprints the API build context (Go sources, module files
// and the Dockerfile) so the image tag only changes when the API does.
func GenerateHash(root string) (string, error) {
	h := sha256.New()

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !buildInput(d) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		io.WriteString(h, filepath.ToSlash(rel))
		return hashFile(h, path)
	})
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil))[:16], nil
}

func buildInput(d fs.DirEntry) bool {
	if d.Type()&fs.ModeSymlink != 0 {
		return false
	}
	name := d.Name()
	return strings.HasSuffix(name, ".go") ||
		name == "go.mod" ||
		name == "go.sum" ||
		name == "Dockerfile"
}

func hashFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(w, f)
	return err
}
