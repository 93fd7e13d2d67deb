package artwork

import (
	"fmt"
	"os"
	"path/filepath"
)

// SaveOptions names the destination directories for each artifact kind.
type SaveOptions struct {
	PosterDir    string
	LandscapeDir string
}

// SavedFiles lists the paths written by Save. Empty entries mean the
// corresponding artifact was absent from the result.
type SavedFiles struct {
	PosterPath    string
	LandscapePath string
}

// Save writes the artifacts from a fetch result to disk as
// "<Title> - poster.<ext>" and "<Title> - 16x9.<ext>". Directories are
// created as needed. Missing artifacts are skipped.
func Save(result *Result, opts SaveOptions) (*SavedFiles, error) {
	base := SanitizeTitle(result.Title)
	if base == "" {
		base = "untitled"
	}

	saved := &SavedFiles{}

	if result.Poster != nil {
		path, err := writeImage(opts.PosterDir, fmt.Sprintf("%s - poster%s", base, result.Poster.Extension), result.Poster.Data)
		if err != nil {
			return saved, fmt.Errorf("saving poster: %w", err)
		}
		saved.PosterPath = path
	}

	if result.Landscape != nil {
		path, err := writeImage(opts.LandscapeDir, fmt.Sprintf("%s - 16x9%s", base, result.Landscape.Extension), result.Landscape.Data)
		if err != nil {
			return saved, fmt.Errorf("saving landscape: %w", err)
		}
		saved.LandscapePath = path
	}

	return saved, nil
}

func writeImage(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
