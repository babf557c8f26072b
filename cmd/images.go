package cmd

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/andresmejia3/faceguard/internal/utils"
)

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// collectImages expands each argument: files are kept as given, directories
// contribute their image files in name order (non-recursive).
func collectImages(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, err
		}
		var found []string
		for _, e := range entries {
			if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
				continue
			}
			found = append(found, filepath.Join(p, e.Name()))
		}
		sort.Strings(found)
		out = append(out, found...)
	}
	return out, nil
}

// loadImages reads and sniffs every file. Errors name the failing path.
func loadImages(paths []string) ([][]byte, error) {
	images := make([][]byte, len(paths))
	for i, p := range paths {
		data, err := utils.ReadImageFile(p)
		if err != nil {
			return nil, err
		}
		images[i] = data
	}
	return images, nil
}
