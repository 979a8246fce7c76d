package utils

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// AssetsPath is an extra directory searched after the working directory
// and ./assets. Set from the -assets flag or the config file.
var AssetsPath string

// ImageExtensions lists the suffixes tried when an asset is named without one.
var ImageExtensions = []string{".png", ".jpg", ".jpeg", ".webp", ".bmp", ".tif", ".tiff", ".gif", ".tex"}

var errFound = errors.New("found")

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

func searchDirs() []string {
	dirs := []string{".", "assets"}
	if AssetsPath != "" {
		dirs = append(dirs, AssetsPath)
	}
	return dirs
}

// ResolveAssetPath returns the first existing location of relPath, or the
// path under ./assets when nothing matches.
func ResolveAssetPath(relPath string) string {
	if filepath.IsAbs(relPath) {
		return relPath
	}

	for _, dir := range searchDirs() {
		p := filepath.Join(dir, relPath)
		if fileExists(p) {
			return p
		}
	}

	return filepath.Join("assets", relPath)
}

// FindImageFile locates an image asset by name. Names without an extension
// are tried with every entry of ImageExtensions. As a last resort the asset
// directories are walked looking for a file with the same base name.
func FindImageFile(name string) string {
	if name == "" {
		return ""
	}
	if fileExists(name) {
		return name
	}

	hasExt := filepath.Ext(name) != ""
	for _, dir := range searchDirs() {
		p := filepath.Join(dir, name)
		if fileExists(p) {
			return p
		}
		if hasExt {
			continue
		}
		for _, ext := range ImageExtensions {
			p := filepath.Join(dir, name+ext)
			if fileExists(p) {
				return p
			}
		}
	}

	targetBase := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	var foundPath string
	for _, d := range searchDirs()[1:] {
		if _, err := os.Stat(d); err != nil {
			continue
		}
		filepath.WalkDir(d, func(path string, entry fs.DirEntry, err error) error {
			if err != nil || entry.IsDir() {
				return nil
			}
			base := entry.Name()
			ext := strings.ToLower(filepath.Ext(base))
			if strings.TrimSuffix(base, filepath.Ext(base)) != targetBase {
				return nil
			}
			for _, known := range ImageExtensions {
				if ext == known {
					foundPath = path
					return errFound
				}
			}
			return nil
		})
		if foundPath != "" {
			break
		}
	}

	return foundPath
}
