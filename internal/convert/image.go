package convert

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"depth-parallax/internal/utils"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// TextureOutDir is where decoded .tex files are cached as PNG. When empty
// the cache is disabled.
var TextureOutDir string

// DecodeImage decodes an image file. Wallpaper Engine .tex files go through
// DecodeTex; everything else uses the image format registry.
func DecodeImage(path string) (image.Image, error) {
	if strings.EqualFold(filepath.Ext(path), ".tex") {
		return LoadTexture(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	utils.Debug("Decoded %s image %s (%dx%d)", format, path, img.Bounds().Dx(), img.Bounds().Dy())
	return img, nil
}

func cachedPNGPath(texPath string) string {
	base := strings.TrimSuffix(filepath.Base(texPath), filepath.Ext(texPath))
	return filepath.Join(TextureOutDir, base+".png")
}

// LoadTexture decodes a .tex file, reusing and refreshing the PNG cache in
// TextureOutDir when it is set.
func LoadTexture(path string) (image.Image, error) {
	if TextureOutDir == "" {
		return DecodeTexFile(path)
	}

	pngPath := cachedPNGPath(path)
	if src, err := os.Stat(path); err == nil {
		if cached, err := os.Stat(pngPath); err == nil && !cached.ModTime().Before(src.ModTime()) {
			if f, err := os.Open(pngPath); err == nil {
				img, err := png.Decode(f)
				f.Close()
				if err == nil {
					utils.Debug("Using cached PNG %s", pngPath)
					return img, nil
				}
				utils.Warn("Ignoring unreadable cache %s: %v", pngPath, err)
			}
		}
	}

	img, err := DecodeTexFile(path)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(TextureOutDir, 0755); err != nil {
		utils.Warn("Failed to create texture cache %s: %v", TextureOutDir, err)
		return img, nil
	}
	if f, err := os.Create(pngPath); err == nil {
		if err := png.Encode(f, img); err != nil {
			utils.Warn("Failed to encode PNG %s: %v", pngPath, err)
			f.Close()
			os.Remove(pngPath)
		} else {
			f.Close()
		}
	}

	return img, nil
}
