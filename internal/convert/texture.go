package convert

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"os"

	"depth-parallax/internal/utils"

	"github.com/mauserzjeh/dxt"
	"github.com/pierrec/lz4/v4"
)

// Wallpaper Engine texture formats found in the TEXV header.
const (
	TexFormatRGBA8888 = 0
	TexFormatDXT5     = 4
	TexFormatDXT1     = 7
	TexFormatRG88     = 8
	TexFormatR8       = 9
)

// MaxTexDimension bounds the mip size accepted from a header. GPUs top out
// at 16384 texels per side.
const MaxTexDimension = 16384

const (
	texMagic     = "TEXV0005"
	texInfoMagic = "TEXI0001"
	texbV1       = "TEXB0001"
	texbV3       = "TEXB0003"
)

var (
	ErrInvalidTex     = errors.New("invalid tex file")
	ErrUnsupportedTex = errors.New("unsupported tex payload")
)

// texReader reads little endian fields and keeps the first error so the
// header can be parsed without checking every field.
type texReader struct {
	r   io.ReadSeeker
	err error
}

func (t *texReader) uint32() uint32 {
	if t.err != nil {
		return 0
	}
	var v uint32
	t.err = binary.Read(t.r, binary.LittleEndian, &v)
	return v
}

// magic reads an 8 byte tag followed by its NUL terminator.
func (t *texReader) magic() string {
	if t.err != nil {
		return ""
	}
	b := make([]byte, 9)
	if _, err := io.ReadFull(t.r, b); err != nil {
		t.err = err
		return ""
	}
	return string(bytes.Trim(b, "\x00"))
}

func (t *texReader) bytes(n uint32) []byte {
	if t.err != nil {
		return nil
	}
	b := make([]byte, n)
	_, t.err = io.ReadFull(t.r, b)
	return b
}

// DecodeTex decodes the first mip level of the first image in a Wallpaper
// Engine .tex container. The result is cropped to the image size recorded
// in the header, which can be smaller than the power of two texture.
func DecodeTex(r io.ReadSeeker) (image.Image, error) {
	t := &texReader{r: r}

	if m := t.magic(); m != texMagic {
		if t.err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTex, t.err)
		}
		return nil, fmt.Errorf("%w: magic %q", ErrInvalidTex, m)
	}
	if m := t.magic(); t.err == nil && m != texInfoMagic {
		return nil, fmt.Errorf("%w: info magic %q", ErrInvalidTex, m)
	}

	format := t.uint32()
	_ = t.uint32() // flags
	_ = t.uint32() // texture width
	_ = t.uint32() // texture height
	imgW := t.uint32()
	imgH := t.uint32()
	_ = t.uint32()

	container := t.magic()
	imageCount := t.uint32()
	if container == texbV3 {
		_ = t.uint32() // freeimage format
	}
	if t.err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrInvalidTex, t.err)
	}
	if imageCount == 0 {
		return nil, fmt.Errorf("%w: no image found in texture", ErrInvalidTex)
	}

	utils.Debug("    Format: %d, Image Size: %dx%d, Container: %s", format, imgW, imgH, container)

	mipmapCount := t.uint32()
	if t.err == nil && mipmapCount == 0 {
		return nil, fmt.Errorf("%w: image has no mip levels", ErrInvalidTex)
	}

	mW := t.uint32()
	mH := t.uint32()
	var isLZ4 bool
	var decompressedSize uint32
	if container != texbV1 {
		isLZ4 = t.uint32() == 1
		decompressedSize = t.uint32()
	}
	dataSize := t.uint32()
	if t.err != nil {
		return nil, fmt.Errorf("%w: mip 0: %v", ErrInvalidTex, t.err)
	}
	if mW == 0 || mH == 0 || mW > MaxTexDimension || mH > MaxTexDimension {
		return nil, fmt.Errorf("%w: mip size %dx%d", ErrInvalidTex, mW, mH)
	}
	// No supported format is larger than plain RGBA.
	maxPayload := uint64(mW) * uint64(mH) * 4
	if uint64(dataSize) > maxPayload || uint64(decompressedSize) > maxPayload {
		return nil, fmt.Errorf("%w: mip payload %d/%d bytes exceeds %d", ErrInvalidTex, dataSize, decompressedSize, maxPayload)
	}
	data := t.bytes(dataSize)
	if t.err != nil {
		return nil, fmt.Errorf("%w: mip 0: %v", ErrInvalidTex, t.err)
	}

	if isLZ4 {
		utils.Debug("    Decompressing LZ4: %d -> %d", dataSize, decompressedSize)
		decoded := make([]byte, decompressedSize)
		n, err := lz4.UncompressBlock(data, decoded)
		if err != nil {
			return nil, fmt.Errorf("%w: lz4: %v", ErrInvalidTex, err)
		}
		data = decoded[:n]
	}

	pix, err := decodeMip(format, data, mW, mH)
	if err != nil {
		return nil, err
	}

	rgba := &image.RGBA{
		Pix:    pix,
		Stride: int(mW) * 4,
		Rect:   image.Rect(0, 0, int(mW), int(mH)),
	}
	if imgW == 0 || imgH == 0 || imgW > mW || imgH > mH {
		return rgba, nil
	}
	return rgba.SubImage(image.Rect(0, 0, int(imgW), int(imgH))), nil
}

func decodeMip(format uint32, data []byte, mW, mH uint32) ([]byte, error) {
	w, h := int(mW), int(mH)
	numBlocks := ((w + 3) / 4) * ((h + 3) / 4)
	expectedDXT1 := numBlocks * 8
	expectedDXT5 := numBlocks * 16
	expectedRGBA := w * h * 4
	size := len(data)

	switch {
	case format == TexFormatR8 && size == w*h:
		utils.Debug("    Type: R8")
		pix := make([]byte, expectedRGBA)
		for k, v := range data {
			pix[k*4] = v
			pix[k*4+1] = v
			pix[k*4+2] = v
			pix[k*4+3] = 255
		}
		return pix, nil
	case format == TexFormatRG88 && size == w*h*2:
		utils.Debug("    Type: RG88")
		pix := make([]byte, expectedRGBA)
		for k := 0; k < w*h; k++ {
			lum := data[k*2]
			pix[k*4] = lum
			pix[k*4+1] = lum
			pix[k*4+2] = lum
			pix[k*4+3] = data[k*2+1]
		}
		return pix, nil
	case size == expectedRGBA:
		utils.Debug("    Type: RGBA")
		return data, nil
	case size == expectedDXT5 && format != TexFormatDXT1:
		utils.Debug("    Type: DXT5")
		pix, err := dxt.DecodeDXT5(data, uint(mW), uint(mH))
		if err != nil {
			return nil, fmt.Errorf("%w: dxt5: %v", ErrInvalidTex, err)
		}
		return pix, nil
	case size == expectedDXT1:
		utils.Debug("    Type: DXT1")
		pix, err := dxt.DecodeDXT1(data, uint(mW), uint(mH))
		if err != nil {
			return nil, fmt.Errorf("%w: dxt1: %v", ErrInvalidTex, err)
		}
		return pix, nil
	}
	return nil, fmt.Errorf("%w: format %d with size %d", ErrUnsupportedTex, format, size)
}

func DecodeTexFile(path string) (image.Image, error) {
	utils.Debug("Decoding texture: %s", path)
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := DecodeTex(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}
