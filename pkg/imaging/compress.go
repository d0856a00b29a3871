package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

var jpegQualities = []int{85, 75, 65, 55, 45, 40}

// Compress recomputes an image to fit within MaxEdge pixels on the longer
// edge and, where the format allows it, TargetBytes. The content type is
// preserved. WebP is decoded to check it but stored as uploaded: there is no
// WebP encoder in the x/image tree.
func Compress(data []byte, contentType string) ([]byte, error) {
	switch NormalizeContentType(contentType) {
	case ContentTypeJPEG:
		img, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptImage, err)
		}
		if len(data) <= TargetBytes && fits(img.Bounds()) {
			return data, nil
		}
		return encodeJPEG(resize(img))

	case ContentTypePNG:
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptImage, err)
		}
		if len(data) <= TargetBytes && fits(img.Bounds()) {
			return data, nil
		}
		var buf bytes.Buffer
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, resize(img)); err != nil {
			return nil, err
		}
		// lossless re-encode of an in-bounds image can come out larger
		if fits(img.Bounds()) && buf.Len() > len(data) {
			return data, nil
		}
		return buf.Bytes(), nil

	case ContentTypeWebP:
		if _, err := webp.DecodeConfig(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptImage, err)
		}
		return data, nil

	default:
		return nil, ErrInvalidFileType
	}
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	for _, q := range jpegQualities {
		buf.Reset()
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
			return nil, err
		}
		if buf.Len() <= TargetBytes {
			break
		}
	}
	return buf.Bytes(), nil
}

func fits(b image.Rectangle) bool {
	return b.Dx() <= MaxEdge && b.Dy() <= MaxEdge
}

// resize scales img down so the longer edge is MaxEdge, keeping the aspect ratio.
func resize(img image.Image) image.Image {
	b := img.Bounds()
	if fits(b) {
		return img
	}

	w, h := b.Dx(), b.Dy()
	if w >= h {
		h = max(1, h*MaxEdge/w)
		w = MaxEdge
	} else {
		w = max(1, w*MaxEdge/h)
		h = MaxEdge
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
