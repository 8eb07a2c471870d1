package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/image/draw"

	"github.com/sells-group/swing-coach/internal/model"
)

// NormalizeMediaType collapses jpeg variants to the canonical type the vision
// API accepts. Unknown or empty types fall back to image/jpeg.
func NormalizeMediaType(contentType string) string {
	switch contentType {
	case "image/jpg", "image/jpeg", "":
		return "image/jpeg"
	default:
		return contentType
	}
}

// Encode converts raw image bytes to the transport form stored on records and
// sent to the model.
func Encode(data []byte, contentType string) model.EncodedImage {
	return model.EncodedImage{
		Data:      base64.StdEncoding.EncodeToString(data),
		MediaType: NormalizeMediaType(contentType),
	}
}

// Decode reverses Encode, reproducing the original bytes exactly.
func Decode(img model.EncodedImage) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(img.Data)
	if err != nil {
		return nil, eris.Wrap(err, "imaging: decode base64")
	}
	return data, nil
}

// Thumbnail downscales an encoded image to fit within maxW x maxH, preserving
// aspect ratio. Re-encodes in the source format, or JPEG when the format is
// unknown. On any failure the original image is returned unchanged; a broken
// thumbnail must never fail the enclosing request.
func Thumbnail(img model.EncodedImage, maxW, maxH int) model.EncodedImage {
	raw, err := base64.StdEncoding.DecodeString(img.Data)
	if err != nil {
		zap.L().Debug("imaging: thumbnail base64 decode failed, keeping original", zap.Error(err))
		return img
	}

	src, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		zap.L().Debug("imaging: thumbnail image decode failed, keeping original", zap.Error(err))
		return img
	}

	w, h := fitWithin(src.Bounds().Dx(), src.Bounds().Dy(), maxW, maxH)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	mediaType := "image/jpeg"
	switch format {
	case "png":
		err = png.Encode(&buf, dst)
		mediaType = "image/png"
	default:
		err = jpeg.Encode(&buf, dst, nil)
	}
	if err != nil {
		zap.L().Debug("imaging: thumbnail re-encode failed, keeping original", zap.Error(err))
		return img
	}

	return model.EncodedImage{
		Data:      base64.StdEncoding.EncodeToString(buf.Bytes()),
		MediaType: mediaType,
	}
}

// fitWithin scales (w, h) down to fit inside (maxW, maxH) keeping aspect
// ratio. Images already inside the box keep their dimensions.
func fitWithin(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}
	scaleW := float64(maxW) / float64(w)
	scaleH := float64(maxH) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}
	nw := int(float64(w) * scale)
	nh := int(float64(h) * scale)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	return nw, nh
}
