package tagger

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	"github.com/jaa/playlist-mirror/internal/errkind"
	"github.com/jaa/playlist-mirror/internal/httpx"
	"github.com/jaa/playlist-mirror/internal/model"
)

const (
	coverMinWidth = 300
	coverMaxEdge  = 1000
	coverJPEGQ    = 90
)

// FetchCover downloads the best album image and re-encodes it as a JPEG no
// larger than 1000x1000.
func FetchCover(ctx context.Context, client *httpx.Client, album model.Album) ([]byte, error) {
	img, ok := album.BestImage(coverMinWidth)
	if !ok {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, img.URL, nil)
	if err != nil {
		return nil, errkind.New(errkind.Tagger, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errkind.New(errkind.Tagger, fmt.Errorf("fetch cover art: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, errkind.New(errkind.Tagger, fmt.Errorf("read cover art: %w", err))
	}
	encoded, err := EncodeCover(raw)
	if err != nil {
		return nil, errkind.New(errkind.Tagger, err)
	}
	return encoded, nil
}

// EncodeCover decodes raw image bytes, downscales oversized images and
// returns JPEG output at quality 90.
func EncodeCover(raw []byte) ([]byte, error) {
	decoded, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode cover art: %w", err)
	}
	scaled := scaleDown(decoded, coverMaxEdge)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: coverJPEGQ}); err != nil {
		return nil, fmt.Errorf("encode cover art: %w", err)
	}
	return buf.Bytes(), nil
}

// scaleDown shrinks img so neither edge exceeds maxEdge, using nearest
// neighbor sampling. Images already within bounds pass through unchanged.
func scaleDown(img image.Image, maxEdge int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxEdge && h <= maxEdge {
		return img
	}

	scale := float64(maxEdge) / float64(w)
	if h > w {
		scale = float64(maxEdge) / float64(h)
	}
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	for y := 0; y < newH; y++ {
		srcY := bounds.Min.Y + y*h/newH
		for x := 0; x < newW; x++ {
			srcX := bounds.Min.X + x*w/newW
			dst.Set(x, y, img.At(srcX, srcY))
		}
	}
	return dst
}
