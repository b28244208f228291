package media

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xwebp "golang.org/x/image/webp"
)

func testImage(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y += 7 {
		for x := 0; x < w; x += 7 {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	return img
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(w, h), nil))
	return buf.Bytes()
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(w, h)))
	return buf.Bytes()
}

func TestNormalize(t *testing.T) {
	n := Default()

	t.Run("LargeJPEGBecomesBoundedWebP", func(t *testing.T) {
		res := n.Normalize(encodeJPEG(t, 4000, 3000), "holiday.JPG")
		require.Equal(t, KindNormalized, res.Kind, "err: %v", res.Err)
		assert.Equal(t, "holiday.webp", res.Image.Filename)
		assert.Equal(t, ContentTypeWebP, res.Image.ContentType)

		cfg, err := xwebp.DecodeConfig(bytes.NewReader(res.Image.Data))
		require.NoError(t, err)
		assert.Equal(t, 1920, cfg.Width)
		assert.Equal(t, 1440, cfg.Height)
	})

	t.Run("PortraitBoundsHeight", func(t *testing.T) {
		res := n.Normalize(encodePNG(t, 1000, 2500), "tall.png")
		require.Equal(t, KindNormalized, res.Kind)

		cfg, err := png.DecodeConfig(bytes.NewReader(res.Image.Data))
		require.NoError(t, err)
		assert.Equal(t, 1920, cfg.Height)
		assert.Equal(t, 768, cfg.Width)
	})

	t.Run("SmallPNGStaysPNGAndIsNotUpscaled", func(t *testing.T) {
		res := n.Normalize(encodePNG(t, 800, 600), "Shot.PNG")
		require.Equal(t, KindNormalized, res.Kind)
		assert.Equal(t, "Shot.png", res.Image.Filename)
		assert.Equal(t, ContentTypePNG, res.Image.ContentType)

		cfg, err := png.DecodeConfig(bytes.NewReader(res.Image.Data))
		require.NoError(t, err)
		assert.Equal(t, 800, cfg.Width)
		assert.Equal(t, 600, cfg.Height)
	})

	t.Run("NoExtension", func(t *testing.T) {
		res := n.Normalize(encodeJPEG(t, 20, 20), "blob")
		require.Equal(t, KindNormalized, res.Kind)
		assert.Equal(t, "blob.webp", res.Image.Filename)
	})

	t.Run("CorruptDataPassesThrough", func(t *testing.T) {
		data := []byte("definitely not an image")
		res := n.Normalize(data, "notes.jpg")
		assert.Equal(t, KindPassthrough, res.Kind)
		assert.Error(t, res.Err)
		assert.Equal(t, data, res.Image.Data)
		assert.Equal(t, "notes.jpg", res.Image.Filename)
		assert.Equal(t, ContentTypeOctetStream, res.Image.ContentType)
	})

	t.Run("TruncatedImagePassesThrough", func(t *testing.T) {
		data := encodeJPEG(t, 200, 200)
		res := n.Normalize(data[:len(data)/3], "cut.jpg")
		assert.Equal(t, KindPassthrough, res.Kind)
	})
}

// declaredPNG returns a PNG whose header claims w x h pixels followed by a
// token IDAT. Only the header is well formed.
func declaredPNG(w, h uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	chunk := func(typ string, data []byte) {
		binary.Write(&buf, binary.BigEndian, uint32(len(data)))
		crc := crc32.NewIEEE()
		crc.Write([]byte(typ))
		crc.Write(data)
		buf.WriteString(typ)
		buf.Write(data)
		binary.Write(&buf, binary.BigEndian, crc.Sum32())
	}
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], w)
	binary.BigEndian.PutUint32(ihdr[4:], h)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 0 // grayscale
	chunk("IHDR", ihdr)
	chunk("IDAT", []byte{0x78, 0x9c, 0x03, 0x00, 0x00, 0x00, 0x00, 0x01})
	chunk("IEND", nil)
	return buf.Bytes()
}

func TestNormalizePixelLimit(t *testing.T) {
	t.Run("HugeDeclaredSizeIsPassedThrough", func(t *testing.T) {
		data := declaredPNG(40000, 40000)
		cfg, err := png.DecodeConfig(bytes.NewReader(data))
		require.NoError(t, err)
		require.Equal(t, 40000, cfg.Width)

		res := Default().Normalize(data, "bomb.png")
		assert.Equal(t, KindPassthrough, res.Kind)
		assert.Equal(t, data, res.Image.Data)
		assert.Equal(t, "bomb.png", res.Image.Filename)
		assert.Equal(t, ContentTypeOctetStream, res.Image.ContentType)
		require.Error(t, res.Err)
		assert.Contains(t, res.Err.Error(), "40000x40000")
	})

	t.Run("BoundIsInclusive", func(t *testing.T) {
		n := Default()
		n.MaxPixels = 100 * 100

		res := n.Normalize(encodePNG(t, 100, 100), "edge.png")
		assert.Equal(t, KindNormalized, res.Kind, "err: %v", res.Err)

		res = n.Normalize(encodePNG(t, 101, 100), "over.png")
		assert.Equal(t, KindPassthrough, res.Kind)
	})

	t.Run("ZeroDisablesBound", func(t *testing.T) {
		n := Default()
		n.MaxPixels = 0
		res := n.Normalize(encodePNG(t, 300, 200), "free.png")
		assert.Equal(t, KindNormalized, res.Kind, "err: %v", res.Err)
	})
}

func TestPNGLevel(t *testing.T) {
	tests := []struct {
		level int
		want  png.CompressionLevel
	}{
		{0, png.NoCompression},
		{1, png.BestSpeed},
		{6, png.DefaultCompression},
		{9, png.BestCompression},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, pngLevel(tt.level))
	}
}
