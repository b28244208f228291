package media

import (
	"bytes"
	"compress/flate"
	"fmt"
	"image"
	"image/png"
	"path/filepath"
	"strings"

	// decoders for the formats browsers hand us
	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/disintegration/imaging"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
)

type Kind int

const (
	// KindNormalized means the image was decoded, bounded and re-encoded.
	KindNormalized Kind = iota
	// KindPassthrough means the original bytes are kept as-is.
	KindPassthrough
)

const (
	ContentTypeWebP        = "image/webp"
	ContentTypePNG         = "image/png"
	ContentTypeOctetStream = "application/octet-stream"
)

// DefaultMaxPixels is the area of the largest WebP canvas.
const DefaultMaxPixels = 16383 * 16383

type (
	Image struct {
		Data        []byte
		Filename    string
		ContentType string
	}

	// Result is what Normalize produced. Err is set only for passthrough and
	// explains why the original was kept.
	Result struct {
		Kind  Kind
		Image Image
		Err   error
	}

	// Normalizer re-encodes uploads. Inputs declaring more than MaxPixels
	// are passed through before any bitmap is allocated; zero disables the
	// bound.
	Normalizer struct {
		MaxDimension   int
		MaxPixels      int64
		WebPQuality    float32
		WebPEffort     int
		PNGCompression int
	}
)

func Default() *Normalizer {
	return &Normalizer{
		MaxDimension:   1920,
		MaxPixels:      DefaultMaxPixels,
		WebPQuality:    85,
		WebPEffort:     6,
		PNGCompression: 6,
	}
}

func (k Kind) String() string {
	if k == KindPassthrough {
		return "passthrough"
	}
	return "normalized"
}

// Normalize bounds the longer side to MaxDimension and re-encodes the image.
// PNG inputs stay PNG, everything else becomes lossy WebP. It never fails:
// anything it cannot handle comes back untouched as a passthrough.
func (n *Normalizer) Normalize(data []byte, filename string) Result {
	out, err := n.normalize(data, filename)
	if err != nil {
		return Result{
			Kind: KindPassthrough,
			Image: Image{
				Data:        data,
				Filename:    filename,
				ContentType: ContentTypeOctetStream,
			},
			Err: err,
		}
	}
	return Result{Kind: KindNormalized, Image: out}
}

func (n *Normalizer) normalize(data []byte, filename string) (Image, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("read image header: %w", err)
	}
	if format == "" {
		return Image{}, fmt.Errorf("unknown image format")
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); n.MaxPixels > 0 && pixels > n.MaxPixels {
		return Image{}, fmt.Errorf("image of %dx%d exceeds the %d pixel limit", cfg.Width, cfg.Height, n.MaxPixels)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return Image{}, fmt.Errorf("decode image: %w", err)
	}

	b := img.Bounds()
	if n.MaxDimension > 0 && (b.Dx() > n.MaxDimension || b.Dy() > n.MaxDimension) {
		img = imaging.Fit(img, n.MaxDimension, n.MaxDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	if strings.EqualFold(filepath.Ext(filename), ".png") {
		enc := png.Encoder{CompressionLevel: pngLevel(n.PNGCompression)}
		if err := enc.Encode(&buf, img); err != nil {
			return Image{}, fmt.Errorf("encode png: %w", err)
		}
		return Image{Data: buf.Bytes(), Filename: base + ".png", ContentType: ContentTypePNG}, nil
	}

	options, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, n.WebPQuality)
	if err != nil {
		return Image{}, fmt.Errorf("webp options: %w", err)
	}
	options.Method = n.WebPEffort
	if err := webp.Encode(&buf, img, options); err != nil {
		return Image{}, fmt.Errorf("encode webp: %w", err)
	}
	return Image{Data: buf.Bytes(), Filename: base + ".webp", ContentType: ContentTypeWebP}, nil
}

// pngLevel maps a zlib level (0-9) onto the four levels image/png offers.
func pngLevel(level int) png.CompressionLevel {
	switch {
	case level <= flate.NoCompression:
		return png.NoCompression
	case level <= 3:
		return png.BestSpeed
	case level >= flate.BestCompression:
		return png.BestCompression
	default:
		return png.DefaultCompression
	}
}
