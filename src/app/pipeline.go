package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"feedserv/src/logger"
	"feedserv/src/media"
	"feedserv/src/storage"

	"github.com/google/uuid"
)

const defaultUploadName = "image.jpg"

type (
	// File is one uploaded part as received from the client.
	File struct {
		Filename string
		Data     []byte
	}

	// Pipeline turns raw uploads into CDN URLs: sanitize the name,
	// normalize the image, push it to storage.
	Pipeline struct {
		normalizer *media.Normalizer
		uploader   storage.Uploader
		prefix     func() string
		log        *logger.Logger
	}
)

func NewPipeline(normalizer *media.Normalizer, uploader storage.Uploader, log *logger.Logger) *Pipeline {
	return &Pipeline{
		normalizer: normalizer,
		uploader:   uploader,
		prefix:     uniquePrefix,
		log:        log.WithFields(map[string]any{"component": "pipeline"}),
	}
}

// Ingest handles files one at a time, in order. The first upload failure
// stops the batch; objects already stored are left in place and listed in
// the returned *IngestError.
func (p *Pipeline) Ingest(ctx context.Context, files []File) ([]string, error) {
	urls := make([]string, 0, len(files))
	for i, f := range files {
		name := SanitizeFilename(f.Filename, p.prefix())

		res := p.normalizer.Normalize(f.Data, name)
		if res.Kind == media.KindPassthrough {
			p.log.Warn("image kept as uploaded", "filename", name, "error", res.Err)
		} else {
			p.log.Debug("image normalized", "filename", res.Image.Filename,
				"in_bytes", len(f.Data), "out_bytes", len(res.Image.Data))
		}

		url, err := p.uploader.Upload(ctx, res.Image.Data, res.Image.Filename, res.Image.ContentType)
		if err != nil {
			if len(urls) > 0 {
				p.log.Error("batch aborted with objects already stored", "uploaded", urls, "error", err)
			}
			return nil, &IngestError{Index: i, Filename: res.Image.Filename, Uploaded: urls, Err: err}
		}
		urls = append(urls, url)
	}
	return urls, nil
}

// SanitizeFilename builds the object name "<prefix>_<base><ext>". Every
// character of the base name outside [A-Za-z0-9] becomes an underscore;
// the extension is kept as sent.
func SanitizeFilename(original, prefix string) string {
	name := original
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		name = defaultUploadName
	}

	base, ext := name, ""
	if dot := strings.LastIndex(name, "."); dot > 0 {
		base, ext = name[:dot], name[dot:]
	}

	var b strings.Builder
	b.Grow(len(prefix) + 1 + len(name))
	b.WriteString(prefix)
	b.WriteByte('_')
	for _, r := range base {
		if ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	b.WriteString(ext)
	return b.String()
}

// uniquePrefix is the upload time in milliseconds plus a short random tag,
// so two uploads in the same millisecond get different names.
func uniquePrefix() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}
