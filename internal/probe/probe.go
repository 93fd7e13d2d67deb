// Package probe downloads candidate image URLs and measures them without
// assuming the download will succeed or that the payload matches its
// extension.
package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	_ "golang.org/x/image/webp"
)

var (
	// ErrFetch indicates a network, timeout or HTTP status failure.
	ErrFetch = errors.New("image fetch failed")

	// ErrDecode indicates the payload is not a recognizable raster image.
	ErrDecode = errors.New("image decode failed")
)

// maxBodyBytes caps a single candidate download. Payloads above this fail
// the probe; stills and wallpapers that large are not worth the transfer.
const maxBodyBytes = 32 << 20 // 32 MiB

// Image is the materialization of a candidate URL after a successful
// download: payload plus measured dimensions and the declared content type.
type Image struct {
	Data        []byte
	Width       int
	Height      int
	ContentType string
}

// AspectRatio returns width/height, or 0 for a degenerate height.
func (m *Image) AspectRatio() float64 {
	if m.Height <= 0 {
		return 0
	}
	return float64(m.Width) / float64(m.Height)
}

// Prober fetches and measures images over HTTP.
type Prober struct {
	httpClient *http.Client
	userAgent  string
	logger     zerolog.Logger
}

// New creates a Prober with the given request timeout and client identifier.
func New(timeout time.Duration, userAgent string, logger zerolog.Logger) *Prober {
	return &Prober{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		userAgent: userAgent,
		logger:    logger.With().Str("component", "probe").Logger(),
	}
}

// Probe performs a single GET for url and decodes just enough of the payload
// to read pixel dimensions. Failures are expected and common (dead links,
// blocked hosts); callers should skip the candidate and continue.
func (p *Prober) Probe(ctx context.Context, url string) (*Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrFetch, resp.StatusCode)
	}

	// Read one byte past the cap so an oversize payload is detected and
	// rejected instead of silently truncated into a corrupt artifact.
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	if len(data) > maxBodyBytes {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrFetch, maxBodyBytes)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	p.logger.Trace().
		Str("url", url).
		Int("width", cfg.Width).
		Int("height", cfg.Height).
		Int("bytes", len(data)).
		Msg("Probed candidate")

	return &Image{
		Data:        data,
		Width:       cfg.Width,
		Height:      cfg.Height,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

var urlExtRe = regexp.MustCompile(`(?i)\.(jpe?g|png|webp)(?:\?|$)`)

// InferExtension maps the declared content type to a canonical extension,
// falling back to the URL's trailing extension token, then to ".jpg".
func InferExtension(url, contentType string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "png"):
		return ".png"
	case strings.Contains(ct, "webp"):
		return ".webp"
	case strings.Contains(ct, "jpeg"), strings.Contains(ct, "jpg"):
		return ".jpg"
	}

	if m := urlExtRe.FindStringSubmatch(url); m != nil {
		ext := strings.ToLower(m[1])
		if ext == "jpeg" {
			ext = "jpg"
		}
		return "." + ext
	}

	return ".jpg"
}
