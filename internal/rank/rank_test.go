package rank

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/rs/zerolog"

	"github.com/reelframe/reelframe/internal/colorspace"
	"github.com/reelframe/reelframe/internal/probe"
)

// stubProber serves canned results per URL and records the probe order.
type stubProber struct {
	images map[string]*probe.Image
	errs   map[string]error
	calls  []string
}

func (s *stubProber) Probe(ctx context.Context, url string) (*probe.Image, error) {
	s.calls = append(s.calls, url)
	if err, ok := s.errs[url]; ok {
		return nil, err
	}
	if img, ok := s.images[url]; ok {
		return img, nil
	}
	return nil, fmt.Errorf("%w: no stub for %s", probe.ErrFetch, url)
}

// proberFunc adapts a function to the Prober seam for per-call hooks.
type proberFunc func(ctx context.Context, url string) (*probe.Image, error)

func (f proberFunc) Probe(ctx context.Context, url string) (*probe.Image, error) {
	return f(ctx, url)
}

func solidPNG(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

// gray119 averages to roughly Lab(50, 0, 0).
var gray119 = color.RGBA{R: 119, G: 119, B: 119, A: 255}

func candidate(t *testing.T, w, h int, c color.RGBA) *probe.Image {
	t.Helper()
	return &probe.Image{
		Data:        solidPNG(t, w, h, c),
		Width:       w,
		Height:      h,
		ContentType: "image/png",
	}
}

func defaultParams() Params {
	return Params{
		MinWidth:          1280,
		MinAspect:         1.2,
		TargetAspect:      16.0 / 9.0,
		AspectWeight:      0.5,
		ColorNormalizer:   80,
		ColorFailPenalty:  50,
		EarlyExitScore:    0.3,
		EarlyExitMinValid: 2,
		MaxProbes:         100,
	}
}

func TestSelectBest_RunningMinimum(t *testing.T) {
	// Same geometry, different color distances to the reference: the scan
	// order is worst, best, middle, and the middle one must not displace
	// the best.
	ref := colorspace.FromRGB(119, 119, 119)
	prober := &stubProber{images: map[string]*probe.Image{
		"far":    candidate(t, 1920, 1080, color.RGBA{R: 255, A: 255}),
		"exact":  candidate(t, 1920, 1080, gray119),
		"middle": candidate(t, 1920, 1080, color.RGBA{R: 180, G: 180, B: 180, A: 255}),
	}}

	params := defaultParams()
	params.EarlyExitScore = -100 // never satisfied; force a full scan
	engine := New(prober, params, zerolog.Nop())

	got, err := engine.SelectBest(context.Background(), []string{"far", "exact", "middle"}, &ref)
	if err != nil {
		t.Fatalf("SelectBest() error = %v", err)
	}
	if got.URL != "exact" {
		t.Errorf("SelectBest() picked %q, want \"exact\"", got.URL)
	}
	if len(prober.calls) != 3 {
		t.Errorf("probe calls = %d, want 3 (full scan)", len(prober.calls))
	}
}

func TestSelectBest_WidthFloorBeatsScore(t *testing.T) {
	// The narrow candidate matches the reference color perfectly; the wide
	// one does not. The hard width floor must still eliminate the narrow one.
	ref := colorspace.FromRGB(119, 119, 119)
	prober := &stubProber{images: map[string]*probe.Image{
		"narrow-perfect": candidate(t, 500, 281, gray119),
		"wide-mediocre":  candidate(t, 2000, 1125, color.RGBA{R: 200, G: 40, B: 40, A: 255}),
	}}

	engine := New(prober, defaultParams(), zerolog.Nop())
	got, err := engine.SelectBest(context.Background(), []string{"narrow-perfect", "wide-mediocre"}, &ref)
	if err != nil {
		t.Fatalf("SelectBest() error = %v", err)
	}
	if got.URL != "wide-mediocre" {
		t.Errorf("SelectBest() picked %q, want \"wide-mediocre\"", got.URL)
	}
}

func TestSelectBest_AspectFloor(t *testing.T) {
	ref := colorspace.FromRGB(119, 119, 119)
	prober := &stubProber{images: map[string]*probe.Image{
		"portrait":  candidate(t, 2000, 3000, gray119),
		"landscape": candidate(t, 2000, 1125, gray119),
	}}

	engine := New(prober, defaultParams(), zerolog.Nop())
	got, err := engine.SelectBest(context.Background(), []string{"portrait", "landscape"}, &ref)
	if err != nil {
		t.Fatalf("SelectBest() error = %v", err)
	}
	if got.URL != "landscape" {
		t.Errorf("SelectBest() picked %q, want \"landscape\"", got.URL)
	}
}

func TestSelectBest_EarlyExit(t *testing.T) {
	// Two near-perfect candidates satisfy the threshold at the second valid
	// probe; the third URL must never be fetched.
	ref := colorspace.FromRGB(119, 119, 119)
	prober := &stubProber{images: map[string]*probe.Image{
		"good-1":       candidate(t, 2560, 1440, gray119),
		"good-2":       candidate(t, 2560, 1440, gray119),
		"never-probed": candidate(t, 3840, 2160, gray119),
	}}

	engine := New(prober, defaultParams(), zerolog.Nop())
	got, err := engine.SelectBest(context.Background(), []string{"good-1", "good-2", "never-probed"}, &ref)
	if err != nil {
		t.Fatalf("SelectBest() error = %v", err)
	}
	if got == nil || got.Score >= 0.3 {
		t.Fatalf("SelectBest() score = %v, want < 0.3", got.Score)
	}
	if len(prober.calls) != 2 {
		t.Errorf("probe calls = %v, want exactly [good-1 good-2]", prober.calls)
	}
}

func TestSelectBest_ColorAndAspectEndToEnd(t *testing.T) {
	// A matches the poster color and 16:9 exactly; B is brighter, saturated
	// and no larger. A must win.
	ref := colorspace.Lab{L: 50, A: 0, B: 0}
	prober := &stubProber{images: map[string]*probe.Image{
		"a": candidate(t, 2560, 1440, gray119),
		"b": candidate(t, 1920, 1080, color.RGBA{R: 255, G: 120, B: 60, A: 255}),
	}}

	params := defaultParams()
	params.EarlyExitScore = -100
	engine := New(prober, params, zerolog.Nop())

	got, err := engine.SelectBest(context.Background(), []string{"a", "b"}, &ref)
	if err != nil {
		t.Fatalf("SelectBest() error = %v", err)
	}
	if got.URL != "a" {
		t.Errorf("SelectBest() picked %q, want \"a\"", got.URL)
	}
	if got.Width != 2560 || got.Height != 1440 {
		t.Errorf("selection = %dx%d, want 2560x1440", got.Width, got.Height)
	}
	if got.Extension != ".png" {
		t.Errorf("extension = %q, want .png", got.Extension)
	}
}

func TestSelectBest_FetchFailureResilience(t *testing.T) {
	ref := colorspace.FromRGB(119, 119, 119)
	prober := &stubProber{
		images: map[string]*probe.Image{
			"third": candidate(t, 1920, 1080, gray119),
		},
		errs: map[string]error{
			"first":  fmt.Errorf("%w: connection refused", probe.ErrFetch),
			"second": fmt.Errorf("%w: not an image", probe.ErrDecode),
		},
	}

	engine := New(prober, defaultParams(), zerolog.Nop())
	got, err := engine.SelectBest(context.Background(), []string{"first", "second", "third"}, &ref)
	if err != nil {
		t.Fatalf("SelectBest() error = %v", err)
	}
	if got.URL != "third" {
		t.Errorf("SelectBest() picked %q, want \"third\"", got.URL)
	}
}

func TestSelectBest_ProbeCap(t *testing.T) {
	prober := &stubProber{errs: map[string]error{
		"u1": probe.ErrFetch, "u2": probe.ErrFetch, "u3": probe.ErrFetch,
		"u4": probe.ErrFetch, "u5": probe.ErrFetch,
	}}

	params := defaultParams()
	params.MaxProbes = 2
	engine := New(prober, params, zerolog.Nop())

	_, err := engine.SelectBest(context.Background(), []string{"u1", "u2", "u3", "u4", "u5"}, nil)
	if !errors.Is(err, ErrNoCandidate) {
		t.Fatalf("SelectBest() error = %v, want ErrNoCandidate", err)
	}
	if len(prober.calls) != 2 {
		t.Errorf("probe calls = %d, want 2 (hard cap)", len(prober.calls))
	}
}

func TestSelectBest_NoPosterColor(t *testing.T) {
	// Poster fetch failed upstream: the scan still runs with a neutral fixed
	// color distance, so geometry decides.
	prober := &stubProber{images: map[string]*probe.Image{
		"small": candidate(t, 1366, 768, gray119),
		"large": candidate(t, 3840, 2160, gray119),
	}}

	params := defaultParams()
	params.EarlyExitScore = -100
	engine := New(prober, params, zerolog.Nop())

	got, err := engine.SelectBest(context.Background(), []string{"small", "large"}, nil)
	if err != nil {
		t.Fatalf("SelectBest() error = %v", err)
	}
	if got.URL != "large" {
		t.Errorf("SelectBest() picked %q, want \"large\"", got.URL)
	}
}

func TestSelectBest_CancellationDropsRunningBest(t *testing.T) {
	// Cancelling mid-scan aborts the whole run: a qualifying candidate
	// already measured must not come back as a partial result.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stub := &stubProber{images: map[string]*probe.Image{
		"first":  candidate(t, 1920, 1080, gray119),
		"second": candidate(t, 2560, 1440, gray119),
	}}
	prober := proberFunc(func(c context.Context, url string) (*probe.Image, error) {
		if url == "second" {
			cancel()
		}
		return stub.Probe(c, url)
	})

	params := defaultParams()
	params.EarlyExitScore = -100
	engine := New(prober, params, zerolog.Nop())

	got, err := engine.SelectBest(ctx, []string{"first", "second", "third"}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("SelectBest() error = %v, want context.Canceled", err)
	}
	if got != nil {
		t.Errorf("SelectBest() = %q, want no selection after cancellation", got.URL)
	}
	if len(stub.calls) != 2 {
		t.Errorf("probe calls = %v, want scan to stop at the cancellation", stub.calls)
	}
}

func TestSelectBest_NoQualifyingCandidates(t *testing.T) {
	prober := &stubProber{images: map[string]*probe.Image{
		"tiny": candidate(t, 640, 360, gray119),
	}}

	engine := New(prober, defaultParams(), zerolog.Nop())
	_, err := engine.SelectBest(context.Background(), []string{"tiny", "missing"}, nil)
	if !errors.Is(err, ErrNoCandidate) {
		t.Errorf("SelectBest() error = %v, want ErrNoCandidate", err)
	}
}

func TestSelectBest_EmptyList(t *testing.T) {
	engine := New(&stubProber{}, defaultParams(), zerolog.Nop())
	_, err := engine.SelectBest(context.Background(), nil, nil)
	if !errors.Is(err, ErrNoCandidate) {
		t.Errorf("SelectBest() error = %v, want ErrNoCandidate", err)
	}
}

func TestSelectBest_TieKeepsFirst(t *testing.T) {
	// Identical candidates produce identical scores; the first-discovered
	// one must be kept.
	ref := colorspace.FromRGB(119, 119, 119)
	img1 := candidate(t, 1920, 1080, gray119)
	img2 := candidate(t, 1920, 1080, gray119)
	prober := &stubProber{images: map[string]*probe.Image{
		"first-seen":  img1,
		"second-seen": img2,
	}}

	params := defaultParams()
	params.EarlyExitScore = -100
	engine := New(prober, params, zerolog.Nop())

	got, err := engine.SelectBest(context.Background(), []string{"first-seen", "second-seen"}, &ref)
	if err != nil {
		t.Fatalf("SelectBest() error = %v", err)
	}
	if got.URL != "first-seen" {
		t.Errorf("SelectBest() picked %q, want \"first-seen\"", got.URL)
	}
}
