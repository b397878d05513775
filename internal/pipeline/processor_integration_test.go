package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/dunamismax/mkpdf/internal/domain"
)

type captureSink struct {
	pages [][]byte
	err   error
}

func (s *captureSink) AddPage(data []byte) error {
	if s.err != nil {
		return s.err
	}
	s.pages = append(s.pages, data)
	return nil
}

func TestLocalProcessor_OriginalPassesJPEGThrough(t *testing.T) {
	tmp := t.TempDir()
	pngPath := writeTestPNG(t, tmp, "first.png", 240, 120)
	jpegPath := writeTestJPEG(t, tmp, "second.jpg", 64, 48)

	jpegBytes, err := os.ReadFile(jpegPath)
	if err != nil {
		t.Fatalf("read jpeg fixture: %v", err)
	}

	sink := &captureSink{}
	result, err := NewLocalProcessor(nil).Process(context.Background(), Request{
		Inputs: []string{pngPath, jpegPath},
	}, sink)
	if err != nil {
		t.Fatalf("process request: %v", err)
	}

	if len(sink.pages) != 2 || len(result.Pages) != 2 {
		t.Fatalf("expected 2 pages, got sink=%d result=%d", len(sink.pages), len(result.Pages))
	}
	if result.Pages[0].Passthrough {
		t.Fatal("expected png page to be re-encoded")
	}
	if !isJPEG(sink.pages[0]) {
		t.Fatal("expected png page to become a jpeg")
	}
	verifyJPEGSize(t, sink.pages[0], 240, 120)

	if !result.Pages[1].Passthrough {
		t.Fatal("expected jpeg page to pass through")
	}
	if !bytes.Equal(sink.pages[1], jpegBytes) {
		t.Fatal("expected passthrough page to be byte-identical to the input")
	}
	if result.Pages[1].Width != 64 || result.Pages[1].Height != 48 {
		t.Fatalf("expected passthrough page 64x48, got %dx%d", result.Pages[1].Width, result.Pages[1].Height)
	}
	if result.SourceBytes <= len(jpegBytes) {
		t.Fatalf("expected source bytes to cover both inputs, got %d", result.SourceBytes)
	}
}

func TestLocalProcessor_MaxResizesEveryPage(t *testing.T) {
	tmp := t.TempDir()
	big := writeTestPNG(t, tmp, "big.png", 800, 600)
	small := writeTestJPEG(t, tmp, "small.jpg", 400, 300)

	sink := &captureSink{}
	result, err := NewLocalProcessor(nil).Process(context.Background(), Request{
		Inputs: []string{big, small},
		Policy: domain.MaxPolicy(domain.DefaultFilter),
	}, sink)
	if err != nil {
		t.Fatalf("process request: %v", err)
	}

	if result.Target != (domain.Resolution{Width: 800, Height: 600}) {
		t.Fatalf("expected target 800x600, got %s", result.Target)
	}
	for i, page := range sink.pages {
		verifyJPEGSize(t, page, 800, 600)
		if result.Pages[i].Passthrough {
			t.Fatalf("expected page %d to be re-encoded when resizing", i)
		}
	}
}

func TestLocalProcessor_MinUsesComponentWiseTarget(t *testing.T) {
	tmp := t.TempDir()
	inputs := []string{
		writeTestPNG(t, tmp, "a.png", 1000, 500),
		writeTestPNG(t, tmp, "b.png", 200, 800),
		writeTestPNG(t, tmp, "c.png", 600, 600),
	}

	sink := &captureSink{}
	result, err := NewLocalProcessor(nil).Process(context.Background(), Request{
		Inputs: inputs,
		Policy: domain.MinPolicy(domain.FilterNearest),
	}, sink)
	if err != nil {
		t.Fatalf("process request: %v", err)
	}

	if result.Target != (domain.Resolution{Width: 200, Height: 500}) {
		t.Fatalf("expected target 200x500, got %s", result.Target)
	}
	verifyJPEGSize(t, sink.pages[0], 200, 100)
	verifyJPEGSize(t, sink.pages[1], 125, 500)
	verifyJPEGSize(t, sink.pages[2], 200, 200)
}

func TestLocalProcessor_CustomResize(t *testing.T) {
	tmp := t.TempDir()
	input := writeTestPNG(t, tmp, "wide.png", 1600, 400)

	policy, err := domain.CustomPolicy(domain.Resolution{Width: 800, Height: 600}, domain.FilterCatmullRom)
	if err != nil {
		t.Fatalf("custom policy: %v", err)
	}

	sink := &captureSink{}
	if _, err := NewLocalProcessor(nil).Process(context.Background(), Request{
		Inputs: []string{input},
		Policy: policy,
	}, sink); err != nil {
		t.Fatalf("process request: %v", err)
	}
	verifyJPEGSize(t, sink.pages[0], 800, 200)
}

func TestLocalProcessor_DecodeError(t *testing.T) {
	tmp := t.TempDir()
	bad := filepath.Join(tmp, "broken.png")
	if err := os.WriteFile(bad, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	_, err := NewLocalProcessor(nil).Process(context.Background(), Request{Inputs: []string{bad}}, &captureSink{})
	if !errors.Is(err, domain.ErrDecode) {
		t.Fatalf("expected decode error, got %v", err)
	}

	_, err = NewLocalProcessor(nil).Process(context.Background(), Request{
		Inputs: []string{bad},
		Policy: domain.MinPolicy(domain.DefaultFilter),
	}, &captureSink{})
	if !errors.Is(err, domain.ErrDecode) {
		t.Fatalf("expected decode error while probing, got %v", err)
	}
}

func TestLocalProcessor_EmptyInputs(t *testing.T) {
	_, err := NewLocalProcessor(nil).Process(context.Background(), Request{
		Policy: domain.MaxPolicy(domain.DefaultFilter),
	}, &captureSink{})
	if !errors.Is(err, domain.ErrEmptyBatch) {
		t.Fatalf("expected empty batch error, got %v", err)
	}
}

func TestLocalProcessor_MissingFile(t *testing.T) {
	_, err := NewLocalProcessor(nil).Process(context.Background(), Request{
		Inputs: []string{filepath.Join(t.TempDir(), "missing.png")},
	}, &captureSink{})
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestLocalProcessor_SinkError(t *testing.T) {
	input := writeTestPNG(t, t.TempDir(), "page.png", 10, 10)
	sinkErr := errors.New("sink closed")

	_, err := NewLocalProcessor(nil).Process(context.Background(), Request{Inputs: []string{input}}, &captureSink{err: sinkErr})
	if !errors.Is(err, sinkErr) {
		t.Fatalf("expected sink error, got %v", err)
	}
}

func TestLocalProcessor_CanceledContext(t *testing.T) {
	input := writeTestPNG(t, t.TempDir(), "page.png", 10, 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLocalProcessor(nil).Process(ctx, Request{Inputs: []string{input}}, &captureSink{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

func TestLocalFileFetcher_RejectsObjectURL(t *testing.T) {
	_, err := LocalFileFetcher{}.Fetch(context.Background(), "s3://bucket/key.png")
	if !errors.Is(err, ErrUnsupportedSource) {
		t.Fatalf("expected unsupported source error, got %v", err)
	}
}

func writeTestPNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()

	var buf bytes.Buffer
	if err := png.Encode(&buf, gradientImage(w, h)); err != nil {
		t.Fatalf("encode source png: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write input image: %v", err)
	}
	return path
}

func writeTestJPEG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, gradientImage(w, h), &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode source jpeg: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write input image: %v", err)
	}
	return path
}

func verifyJPEGSize(t *testing.T, data []byte, wantW, wantH int) {
	t.Helper()

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode jpeg page: %v", err)
	}
	if cfg.Width != wantW || cfg.Height != wantH {
		t.Fatalf("expected %dx%d page, got %dx%d", wantW, wantH, cfg.Width, cfg.Height)
	}
}
