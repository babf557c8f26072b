package cmd

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andresmejia3/faceguard/internal/biometric"
	"github.com/andresmejia3/faceguard/internal/config"
	"github.com/andresmejia3/faceguard/internal/types"
)

func writePNG(t *testing.T, path string) {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCollectImages(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.PNG", "a.jpg", "notes.txt"} {
		os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644)
	}
	os.Mkdir(filepath.Join(dir, "nested.png"), 0o755)
	single := filepath.Join(t.TempDir(), "single.webp")
	os.WriteFile(single, []byte("x"), 0o644)

	got, err := collectImages([]string{single, dir})
	if err != nil {
		t.Fatalf("collectImages() error = %v", err)
	}
	want := []string{single, filepath.Join(dir, "a.jpg"), filepath.Join(dir, "b.PNG")}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("collectImages() = %v, want %v", got, want)
	}

	if _, err := collectImages([]string{filepath.Join(dir, "missing")}); err == nil {
		t.Error("expected error for missing path")
	}
}

func TestLoadImages(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.png")
	writePNG(t, good)
	bad := filepath.Join(dir, "bad.png")
	os.WriteFile(bad, []byte("not an image"), 0o644)

	images, err := loadImages([]string{good})
	if err != nil || len(images) != 1 {
		t.Fatalf("loadImages(good) = %d images, err %v", len(images), err)
	}

	_, err = loadImages([]string{good, bad})
	if !errors.Is(err, biometric.ErrInvalidImage) {
		t.Errorf("expected ErrInvalidImage, got %v", err)
	}
	if err != nil && !strings.Contains(err.Error(), "bad.png") {
		t.Errorf("error should name the file: %v", err)
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"  yes  \n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		got := confirm(bufio.NewReader(strings.NewReader(tt.input)), &out, "Drop?")
		if got != tt.want {
			t.Errorf("confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
		if !strings.Contains(out.String(), "Drop? [y/N]") {
			t.Errorf("prompt not written: %q", out.String())
		}
	}
}

func TestPrintTemplates(t *testing.T) {
	var out bytes.Buffer
	printTemplates(&out, nil)
	if !strings.Contains(out.String(), "No users enrolled.") {
		t.Errorf("unexpected empty output %q", out.String())
	}

	out.Reset()
	printTemplates(&out, []types.TemplateInfo{{
		OwnerID: "alice", TemplateID: "tpl_X_alice", Dimension: 128, SampleCount: 3,
		CreatedAt: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}})
	for _, want := range []string{"USER", "alice", "tpl_X_alice", "128"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestPrintAttempts(t *testing.T) {
	var out bytes.Buffer
	printAttempts(&out, []types.AuthAttempt{
		{Kind: types.EventAuthenticate, Outcome: types.OutcomeSuccess, ConfidencePercent: 87},
		{Kind: types.EventEnroll, Outcome: types.OutcomeRejected, Reason: "FaceTooSmall"},
	})
	s := out.String()
	if !strings.Contains(s, "87%") || !strings.Contains(s, "FaceTooSmall") {
		t.Errorf("unexpected output:\n%s", s)
	}
}

// fakeMeasurer answers from a table keyed by image content.
type fakeMeasurer struct {
	results map[string]types.MatchResult
	errs    map[string]error
}

func (f *fakeMeasurer) Measure(_ context.Context, _ string, image []byte) (types.MatchResult, error) {
	if err, ok := f.errs[string(image)]; ok {
		return types.MatchResult{}, err
	}
	return f.results[string(image)], nil
}

func TestMeasureAll(t *testing.T) {
	m := &fakeMeasurer{
		results: map[string]types.MatchResult{
			"a": {Distance: 0.3},
			"b": {Distance: 0.4},
		},
		errs: map[string]error{
			"blurry": &biometric.CaptureError{Err: biometric.ErrLowConfidence},
		},
	}

	var ticks atomic.Int32
	got, skipped, err := measureAll(context.Background(), m, "alice",
		[][]byte{[]byte("a"), []byte("blurry"), []byte("b")}, 2, func() { ticks.Add(1) })
	if err != nil {
		t.Fatalf("measureAll() error = %v", err)
	}
	sort.Float64s(got)
	if !reflect.DeepEqual(got, []float64{0.3, 0.4}) {
		t.Errorf("distances = %v", got)
	}
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1", skipped)
	}
	if ticks.Load() != 3 {
		t.Errorf("progress ticks = %d, want 3", ticks.Load())
	}
}

func TestMeasureAll_AbortsOnHardError(t *testing.T) {
	m := &fakeMeasurer{errs: map[string]error{"x": biometric.ErrNotEnrolled}}
	_, _, err := measureAll(context.Background(), m, "nobody", [][]byte{[]byte("x")}, 1, func() {})
	if !errors.Is(err, biometric.ErrNotEnrolled) {
		t.Errorf("expected ErrNotEnrolled, got %v", err)
	}
}

func TestPrintCalibration(t *testing.T) {
	genuine := []float64{0.3, 0.35}
	impostor := []float64{0.55, 0.9}
	c, err := biometric.SuggestThreshold(genuine, impostor)
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	printCalibration(&out, 0.6, genuine, impostor, c)
	s := out.String()
	if !strings.Contains(s, "FAR 50.0%") {
		t.Errorf("current threshold 0.6 should accept one of two impostors:\n%s", s)
	}
	if !strings.Contains(s, "Suggested: threshold 0.4500") {
		t.Errorf("unexpected suggestion:\n%s", s)
	}
	if strings.Contains(s, "overlap") {
		t.Errorf("separable samples reported as overlapping:\n%s", s)
	}
}

func TestNewExtractor_HTTPModeSizesConcurrency(t *testing.T) {
	prev, prevSlots := Cfg, engineSlots
	defer func() { Cfg, engineSlots = prev, prevSlots }()

	Cfg = &config.Config{Extractor: config.ExtractorConfig{
		Mode:    "http",
		URL:     "http://127.0.0.1:1",
		Workers: 4,
		Timeout: time.Second,
	}}
	ext, err := newExtractor()
	if err != nil {
		t.Fatal(err)
	}
	if ext == nil {
		t.Fatal("newExtractor returned nil")
	}
	if engineSlots != 4 {
		t.Errorf("engineSlots = %d, want 4", engineSlots)
	}
}
