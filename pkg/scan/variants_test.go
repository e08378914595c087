package scan

import (
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
)

func writeTestImage(t *testing.T) string {
	t.Helper()
	img := imaging.New(600, 300, color.NRGBA{255, 255, 255, 255})
	path := filepath.Join(t.TempDir(), "page.png")
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("save test image: %v", err)
	}
	return path
}

func TestGenerateVariantsIncludesPassthrough(t *testing.T) {
	src := writeTestImage(t)
	work := t.TempDir()
	variants, err := GenerateVariants(src, work)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(variants) == 0 {
		t.Fatalf("no variants returned")
	}
	if variants[0].Profile != ProfileOriginal || variants[0].Path != src {
		t.Fatalf("first variant must be the passthrough, got %+v", variants[0])
	}
	for _, v := range variants[1:] {
		if _, err := os.Stat(v.Path); err != nil {
			t.Fatalf("variant %s missing on disk: %v", v.Profile, err)
		}
	}
}

func TestGenerateVariantsUndecodable(t *testing.T) {
	junk := filepath.Join(t.TempDir(), "junk.png")
	if err := os.WriteFile(junk, []byte("not an image"), 0644); err != nil {
		t.Fatalf("write junk: %v", err)
	}
	_, err := GenerateVariants(junk, t.TempDir())
	if !errors.Is(err, ErrUndecodableImage) {
		t.Fatalf("expected ErrUndecodableImage, got %v", err)
	}
}

func TestProbeOrientationsReturnsFour(t *testing.T) {
	src := writeTestImage(t)
	work := t.TempDir()
	attempts, err := ProbeOrientations(Variant{Profile: ProfileOriginal, Path: src}, work)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if len(attempts) != 4 {
		t.Fatalf("got %d attempts, want 4", len(attempts))
	}
	want := map[int]bool{0: true, 90: true, 180: true, 270: true}
	for _, a := range attempts {
		if !want[a.Rotation] {
			t.Fatalf("unexpected rotation %d", a.Rotation)
		}
		delete(want, a.Rotation)
	}
	// the 0° attempt references the variant file, no copy
	if attempts[0].Rotation != 0 || attempts[0].Path != src {
		t.Fatalf("0° attempt must reference the input variant, got %+v", attempts[0])
	}
}
