package scan

import (
	"fmt"
	"image"
	"log"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// OrientationAttempt is one (variant, rotation) unit of recognition work.
type OrientationAttempt struct {
	Profile  string
	Rotation int // degrees, one of 0/90/180/270
	Path     string
}

// ProbeOrientations returns the four rotation attempts for one variant.
// The 0° attempt references the variant file directly instead of copying it.
func ProbeOrientations(v Variant, workDir string) ([]OrientationAttempt, error) {
	attempts := []OrientationAttempt{{Profile: v.Profile, Rotation: 0, Path: v.Path}}

	img, err := imaging.Open(v.Path)
	if err != nil {
		return nil, fmt.Errorf("open variant %s: %w", v.Profile, err)
	}
	for _, deg := range []int{90, 180, 270} {
		var out image.Image
		switch deg {
		case 90:
			out = imaging.Rotate90(img)
		case 180:
			out = imaging.Rotate180(img)
		case 270:
			out = imaging.Rotate270(img)
		}
		dst := filepath.Join(workDir, fmt.Sprintf("rot-%s-%d.png", v.Profile, deg))
		if err := imaging.Save(out, dst); err != nil {
			log.Printf("scan: rotation %d of %s skipped: %v", deg, v.Profile, err)
			continue
		}
		attempts = append(attempts, OrientationAttempt{Profile: v.Profile, Rotation: deg, Path: dst})
	}
	return attempts, nil
}
