package scan

import (
	"fmt"
	"image"
	"log"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// canonicalWidth is the width all enhanced variants are upscaled to when the
// source is smaller. Tesseract degrades sharply below ~1000px line width on
// handwriting photos.
const canonicalWidth = 1200

// Variant is one preprocessed rendering of the source image, saved to its own
// file under the pipeline run's work directory. The passthrough variant points
// at the original source file.
type Variant struct {
	Profile string
	Path    string
}

// variant profile names.
const (
	ProfileOriginal     = "original"
	ProfileHighContrast = "high-contrast"
	ProfileThresholded  = "thresholded"
	ProfileBrightened   = "brightened"
	ProfileDenoised     = "denoised"
	ProfileMorph        = "morphological"
)

type recipe struct {
	profile string
	apply   func(img image.Image) image.Image
}

// recipes are fixed preprocessing chains, each tuned for one degradation
// profile seen in handwriting photos.
var recipes = []recipe{
	{ProfileHighContrast, func(img image.Image) image.Image {
		g := imaging.Grayscale(img)
		g = imaging.AdjustContrast(g, 40)
		g = imaging.Sharpen(g, 0.7)
		return upscale(g)
	}},
	{ProfileThresholded, func(img image.Image) image.Image {
		g := imaging.Grayscale(img)
		g = imaging.AdjustContrast(g, 15)
		g = imaging.Sharpen(g, 0.7)
		g = upscale(g)
		return binarize(g, 210)
	}},
	{ProfileBrightened, func(img image.Image) image.Image {
		g := imaging.Grayscale(img)
		g = imaging.AdjustGamma(g, 1.4)
		g = imaging.AdjustBrightness(g, 20)
		g = imaging.AdjustContrast(g, 20)
		return upscale(g)
	}},
	{ProfileDenoised, func(img image.Image) image.Image {
		g := imaging.Grayscale(img)
		g = imaging.Blur(g, 0.8)
		g = imaging.Sharpen(g, 0.5)
		return upscale(g)
	}},
	{ProfileMorph, func(img image.Image) image.Image {
		g := imaging.Grayscale(img)
		g = imaging.AdjustContrast(g, 15)
		g = upscale(g)
		adv := adaptiveThreshold(g, 15, 7)
		return dilate(adv, 1)
	}},
}

func upscale(img *image.NRGBA) *image.NRGBA {
	if img.Bounds().Dx() >= canonicalWidth {
		return img
	}
	return imaging.Resize(img, canonicalWidth, 0, imaging.Lanczos)
}

// GenerateVariants produces the ordered variant list for one source image.
// The passthrough variant is always first and always present. Individual
// recipe failures are logged and skipped; the only hard failure is a source
// image that does not decode.
func GenerateVariants(srcPath, workDir string) ([]Variant, error) {
	img, err := imaging.Open(srcPath, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodableImage, err)
	}

	variants := []Variant{{Profile: ProfileOriginal, Path: srcPath}}
	for _, r := range recipes {
		out := r.apply(img)
		dst := filepath.Join(workDir, "variant-"+r.profile+".png")
		if err := imaging.Save(out, dst); err != nil {
			log.Printf("scan: variant %s skipped: %v", r.profile, err)
			continue
		}
		variants = append(variants, Variant{Profile: r.profile, Path: dst})
	}
	return variants, nil
}
