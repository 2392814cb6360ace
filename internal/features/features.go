// Package features builds fixed-length visual fingerprints from video
// frames: HSV color histograms, texture statistics, edge densities and
// brightness statistics, concatenated into one 135-dimension vector.
package features

import (
	"image"
	"math"

	"github.com/nfnt/resize"

	"github.com/sceneforge/sceneworker/internal/models"
)

// textureSize is the reduced resolution used for texture statistics. Texture
// descriptors are scale-sensitive, so they are always computed on the same
// grid regardless of source resolution.
const textureSize = 64

// edgeThreshold is the Sobel gradient magnitude (on 0-255 intensities) above
// which a pixel counts as an edge.
const edgeThreshold = 100.0

// Extract computes the visual fingerprint of a single frame.
func Extract(img image.Image) models.FeatureVector {
	v := make(models.FeatureVector, 0, models.FeatureDims)
	v = append(v, colorHistogram(img)...)
	v = append(v, textureFeatures(img)...)
	v = append(v, edgeFeatures(img)...)
	v = append(v, brightnessFeatures(img)...)
	return v
}

// gray is an 8-bit luminance raster stored as float64 for the math below.
type gray struct {
	w, h int
	pix  []float64
}

func (g *gray) at(x, y int) float64 {
	return g.pix[y*g.w+x]
}

func toGray(img image.Image) *gray {
	bounds := img.Bounds()
	g := &gray{
		w:   bounds.Dx(),
		h:   bounds.Dy(),
		pix: make([]float64, bounds.Dx()*bounds.Dy()),
	}
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, gr, b, _ := img.At(x, y).RGBA()
			g.pix[i] = (0.299*float64(r) + 0.587*float64(gr) + 0.114*float64(b)) / 257.0
			i++
		}
	}
	return g
}

// colorHistogram builds 32-bin histograms over hue, saturation and value,
// each normalized to unit mass (96 dims).
func colorHistogram(img image.Image) []float64 {
	hHist := make([]float64, models.ColorBins)
	sHist := make([]float64, models.ColorBins)
	vHist := make([]float64, models.ColorBins)

	bounds := img.Bounds()
	total := float64(bounds.Dx() * bounds.Dy())
	if total == 0 {
		return append(append(hHist, sHist...), vHist...)
	}

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			h, s, v := rgbToHSV(float64(r)/65535.0, float64(g)/65535.0, float64(b)/65535.0)
			hHist[histBin(h/360.0)]++
			sHist[histBin(s)]++
			vHist[histBin(v)]++
		}
	}

	for i := 0; i < models.ColorBins; i++ {
		hHist[i] /= total
		sHist[i] /= total
		vHist[i] /= total
	}
	return append(append(hHist, sHist...), vHist...)
}

// histBin maps a normalized [0,1] value onto one of 32 bins.
func histBin(v float64) int {
	b := int(v * models.ColorBins)
	if b >= models.ColorBins {
		b = models.ColorBins - 1
	}
	if b < 0 {
		b = 0
	}
	return b
}

// rgbToHSV converts normalized RGB to hue in [0,360) and saturation/value
// in [0,1].
func rgbToHSV(r, g, b float64) (h, s, v float64) {
	max := math.Max(r, math.Max(g, b))
	min := math.Min(r, math.Min(g, b))
	v = max
	delta := max - min

	if max > 0 {
		s = delta / max
	}
	if delta == 0 {
		return 0, s, v
	}

	switch max {
	case r:
		h = 60 * math.Mod((g-b)/delta, 6)
	case g:
		h = 60 * ((b-r)/delta + 2)
	default:
		h = 60 * ((r-g)/delta + 4)
	}
	if h < 0 {
		h += 360
	}
	return h, s, v
}

// textureFeatures computes intensity standard deviation, mean gradient
// magnitude and a 16-bin LBP histogram over a 64x64 downscale (18 dims).
func textureFeatures(img image.Image) []float64 {
	small := toGray(resize.Resize(textureSize, textureSize, img, resize.Bilinear))

	std := stddev(small.pix)
	avgGrad := meanGradient(small)
	lbp := lbpHistogram(small)

	out := make([]float64, 0, models.TextureDims)
	out = append(out, std, avgGrad)
	out = append(out, lbp...)
	return out
}

// meanGradient averages the Sobel gradient magnitude over interior pixels.
func meanGradient(g *gray) float64 {
	if g.w < 3 || g.h < 3 {
		return 0
	}
	var sum float64
	for y := 1; y < g.h-1; y++ {
		for x := 1; x < g.w-1; x++ {
			gx, gy := sobelAt(g, x, y)
			sum += math.Sqrt(gx*gx + gy*gy)
		}
	}
	return sum / float64((g.w-2)*(g.h-2))
}

func sobelAt(g *gray, x, y int) (gx, gy float64) {
	tl, tc, tr := g.at(x-1, y-1), g.at(x, y-1), g.at(x+1, y-1)
	ml, mr := g.at(x-1, y), g.at(x+1, y)
	bl, bc, br := g.at(x-1, y+1), g.at(x, y+1), g.at(x+1, y+1)

	gx = (tr + 2*mr + br) - (tl + 2*ml + bl)
	gy = (bl + 2*bc + br) - (tl + 2*tc + tr)
	return gx, gy
}

// lbpHistogram computes a simplified local binary pattern histogram: each
// interior pixel's 8-neighbor comparison code, folded into 16 bins.
func lbpHistogram(g *gray) []float64 {
	hist := make([]float64, models.LBPBins)
	if g.w < 3 || g.h < 3 {
		return hist
	}

	var count float64
	for y := 1; y < g.h-1; y++ {
		for x := 1; x < g.w-1; x++ {
			center := g.at(x, y)
			code := 0
			neighbors := [8]float64{
				g.at(x-1, y-1), g.at(x, y-1), g.at(x+1, y-1),
				g.at(x+1, y), g.at(x+1, y+1), g.at(x, y+1),
				g.at(x-1, y+1), g.at(x-1, y),
			}
			for k, n := range neighbors {
				if n >= center {
					code |= 1 << k
				}
			}
			hist[code%models.LBPBins]++
			count++
		}
	}

	if count > 0 {
		for i := range hist {
			hist[i] /= count
		}
	}
	return hist
}

// edgeFeatures computes the global edge-pixel ratio plus per-cell edge
// density over a 4x4 grid (17 dims).
func edgeFeatures(img image.Image) []float64 {
	g := toGray(img)
	edges := edgeMap(g)

	out := make([]float64, 0, models.EdgeDims)

	var edgeCount float64
	for _, e := range edges {
		if e {
			edgeCount++
		}
	}
	out = append(out, edgeCount/float64(len(edges)))

	gridH := g.h / models.EdgeGridSize
	gridW := g.w / models.EdgeGridSize
	for i := 0; i < models.EdgeGridSize; i++ {
		for j := 0; j < models.EdgeGridSize; j++ {
			y1, y2 := i*gridH, (i+1)*gridH
			x1, x2 := j*gridW, (j+1)*gridW
			if y2 > g.h {
				y2 = g.h
			}
			if x2 > g.w {
				x2 = g.w
			}

			var cellEdges, cellTotal float64
			for y := y1; y < y2; y++ {
				for x := x1; x < x2; x++ {
					if edges[y*g.w+x] {
						cellEdges++
					}
					cellTotal++
				}
			}
			if cellTotal > 0 {
				out = append(out, cellEdges/cellTotal)
			} else {
				out = append(out, 0)
			}
		}
	}
	return out
}

// edgeMap thresholds the Sobel gradient magnitude into a binary edge mask.
// Border pixels are never edges.
func edgeMap(g *gray) []bool {
	edges := make([]bool, g.w*g.h)
	if g.w < 3 || g.h < 3 {
		return edges
	}
	for y := 1; y < g.h-1; y++ {
		for x := 1; x < g.w-1; x++ {
			gx, gy := sobelAt(g, x, y)
			if math.Sqrt(gx*gx+gy*gy) > edgeThreshold {
				edges[y*g.w+x] = true
			}
		}
	}
	return edges
}

// brightnessFeatures computes mean, standard deviation, contrast and
// dynamic range of grayscale intensity (4 dims).
func brightnessFeatures(img image.Image) []float64 {
	g := toGray(img)
	if len(g.pix) == 0 {
		return make([]float64, models.BrightnessDims)
	}

	mean := meanOf(g.pix)
	std := stddev(g.pix)

	min, max := g.pix[0], g.pix[0]
	for _, v := range g.pix {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return []float64{mean, std, std, max - min}
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := meanOf(values)
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}
