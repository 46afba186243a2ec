package cleanup

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/parallel"
)

// CLAHE applies contrast-limited adaptive histogram equalization.
//
// The image is split into a tiles x tiles grid. Each tile gets its own
// equalization curve from a histogram whose bins are capped at
// clipLimit*tileArea/256; the clipped excess is spread evenly over all bins so
// noise in flat regions is not amplified. Pixels blend the curves of the four
// nearest tile centres bilinearly.
func CLAHE(g *image.Gray, clipLimit float64, tiles int) *image.Gray {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return out
	}
	if tiles < 1 {
		tiles = 1
	}

	tileW := (w + tiles - 1) / tiles
	tileH := (h + tiles - 1) / tiles
	nx := (w + tileW - 1) / tileW
	ny := (h + tileH - 1) / tileH

	luts := make([][256]uint8, nx*ny)
	for ty := 0; ty < ny; ty++ {
		for tx := 0; tx < nx; tx++ {
			r := image.Rect(tx*tileW, ty*tileH, min((tx+1)*tileW, w), min((ty+1)*tileH, h))
			luts[ty*nx+tx] = tileLUT(g, r, clipLimit)
		}
	}

	invW, invH := 1/float64(tileW), 1/float64(tileH)
	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			fy := float64(y)*invH - 0.5
			ty1 := int(math.Floor(fy))
			ty2 := ty1 + 1
			ya := fy - float64(ty1)
			ty1 = max(ty1, 0)
			ty2 = min(ty2, ny-1)

			src := g.Pix[y*g.Stride:]
			dst := out.Pix[y*out.Stride:]
			for x := 0; x < w; x++ {
				fx := float64(x)*invW - 0.5
				tx1 := int(math.Floor(fx))
				tx2 := tx1 + 1
				xa := fx - float64(tx1)
				tx1 = max(tx1, 0)
				tx2 = min(tx2, nx-1)

				v := src[x]
				top := (1-xa)*float64(luts[ty1*nx+tx1][v]) + xa*float64(luts[ty1*nx+tx2][v])
				bottom := (1-xa)*float64(luts[ty2*nx+tx1][v]) + xa*float64(luts[ty2*nx+tx2][v])
				dst[x] = uint8(math.Round((1-ya)*top + ya*bottom))
			}
		}
	})
	return out
}

// tileLUT builds the clipped equalization curve of one tile.
func tileLUT(g *image.Gray, r image.Rectangle, clipLimit float64) [256]uint8 {
	var hist [256]int
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for _, v := range g.Pix[y*g.Stride+r.Min.X : y*g.Stride+r.Max.X] {
			hist[v]++
		}
	}
	area := r.Dx() * r.Dy()

	limit := int(clipLimit * float64(area) / 256)
	if limit < 1 {
		limit = 1
	}
	excess := 0
	for i, n := range hist {
		if n > limit {
			excess += n - limit
			hist[i] = limit
		}
	}
	each := excess / 256
	residual := excess - each*256
	for i := range hist {
		hist[i] += each
	}
	if residual > 0 {
		step := max(256/residual, 1)
		for i := 0; i < 256 && residual > 0; i += step {
			hist[i]++
			residual--
		}
	}

	var lut [256]uint8
	scale := 255 / float64(area)
	sum := 0
	for i, n := range hist {
		sum += n
		v := math.Round(float64(sum) * scale)
		if v > 255 {
			v = 255
		}
		lut[i] = uint8(v)
	}
	return lut
}
