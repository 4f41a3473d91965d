package renderer

import (
	"image"
	"image/color"
	"math"
)

// MarginTrimmer finds the content area of a page image: edges found with a
// Sobel operator, dilated so glyphs merge into blocks, and small blocks
// (scan noise, page numbers) dropped.
type MarginTrimmer struct {
	EdgeThreshold float64 // gradient magnitude
	MinBlockArea  int     // pixels²
	Padding       float64 // fraction of the longer side kept around content
}

func NewMarginTrimmer() *MarginTrimmer {
	return &MarginTrimmer{
		EdgeThreshold: 30,
		MinBlockArea:  500,
		Padding:       0.02,
	}
}

// ContentBounds returns the padded union of content blocks. Pages without
// detectable content come back whole.
func (m *MarginTrimmer) ContentBounds(img image.Image) image.Rectangle {
	bounds := img.Bounds()
	edges := dilate(sobel(toGray(img), m.EdgeThreshold), 5, 2)

	var content image.Rectangle
	for _, r := range components(edges) {
		if r.Dx()*r.Dy() >= m.MinBlockArea {
			content = content.Union(r)
		}
	}
	if content.Empty() {
		return bounds
	}

	pad := int(math.Round(m.Padding * float64(max(bounds.Dx(), bounds.Dy()))))
	return content.Inset(-pad).Intersect(bounds)
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return gray
}

var (
	sobelX = [3][3]float64{{-1, 0, 1}, {-2, 0, 2}, {-1, 0, 1}}
	sobelY = [3][3]float64{{-1, -2, -1}, {0, 0, 0}, {1, 2, 1}}
)

func sobel(gray *image.Gray, threshold float64) *image.Gray {
	b := gray.Bounds()
	edges := image.NewGray(b)

	for y := b.Min.Y + 1; y < b.Max.Y-1; y++ {
		for x := b.Min.X + 1; x < b.Max.X-1; x++ {
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					v := float64(gray.GrayAt(x+kx, y+ky).Y)
					gx += v * sobelX[ky+1][kx+1]
					gy += v * sobelY[ky+1][kx+1]
				}
			}
			if math.Hypot(gx, gy) > threshold {
				edges.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return edges
}

func dilate(img *image.Gray, kernel, iterations int) *image.Gray {
	b := img.Bounds()
	half := kernel / 2
	cur := img

	for range iterations {
		next := image.NewGray(b)
		for y := b.Min.Y + half; y < b.Max.Y-half; y++ {
			for x := b.Min.X + half; x < b.Max.X-half; x++ {
				var peak uint8
				for ky := -half; ky <= half && peak < 255; ky++ {
					for kx := -half; kx <= half; kx++ {
						peak = max(peak, cur.GrayAt(x+kx, y+ky).Y)
					}
				}
				next.SetGray(x, y, color.Gray{Y: peak})
			}
		}
		cur = next
	}
	return cur
}

// components returns the bounding boxes of 4-connected lit regions.
func components(img *image.Gray) []image.Rectangle {
	b := img.Bounds()
	visited := make([]bool, b.Dx()*b.Dy())
	at := func(p image.Point) int { return (p.Y-b.Min.Y)*b.Dx() + (p.X - b.Min.X) }
	lit := func(p image.Point) bool { return img.GrayAt(p.X, p.Y).Y > 128 }

	var rects []image.Rectangle
	var stack []image.Point
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			start := image.Pt(x, y)
			if visited[at(start)] || !lit(start) {
				continue
			}

			r := image.Rectangle{Min: start, Max: start.Add(image.Pt(1, 1))}
			stack = append(stack[:0], start)
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if !p.In(b) || visited[at(p)] || !lit(p) {
					continue
				}
				visited[at(p)] = true
				r = r.Union(image.Rectangle{Min: p, Max: p.Add(image.Pt(1, 1))})
				stack = append(stack, p.Add(image.Pt(1, 0)), p.Add(image.Pt(-1, 0)), p.Add(image.Pt(0, 1)), p.Add(image.Pt(0, -1)))
			}
			rects = append(rects, r)
		}
	}
	return rects
}
