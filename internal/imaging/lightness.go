package imaging

import (
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// DefaultLightnessSections divides an image into a 16x16 grid.
const DefaultLightnessSections = 16

// LightnessGrid splits buf into sections x sections cells and returns the
// mean CIE L* lightness (0 = black, 1 = white) of each, indexed [row][col].
// Fully transparent pixels are ignored; a cell with no visible pixels is 0.
func LightnessGrid(buf *ImageBuffer, sections int) ([][]float64, error) {
	if buf == nil {
		return nil, argumentError("lightness", "image buffer is nil")
	}
	size := buf.Size()
	if sections < 1 || sections > size.Width || sections > size.Height {
		return nil, argumentError("lightness", "sections %d out of range for %s image", sections, size)
	}

	img := buf.Image()
	origin := img.Bounds().Min
	grid := make([][]float64, sections)

	for row := 0; row < sections; row++ {
		grid[row] = make([]float64, sections)
		y0 := size.Height * row / sections
		y1 := size.Height * (row + 1) / sections

		for col := 0; col < sections; col++ {
			x0 := size.Width * col / sections
			x1 := size.Width * (col + 1) / sections

			var sum float64
			var n int
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					c, ok := colorful.MakeColor(img.At(origin.X+x, origin.Y+y))
					if !ok {
						continue
					}
					l, _, _ := c.Lab()
					sum += l
					n++
				}
			}
			if n > 0 {
				grid[row][col] = math.Round(sum/float64(n)*1000) / 1000
			}
		}
	}

	return grid, nil
}
