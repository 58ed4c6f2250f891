// Package render turns depth frames into inspection artifacts for headless
// validation runs: a heat map of the frame with the classification verdict in
// the title, saved as a PNG for offline review on machines without a display.
package render

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/carrybot-robotics/stairguard/internal/depth"
)

// frameGrid adapts a depth.Frame to plotter.GridXYZ. Row 0 of the frame is
// the top of the image, so Y is flipped for a natural camera view.
type frameGrid struct {
	f *depth.Frame
}

func (g frameGrid) Dims() (int, int)   { return g.f.Width, g.f.Height }
func (g frameGrid) X(c int) float64    { return float64(c) }
func (g frameGrid) Y(r int) float64    { return float64(r) }
func (g frameGrid) Z(c, r int) float64 { return float64(g.f.At(g.f.Height-1-r, c)) }

// SaveHeatmap writes a heat-map PNG of the frame to path, titled with the
// classification evidence.
func SaveHeatmap(f *depth.Frame, res depth.Result, path string) error {
	if f.Empty() {
		return fmt.Errorf("render: empty frame")
	}

	pal := moreland.SmoothBlueRed().Palette(255)
	hm := plotter.NewHeatMap(frameGrid{f: f}, pal)

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s  mean=%.2fm diff=%.2fm void=%dpx",
		res.Label, res.MeanDistance, res.HeightDiff, res.VoidArea)
	p.X.Label.Text = "column"
	p.Y.Label.Text = "row"
	p.Add(hm)

	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("render: save heatmap: %w", err)
	}
	return nil
}
