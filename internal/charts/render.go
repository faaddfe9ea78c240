// Package charts renders the activity charts as PNG files.
package charts

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// DPI is the resolution of every chart image
const DPI = 150

var (
	blue   = color.RGBA{R: 0x4C, G: 0x6F, B: 0xFF, A: 0xFF}
	orange = color.RGBA{R: 0xFF, G: 0x7A, B: 0x59, A: 0xFF}
	green  = color.RGBA{R: 0x00, G: 0xA6, B: 0x76, A: 0xFF}
	yellow = color.RGBA{R: 0xF2, G: 0xC9, B: 0x4C, A: 0xFF}
	purple = color.RGBA{R: 0x7B, G: 0x61, B: 0xFF, A: 0xFF}
)

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	return p
}

// barPlot draws one bar per label with rotated category labels
func barPlot(title, yLabel string, labels []string, values []float64, fill color.Color) (*plot.Plot, error) {
	p := newPlot(title, "", yLabel)

	bars, err := plotter.NewBarChart(plotter.Values(values), vg.Points(20))
	if err != nil {
		return nil, fmt.Errorf("building bar chart: %w", err)
	}
	bars.Color = fill
	bars.LineStyle.Width = 0
	p.Add(bars)

	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter
	p.Y.Min = 0
	return p, nil
}

// timeLinePlot draws values against dates with date tick labels
func timeLinePlot(title, xLabel, yLabel string, xys plotter.XYs, stroke color.Color) (*plot.Plot, error) {
	p := newPlot(title, xLabel, yLabel)

	line, err := plotter.NewLine(xys)
	if err != nil {
		return nil, fmt.Errorf("building line: %w", err)
	}
	line.LineStyle.Color = stroke
	line.LineStyle.Width = vg.Points(1.5)
	p.Add(line)

	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	p.Add(plotter.NewGrid())
	return p, nil
}

// save renders p at DPI to dir/name, replacing any existing file
func save(p *plot.Plot, dir, name string, width, height vg.Length) (path string, err error) {
	path = filepath.Join(dir, name)

	c := vgimg.NewWith(vgimg.UseWH(width, height), vgimg.UseDPI(DPI))
	p.Draw(draw.New(c))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()

	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(f); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
