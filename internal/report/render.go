package report

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/padplane/internal/fsutil"
	"github.com/banshee-data/padplane/internal/monitoring"
)

// viridis stops, used by both the PNG palette and the HTML colour scale.
var viridis = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// hexPalette is a palette.Palette over "#rrggbb" stops.
type hexPalette []string

func (p hexPalette) Colors() []color.Color {
	cs := make([]color.Color, 0, len(p))
	for _, hex := range p {
		v, err := strconv.ParseUint(strings.TrimPrefix(hex, "#"), 16, 32)
		if err != nil || len(hex) != 7 {
			continue
		}
		cs = append(cs, color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255})
	}
	return cs
}

var _ palette.Palette = hexPalette(nil)

// pngRenderable reports whether m has enough pads per axis for a heatmap PNG.
func pngRenderable(m PadMap) bool { return m.NPadX >= 2 && m.NPadY >= 2 }

// PNG size per pad, clamped to a readable range.
const (
	minPlotSize = 4 * vg.Inch
	maxPlotSize = 12 * vg.Inch
)

// WritePNG renders m as a heatmap PNG.
func WritePNG(w io.Writer, m PadMap) error {
	if !pngRenderable(m) {
		return fmt.Errorf("heatmap needs at least 2x2 pads, got %dx%d", m.NPadX, m.NPadY)
	}

	p := plot.New()
	p.Title.Text = m.Title
	p.X.Label.Text = "pad column"
	p.Y.Label.Text = "pad row"

	h := plotter.NewHeatMap(m, hexPalette(viridis))
	if h.Max == h.Min {
		h.Max = h.Min + 1
	}
	p.Add(h)

	width := vg.Length(m.NPadX) * vg.Centimeter / 2
	width = max(minPlotSize, min(maxPlotSize, width))
	height := width * vg.Length(m.NPadY) / vg.Length(m.NPadX)
	height = max(minPlotSize, min(maxPlotSize, height))

	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("failed to render heatmap: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write heatmap: %w", err)
	}
	return nil
}

// WriteHTML renders m as an interactive go-echarts heatmap page.
func WriteHTML(w io.Writer, m PadMap) error {
	if m.NPadX < 1 || m.NPadY < 1 || len(m.Values) != m.NPadX*m.NPadY {
		return fmt.Errorf("pad map has %d values for %dx%d pads", len(m.Values), m.NPadX, m.NPadY)
	}

	cols := make([]string, m.NPadX)
	for c := range cols {
		cols[c] = strconv.Itoa(c)
	}
	rows := make([]string, m.NPadY)
	for r := range rows {
		rows[r] = strconv.Itoa(r)
	}
	data := make([]opts.HeatMapData, 0, len(m.Values))
	for r := 0; r < m.NPadY; r++ {
		for c := 0; c < m.NPadX; c++ {
			data = append(data, opts.HeatMapData{Value: [3]interface{}{c, r, m.Z(c, r)}})
		}
	}
	maxValue := 1.0
	if len(m.Values) > 0 {
		if v := floats.Max(m.Values); v > 0 {
			maxValue = v
		}
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: m.Title, Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: m.Title, Subtitle: fmt.Sprintf("pads=%dx%d scale=%s", m.NPadX, m.NPadY, m.Label)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: cols, Name: "column", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: rows, Name: "row", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxValue),
			InRange:    &opts.VisualMapInRange{Color: viridis},
		}),
	)
	hm.SetXAxis(cols).AddSeries(m.Label, data)

	var buf bytes.Buffer
	if err := hm.Render(&buf); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// WriteFiles writes <name>.png and <name>.html for m into dir and returns
// the paths written. The PNG is skipped for maps narrower than two pads on
// either axis.
func WriteFiles(fs fsutil.FileSystem, dir, name string, m PadMap) ([]string, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create plot directory: %w", err)
	}

	var written []string
	for _, out := range []struct {
		ext    string
		render func(io.Writer, PadMap) error
	}{
		{".png", WritePNG},
		{".html", WriteHTML},
	} {
		if out.ext == ".png" && !pngRenderable(m) {
			monitoring.Logf("[report] skipping %s.png: %dx%d pads", name, m.NPadX, m.NPadY)
			continue
		}
		path := filepath.Join(dir, name+out.ext)
		var buf bytes.Buffer
		if err := out.render(&buf, m); err != nil {
			return written, fmt.Errorf("%s: %w", path, err)
		}
		if err := fs.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return written, fmt.Errorf("write %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}
