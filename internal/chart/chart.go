package chart

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"time"

	"dashboard/internal/domain"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const NoDataText = "No sales data"

var (
	backgroundColor = drawing.ColorFromHex("1a1a1a")
	textColor       = drawing.ColorFromHex("f9fafb")
	lineColor       = drawing.ColorFromHex("e5e7eb")
	gridColor       = drawing.ColorFromHex("374151")

	seriesColors = []drawing.Color{
		drawing.ColorFromHex("6366f1"),
		drawing.ColorFromHex("22c55e"),
		drawing.ColorFromHex("f59e0b"),
		drawing.ColorFromHex("ef4444"),
		drawing.ColorFromHex("06b6d4"),
		drawing.ColorFromHex("a855f7"),
		drawing.ColorFromHex("ec4899"),
		drawing.ColorFromHex("84cc16"),
		drawing.ColorFromHex("f97316"),
		drawing.ColorFromHex("14b8a6"),
		drawing.ColorFromHex("64748b"),
	}
)

type darkPalette struct{}

func (darkPalette) BackgroundColor() drawing.Color       { return backgroundColor }
func (darkPalette) BackgroundStrokeColor() drawing.Color { return backgroundColor }
func (darkPalette) CanvasColor() drawing.Color           { return backgroundColor }
func (darkPalette) CanvasStrokeColor() drawing.Color     { return backgroundColor }
func (darkPalette) AxisStrokeColor() drawing.Color       { return textColor }
func (darkPalette) TextColor() drawing.Color             { return textColor }
func (darkPalette) GetSeriesColor(index int) drawing.Color {
	return seriesColors[index%len(seriesColors)]
}

// Donut renders the share slices as a base64 PNG. An empty slice list
// renders the placeholder text instead.
func Donut(title string, slices []domain.ShareSlice) (string, error) {
	const width, height = 1000, 700
	if len(slices) == 0 {
		return placeholder(title, width, height)
	}

	values := make([]gochart.Value, 0, len(slices))
	for _, s := range slices {
		values = append(values, gochart.Value{
			Label: fmt.Sprintf("%s (%.1f%%)", s.Label, s.Percent),
			Value: s.Value.InexactFloat64(),
		})
	}

	donut := gochart.DonutChart{
		Title:        title,
		TitleStyle:   gochart.Style{FontColor: textColor, FontSize: 18},
		Width:        width,
		Height:       height,
		ColorPalette: darkPalette{},
		Background:   gochart.Style{FillColor: backgroundColor},
		Canvas:       gochart.Style{FillColor: backgroundColor},
		SliceStyle:   gochart.Style{StrokeColor: backgroundColor, FontColor: textColor, FontSize: 12},
		Values:       values,
	}

	var buf bytes.Buffer
	if err := donut.Render(gochart.PNG, &buf); err != nil {
		return "", fmt.Errorf("render donut chart: %w", err)
	}
	return encode(buf.Bytes()), nil
}

// Trend renders daily totals as a connected line. An empty range renders
// the placeholder text.
func Trend(points []domain.DailyPoint) (string, error) {
	const width, height = 1200, 600
	const title = "Daily Sales Trend"
	if len(points) == 0 {
		return placeholder(title, width, height)
	}

	xValues := make([]time.Time, 0, len(points))
	yValues := make([]float64, 0, len(points))
	minY, maxY := 0.0, 0.0
	for _, p := range points {
		value := p.Amount.InexactFloat64()
		xValues = append(xValues, p.Day)
		yValues = append(yValues, value)
		if value < minY {
			minY = value
		}
		if value > maxY {
			maxY = value
		}
	}
	if maxY == minY {
		maxY = minY + 1
	}
	// Pad both axes so a single point never produces a zero-width range.
	xRange := &gochart.ContinuousRange{
		Min: gochart.TimeToFloat64(xValues[0].Add(-12 * time.Hour)),
		Max: gochart.TimeToFloat64(xValues[len(xValues)-1].Add(12 * time.Hour)),
	}
	yRange := &gochart.ContinuousRange{Min: minY, Max: maxY * 1.1}

	axisStyle := gochart.Style{FontColor: textColor, StrokeColor: textColor}
	gridStyle := gochart.Style{StrokeColor: gridColor, StrokeWidth: 0.5, StrokeDashArray: []float64{4, 4}}

	graph := gochart.Chart{
		Title:      title,
		TitleStyle: gochart.Style{FontColor: textColor, FontSize: 18},
		Width:      width,
		Height:     height,
		Background: gochart.Style{
			FillColor: backgroundColor,
			Padding:   gochart.Box{Top: 60, Left: 20, Right: 40, Bottom: 20},
		},
		Canvas: gochart.Style{FillColor: backgroundColor},
		XAxis: gochart.XAxis{
			ValueFormatter: gochart.TimeDateValueFormatter,
			Style: gochart.Style{
				FontColor:           textColor,
				StrokeColor:         textColor,
				TextRotationDegrees: 45,
			},
			Range:          xRange,
			GridMajorStyle: gridStyle,
		},
		YAxis: gochart.YAxis{
			Name:           "Total Sales (₹)",
			NameStyle:      gochart.Style{FontColor: textColor, FontSize: 12},
			Style:          axisStyle,
			Range:          yRange,
			GridMajorStyle: gridStyle,
		},
		Series: []gochart.Series{
			gochart.TimeSeries{
				Name:    "Sales",
				XValues: xValues,
				YValues: yValues,
				Style: gochart.Style{
					StrokeColor: lineColor,
					StrokeWidth: 2,
					DotColor:    lineColor,
					DotWidth:    4,
				},
			},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(gochart.PNG, &buf); err != nil {
		return "", fmt.Errorf("render trend chart: %w", err)
	}
	return encode(buf.Bytes()), nil
}

func placeholder(title string, width, height int) (string, error) {
	r, err := gochart.PNG(width, height)
	if err != nil {
		return "", fmt.Errorf("create renderer: %w", err)
	}
	font, err := gochart.GetDefaultFont()
	if err != nil {
		return "", fmt.Errorf("load default font: %w", err)
	}

	r.SetFillColor(backgroundColor)
	r.MoveTo(0, 0)
	r.LineTo(width, 0)
	r.LineTo(width, height)
	r.LineTo(0, height)
	r.Close()
	r.Fill()

	r.SetFont(font)
	r.SetFontColor(textColor)

	r.SetFontSize(18)
	titleBox := r.MeasureText(title)
	r.Text(title, (width-titleBox.Width())/2, 40)

	r.SetFontSize(14)
	box := r.MeasureText(NoDataText)
	r.Text(NoDataText, (width-box.Width())/2, (height+box.Height())/2)

	var buf bytes.Buffer
	if err := r.Save(&buf); err != nil {
		return "", fmt.Errorf("encode placeholder: %w", err)
	}
	return encode(buf.Bytes()), nil
}

func encode(png []byte) string {
	return base64.StdEncoding.EncodeToString(png)
}
