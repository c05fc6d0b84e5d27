package trackers

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Plot saves a line plot of per-episode data, such as the data saved
// by a Return Tracker, to filename. The image format is determined by
// the file extension. If window > 1, a moving average over window
// episodes is plotted along with the raw data.
func Plot(filename, title, yLabel string, data []float64, window int) error {
	if len(data) == 0 {
		return fmt.Errorf("plot: no data to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Episode"
	p.Y.Label.Text = yLabel

	series := [][]float64{data}
	names := []string{"episode"}
	if window > 1 {
		series = append(series, MovingAverage(data, window))
		names = append(names, fmt.Sprintf("%d episode average", window))
	}

	for i, values := range series {
		points := make(plotter.XYs, len(values))
		for j, v := range values {
			points[j] = plotter.XY{X: float64(j + 1), Y: v}
		}

		line, err := plotter.NewLine(points)
		if err != nil {
			return fmt.Errorf("plot: %v", err)
		}
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(names[i], line)
	}

	if err := p.Save(8*vg.Inch, 4*vg.Inch, filename); err != nil {
		return fmt.Errorf("plot: %v", err)
	}
	return nil
}

// MovingAverage returns the trailing moving average of data over
// window elements. The first elements average over all data seen so
// far.
func MovingAverage(data []float64, window int) []float64 {
	out := make([]float64, len(data))
	for i := range data {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		out[i] = floats.Sum(data[start:i+1]) / float64(i+1-start)
	}
	return out
}
