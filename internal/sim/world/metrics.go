package world

// WorldMetrics is a thread-safe read-only view of key world runtime signals.
// It is updated from the world loop goroutine and read from HTTP handlers/tests.
type WorldMetrics struct {
	Tick       uint64 `json:"tick"`
	Iterations int    `json:"iterations"`
	State      string `json:"state"`

	Organisms int `json:"organisms"`
	Observers int `json:"observers"`

	StepMS float64 `json:"step_ms"`

	// Display gene summary over the whole grid.
	DistinctColors int     `json:"distinct_colors"`
	MeanRed        float64 `json:"mean_red"`
	MeanGreen      float64 `json:"mean_green"`
	MeanBlue       float64 `json:"mean_blue"`
}

func (w *World) Metrics() WorldMetrics {
	if w == nil {
		return WorldMetrics{}
	}
	v := w.metrics.Load()
	if v == nil {
		return WorldMetrics{}
	}
	m, ok := v.(WorldMetrics)
	if !ok {
		return WorldMetrics{}
	}
	return m
}

func (w *World) storeMetrics(tick uint64) { w.storeMetricsWithStep(tick, 0) }

func (w *World) storeMetricsWithStep(tick uint64, stepMS float64) {
	m := WorldMetrics{
		Tick:       tick,
		Iterations: w.cfg.Iterations,
		State:      w.State().String(),
		Organisms:  w.cfg.Width * w.cfg.Height,
		Observers:  len(w.observers),
		StepMS:     stepMS,
	}
	colors := map[uint32]struct{}{}
	var r, g, b float64
	for x := range w.grid {
		for y := range w.grid[x] {
			d := w.Display(x, y)
			colors[packRGB(d)] = struct{}{}
			r += float64(d.Red)
			g += float64(d.Green)
			b += float64(d.Blue)
		}
	}
	if n := float64(m.Organisms); n > 0 {
		m.MeanRed, m.MeanGreen, m.MeanBlue = r/n, g/n, b/n
	}
	m.DistinctColors = len(colors)
	w.metrics.Store(m)
}
