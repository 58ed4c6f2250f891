package monitor

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// handleChart renders a quick HTML line chart of the recent metric history
// using go-echarts. This is a debugging-only endpoint for tuning sessions:
// watch the evidence curves while poking thresholds through POST /params.
func (ws *WebServer) handleChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	history := ws.publisher.History()
	if len(history) == 0 {
		ws.writeJSONError(w, http.StatusNotFound, "no metric history yet")
		return
	}

	x := make([]string, 0, len(history))
	meanDist := make([]opts.LineData, 0, len(history))
	heightDiff := make([]opts.LineData, 0, len(history))
	voidArea := make([]opts.LineData, 0, len(history))
	for _, m := range history {
		x = append(x, m.Timestamp.Format("15:04:05.000"))
		meanDist = append(meanDist, opts.LineData{Value: m.MeanDistance})
		heightDiff = append(heightDiff, opts.LineData{Value: m.HeightDiff})
		voidArea = append(voidArea, opts.LineData{Value: m.VoidArea})
	}

	latest := history[len(history)-1]
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "stairguard tuning",
			Theme:     "dark",
			Width:     "1200px",
			Height:    "600px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Classification evidence",
			Subtitle: fmt.Sprintf("latest=%s stable=%s points=%d", latest.Label, latest.StableLabel, len(history)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	line.SetXAxis(x).
		AddSeries("mean distance (m)", meanDist).
		AddSeries("height diff (m)", heightDiff).
		AddSeries("void area (px)", voidArea)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}
