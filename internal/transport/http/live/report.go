package livehttp

import (
	"bytes"
	"math"
	"net/http"
	"strconv"
	"time"

	"quorum/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const (
	colorProfit = "#26a69a"
	colorText   = "#c9d1d9"
)

// handlePnLReport renders the cumulative realized P&L as an HTML line chart.
func (r *Router) handlePnLReport(c *gin.Context) {
	if !r.requireStore(c) {
		return
	}
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))
	if days <= 0 {
		days = 30
	}
	since := time.Now().UTC().AddDate(0, 0, -days)
	points, err := store.PnLCurve(c.Request.Context(), r.deps.Store, since)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	page, err := renderPnLChart(points, days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

func renderPnLChart(points []store.PnLPoint, days int) ([]byte, error) {
	xAxis := make([]string, 0, len(points))
	cumulative := make([]opts.LineData, 0, len(points))
	for _, p := range points {
		xAxis = append(xAxis, p.At.Format("01-02 15:04"))
		cumulative = append(cumulative, opts.LineData{Value: round2(p.Cumulative), Name: p.Symbol})
	}
	subtitle := "no closed positions"
	if n := len(points); n > 0 {
		subtitle = "closed positions: " + strconv.Itoa(n) + " | total: " + strconv.FormatFloat(points[n-1].Cumulative, 'f', 2, 64)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Realized P&L", Width: "1100px", Height: "520px", Theme: "dark"}),
		charts.WithTitleOpts(opts.Title{
			Title:      "Cumulative realized P&L (" + strconv.Itoa(days) + "d)",
			Subtitle:   subtitle,
			TitleStyle: &opts.TextStyle{Color: colorText},
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true), AxisLabel: &opts.AxisLabel{Color: colorText}}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Color: colorText}}),
	)
	line.SetXAxis(xAxis).AddSeries("cumulative", cumulative,
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorProfit, Width: 2}),
		charts.WithAreaStyleOpts(opts.AreaStyle{Opacity: opts.Float(0.15)}),
	)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
