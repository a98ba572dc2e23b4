package tui

import (
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/NimbleMarkets/ntcharts/sparkline"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fieldworks/hourboard/internal/view"
)

const maxChartBars = 14

type chartsModel struct {
	session *session
	width   int
	height  int

	chart ChartSelector
	bars  barchart.Model
	spark sparkline.Model
	spec  view.RenderSpec
}

// ChartSelector tracks which chart type is active and cycles through
// the available ones.
type ChartSelector struct {
	current view.ChartType
}

func (c *ChartSelector) next() {
	for i, t := range view.ChartTypes {
		if t == c.current {
			c.current = view.ChartTypes[(i+1)%len(view.ChartTypes)]
			return
		}
	}
	c.current = view.ChartTypes[0]
}

func (c *ChartSelector) prev() {
	for i, t := range view.ChartTypes {
		if t == c.current {
			c.current = view.ChartTypes[(i+len(view.ChartTypes)-1)%len(view.ChartTypes)]
			return
		}
	}
	c.current = view.ChartTypes[0]
}

func newChartsModel(s *session) chartsModel {
	return chartsModel{
		session: s,
		chart:   ChartSelector{current: s.chart},
		bars:    barchart.New(60, 12),
		spark:   sparkline.New(60, 12),
	}
}

func (c *chartsModel) setSize(w, h int) {
	c.width = w
	c.height = h
}

func (c chartsModel) update(msg tea.Msg) (chartsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			c.chart.prev()
			c.buildChart()
			return c, nil
		case key.Matches(msg, keys.Right), key.Matches(msg, keys.Tab):
			c.chart.next()
			c.buildChart()
			return c, nil
		}
	}
	return c, nil
}

func (c *chartsModel) buildChart() {
	c.spec = view.Present(c.session.table, view.Options{
		Chart:     c.chart.current,
		Threshold: c.session.threshold,
	})

	chartWidth := c.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	chartHeight := 12
	if c.height > 30 {
		chartHeight = 16
	}

	switch c.spec.Chart {
	case view.ChartScatter, view.ChartLine:
		c.spark = sparkline.New(chartWidth, chartHeight)
		var values []float64
		for _, p := range c.spec.Points {
			values = append(values, p.Y)
		}
		c.spark.PushAll(values)
		c.spark.Draw()
	default:
		c.bars = barchart.New(chartWidth, chartHeight)
		var bars []barchart.BarData
		limit := min(len(c.spec.Bars), maxChartBars)
		for _, b := range c.spec.Bars[:limit] {
			style := lipgloss.NewStyle().Foreground(colorPrimary)
			if c.spec.Chart == view.ChartMilestone && strings.HasPrefix(b.Label, "Over") {
				style = lipgloss.NewStyle().Foreground(colorError)
			}
			bars = append(bars, barchart.BarData{
				Label: truncateLabel(b.Label, 10),
				Values: []barchart.BarValue{{
					Name:  b.Label,
					Value: b.Value,
					Style: style,
				}},
			})
		}
		if len(bars) == 0 {
			bars = []barchart.BarData{{
				Label:  "",
				Values: []barchart.BarValue{{Name: "", Value: 0, Style: lipgloss.NewStyle().Foreground(colorSubtle)}},
			}}
		}
		c.bars.PushAll(bars)
		c.bars.Draw()
	}
}

func truncateLabel(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func (c chartsModel) view() string {
	w := c.width - 4

	var typeTabs []string
	for _, t := range view.ChartTypes {
		label := chartLabel(t)
		if t == c.chart.current {
			typeTabs = append(typeTabs, activeTabStyle.Render(label))
		} else {
			typeTabs = append(typeTabs, inactiveTabStyle.Render(label))
		}
	}

	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Charts"), "  ",
		lipgloss.JoinHorizontal(lipgloss.Bottom, typeTabs...),
	)

	var chartView string
	switch c.spec.Chart {
	case view.ChartScatter, view.ChartLine:
		chartView = c.spark.View()
	default:
		chartView = c.bars.View()
	}

	caption := c.renderCaption()
	nav := mutedStyle.Render("  ←/→: chart type")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", chartView, "", caption, "", nav,
		),
	)
}

func (c chartsModel) renderCaption() string {
	switch c.spec.Chart {
	case view.ChartBar:
		n := len(c.spec.Bars)
		label := fmt.Sprintf("  Engine hours by tractor (%d shown)", min(n, maxChartBars))
		if n > maxChartBars {
			label += mutedStyle.Render(fmt.Sprintf(", %d hidden", n-maxChartBars))
		}
		return mutedStyle.Render(label)
	case view.ChartMilestone:
		var parts []string
		for _, b := range c.spec.Bars {
			parts = append(parts, fmt.Sprintf("%s: %.0f", b.Label, b.Value))
		}
		return mutedStyle.Render("  " + strings.Join(parts, "   "))
	case view.ChartScatter:
		return mutedStyle.Render(fmt.Sprintf("  Hours per reading, in file order (%d points)", len(c.spec.Points)))
	case view.ChartLine:
		return mutedStyle.Render(fmt.Sprintf("  Hours trend over dated readings (%d points)", len(c.spec.Points)))
	}
	return ""
}

func chartLabel(t view.ChartType) string {
	switch t {
	case view.ChartBar:
		return "Bar"
	case view.ChartScatter:
		return "Scatter"
	case view.ChartLine:
		return "Trend"
	case view.ChartMilestone:
		return "Milestone"
	}
	return string(t)
}
