package output

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/vsinha/fieldflow/pkg/application/dto"
)

const day = 24 * time.Hour

// GanttChart lays out a job's tasks on a shared time axis
type GanttChart struct {
	Width        int
	Height       int
	MarginLeft   int
	MarginTop    int
	MarginRight  int
	MarginBottom int
	RowHeight    int
	StartTime    time.Time
	EndTime      time.Time
}

// GanttBar represents a single task bar in the chart
type GanttBar struct {
	TaskName  string
	StartDate time.Time
	EndDate   time.Time
	SlackDays float64
	Critical  bool
	X         int
	Width     int
	Color     string
}

// NewGanttChart sizes a chart for the critical path analysis
func NewGanttChart(cp *dto.CriticalPath) *GanttChart {
	if len(cp.Nodes) == 0 {
		return &GanttChart{
			Width:        800,
			Height:       200,
			MarginLeft:   150,
			MarginTop:    50,
			MarginRight:  50,
			MarginBottom: 50,
			RowHeight:    25,
		}
	}

	startTime, endTime := bounds(cp.Nodes)

	// 10% padding either side, at least half a day
	padding := time.Duration(float64(endTime.Sub(startTime)) * 0.1)
	if padding < day/2 {
		padding = day / 2
	}

	rowHeight := 30
	return &GanttChart{
		Width:        1200,
		Height:       len(cp.Nodes)*rowHeight + 170,
		MarginLeft:   200,
		MarginTop:    60,
		MarginRight:  100,
		MarginBottom: 80,
		RowHeight:    rowHeight,
		StartTime:    startTime.Add(-padding),
		EndTime:      endTime.Add(padding),
	}
}

func bounds(nodes []dto.CriticalPathNode) (time.Time, time.Time) {
	start, end := nodes[0].StartDate, nodes[0].EndDate
	for _, n := range nodes {
		if n.StartDate.Before(start) {
			start = n.StartDate
		}
		if n.EndDate.After(end) {
			end = n.EndDate
		}
	}
	return start, end
}

// GenerateSVG creates an SVG representation of the Gantt chart
func (gc *GanttChart) GenerateSVG(cp *dto.CriticalPath) string {
	if len(cp.Nodes) == 0 {
		return gc.generateEmptyChart()
	}

	var svg strings.Builder

	svg.WriteString(fmt.Sprintf(`<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">`, gc.Width, gc.Height))
	svg.WriteString(`<defs>`)
	svg.WriteString(`<style>`)
	svg.WriteString(`.task-label { font-family: Arial, sans-serif; font-size: 12px; fill: #333; }`)
	svg.WriteString(`.time-label { font-family: Arial, sans-serif; font-size: 10px; fill: #666; }`)
	svg.WriteString(`.title { font-family: Arial, sans-serif; font-size: 16px; font-weight: bold; fill: #333; }`)
	svg.WriteString(`.grid-line { stroke: #e0e0e0; stroke-width: 1; }`)
	svg.WriteString(`.task-bar { stroke: #333; stroke-width: 1; }`)
	svg.WriteString(`.task-text { font-family: Arial, sans-serif; font-size: 9px; fill: white; }`)
	svg.WriteString(`</style>`)
	svg.WriteString(`</defs>`)

	svg.WriteString(fmt.Sprintf(`<rect width="%d" height="%d" fill="white"/>`, gc.Width, gc.Height))
	svg.WriteString(fmt.Sprintf(`<text x="%d" y="30" class="title" text-anchor="middle">Job Schedule - Critical Path</text>`, gc.Width/2))

	bars := gc.createBars(cp.Nodes)

	gc.drawTimeAxis(&svg)
	gc.drawTimeGrid(&svg, len(bars))
	gc.drawTaskRows(&svg, bars)
	gc.drawLegend(&svg)

	svg.WriteString(`</svg>`)
	return svg.String()
}

// createBars converts nodes to bars ordered by start date then name
func (gc *GanttChart) createBars(nodes []dto.CriticalPathNode) []GanttBar {
	chartWidth := gc.Width - gc.MarginLeft - gc.MarginRight
	totalDuration := gc.EndTime.Sub(gc.StartTime)

	bars := make([]GanttBar, 0, len(nodes))
	for _, n := range nodes {
		startOffset := n.StartDate.Sub(gc.StartTime)
		duration := n.EndDate.Sub(n.StartDate)

		x := gc.MarginLeft + int(float64(startOffset)/float64(totalDuration)*float64(chartWidth))
		width := int(float64(duration) / float64(totalDuration) * float64(chartWidth))
		if width < 2 {
			width = 2
		}

		bars = append(bars, GanttBar{
			TaskName:  n.TaskName,
			StartDate: n.StartDate,
			EndDate:   n.EndDate,
			SlackDays: n.SlackDays,
			Critical:  n.Critical,
			X:         x,
			Width:     width,
			Color:     barColor(n.Critical),
		})
	}

	sort.SliceStable(bars, func(i, j int) bool {
		if !bars[i].StartDate.Equal(bars[j].StartDate) {
			return bars[i].StartDate.Before(bars[j].StartDate)
		}
		return bars[i].TaskName < bars[j].TaskName
	})
	return bars
}

// axisInterval picks daily, weekly or monthly ticks for the chart span
func (gc *GanttChart) axisInterval() (time.Duration, string) {
	days := int(math.Ceil(gc.EndTime.Sub(gc.StartTime).Hours() / 24))
	switch {
	case days <= 30:
		return day, "Jan 2"
	case days <= 180:
		return 7 * day, "Jan 2"
	default:
		return 30 * day, "Jan 2006"
	}
}

func (gc *GanttChart) xFor(t time.Time) int {
	chartWidth := gc.Width - gc.MarginLeft - gc.MarginRight
	offset := t.Sub(gc.StartTime)
	return gc.MarginLeft + int(float64(offset)/float64(gc.EndTime.Sub(gc.StartTime))*float64(chartWidth))
}

func (gc *GanttChart) drawTimeAxis(svg *strings.Builder) {
	interval, labelFormat := gc.axisInterval()

	for t := gc.StartTime.Truncate(interval); t.Before(gc.EndTime); t = t.Add(interval) {
		x := gc.xFor(t)
		if x >= gc.MarginLeft && x <= gc.Width-gc.MarginRight {
			svg.WriteString(fmt.Sprintf(`<text x="%d" y="%d" class="time-label" text-anchor="middle">%s</text>`,
				x, gc.Height-gc.MarginBottom+15, t.Format(labelFormat)))
		}
	}

	svg.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" class="grid-line"/>`,
		gc.MarginLeft, gc.Height-gc.MarginBottom, gc.Width-gc.MarginRight, gc.Height-gc.MarginBottom))
}

// rowHeight shrinks rows so they stay clear of the time axis
func (gc *GanttChart) rowHeight(numRows int) int {
	maxRowY := gc.Height - gc.MarginBottom - 30
	h := (maxRowY - gc.MarginTop) / numRows
	if h > gc.RowHeight {
		h = gc.RowHeight
	}
	return h
}

func (gc *GanttChart) drawTimeGrid(svg *strings.Builder, numRows int) {
	interval, _ := gc.axisInterval()
	gridBottom := gc.MarginTop + numRows*gc.rowHeight(numRows)

	for t := gc.StartTime.Truncate(interval); t.Before(gc.EndTime); t = t.Add(interval) {
		x := gc.xFor(t)
		if x >= gc.MarginLeft && x <= gc.Width-gc.MarginRight {
			svg.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" class="grid-line"/>`,
				x, gc.MarginTop, x, gridBottom))
		}
	}
}

func (gc *GanttChart) drawTaskRows(svg *strings.Builder, bars []GanttBar) {
	rowHeight := gc.rowHeight(len(bars))

	for i, bar := range bars {
		y := gc.MarginTop + i*rowHeight

		svg.WriteString(fmt.Sprintf(`<text x="%d" y="%d" class="task-label" text-anchor="end">%s</text>`,
			gc.MarginLeft-15, y+rowHeight/2+4, escapeXML(bar.TaskName)))
		svg.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" class="grid-line"/>`,
			gc.MarginLeft, y+rowHeight, gc.Width-gc.MarginRight, y+rowHeight))

		gc.drawBar(svg, bar, y, rowHeight)
	}
}

func (gc *GanttChart) drawBar(svg *strings.Builder, bar GanttBar, rowY int, rowHeight int) {
	barHeight := rowHeight - 4
	barY := rowY + 2

	svg.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="%d" height="%d" fill="%s" class="task-bar">`,
		bar.X, barY, bar.Width, barHeight, bar.Color))
	svg.WriteString(fmt.Sprintf(`<title>%s, %s to %s, slack %.1f days</title>`,
		escapeXML(bar.TaskName),
		bar.StartDate.Format("2006-01-02"),
		bar.EndDate.Format("2006-01-02"),
		bar.SlackDays))
	svg.WriteString(`</rect>`)

	if bar.Width > 40 {
		svg.WriteString(fmt.Sprintf(`<text x="%d" y="%d" class="task-text" text-anchor="middle">slack %.1fd</text>`,
			bar.X+bar.Width/2, barY+barHeight/2+3, bar.SlackDays))
	}
}

func (gc *GanttChart) drawLegend(svg *strings.Builder) {
	legendX := gc.Width - gc.MarginRight - 200
	legendY := 50

	svg.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="180" height="50" fill="white" stroke="#ccc" stroke-width="1"/>`,
		legendX, legendY))
	svg.WriteString(fmt.Sprintf(`<text x="%d" y="%d" class="task-label" font-weight="bold">Legend</text>`,
		legendX+10, legendY+15))

	items := []struct {
		color string
		label string
	}{
		{barColor(true), "Critical"},
		{barColor(false), "Has slack"},
	}
	for i, item := range items {
		itemY := legendY + 25 + i*12
		svg.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="12" height="8" fill="%s"/>`,
			legendX+10, itemY, item.color))
		svg.WriteString(fmt.Sprintf(`<text x="%d" y="%d" class="time-label">%s</text>`,
			legendX+30, itemY+6, item.label))
	}
}

func barColor(critical bool) string {
	if critical {
		return "#E53935"
	}
	return "#2196F3"
}

func (gc *GanttChart) generateEmptyChart() string {
	return fmt.Sprintf(`<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">
		<rect width="%d" height="%d" fill="white"/>
		<text x="%d" y="%d" class="title" text-anchor="middle">No Tasks Found</text>
		<style>
			.title { font-family: Arial, sans-serif; font-size: 16px; fill: #666; }
		</style>
	</svg>`, gc.Width, gc.Height, gc.Width, gc.Height, gc.Width/2, gc.Height/2)
}

var xmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func escapeXML(s string) string {
	return xmlEscaper.Replace(s)
}

// WriteTextGantt draws one line per task with a column per day. Critical
// days are '#', the rest '='.
func WriteTextGantt(w io.Writer, cp *dto.CriticalPath) {
	if len(cp.Nodes) == 0 {
		fmt.Fprintln(w, "(no tasks)")
		return
	}
	start, end := bounds(cp.Nodes)
	start = start.Truncate(day)
	days := int(math.Ceil(end.Sub(start).Hours() / 24))
	if days < 1 {
		days = 1
	}

	nodes := append([]dto.CriticalPathNode(nil), cp.Nodes...)
	sort.SliceStable(nodes, func(i, j int) bool {
		if !nodes[i].StartDate.Equal(nodes[j].StartDate) {
			return nodes[i].StartDate.Before(nodes[j].StartDate)
		}
		return nodes[i].TaskName < nodes[j].TaskName
	})

	fmt.Fprintf(w, "%-24s %s\n", "", start.Format("2006-01-02"))
	for _, n := range nodes {
		mark := "="
		if n.Critical {
			mark = "#"
		}
		from := int(n.StartDate.Sub(start).Hours() / 24)
		to := int(math.Ceil(n.EndDate.Sub(start).Hours() / 24))
		if to <= from {
			to = from + 1
		}
		line := strings.Repeat(".", from) + strings.Repeat(mark, to-from)
		if pad := days - len(line); pad > 0 {
			line += strings.Repeat(".", pad)
		}
		fmt.Fprintf(w, "%-24s |%s|\n", truncate(n.TaskName, 24), line)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "~"
}
