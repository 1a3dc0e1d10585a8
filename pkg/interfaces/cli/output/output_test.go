package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vsinha/fieldflow/pkg/application/dto"
)

func aprilDay(d int) time.Time {
	return time.Date(2025, 4, d, 0, 0, 0, 0, time.UTC)
}

func sampleCriticalPath() dto.CriticalPath {
	survey := dto.CriticalPathNode{
		TaskID: uuid.New(), TaskName: "Site survey",
		StartDate: aprilDay(1), EndDate: aprilDay(3), EarliestStart: aprilDay(1), LatestStart: aprilDay(1),
		Critical: true,
	}
	paint := dto.CriticalPathNode{
		TaskID: uuid.New(), TaskName: "Paint <mast>",
		StartDate: aprilDay(2), EndDate: aprilDay(3), EarliestStart: aprilDay(2), LatestStart: aprilDay(4),
		SlackDays: 2,
	}
	return dto.CriticalPath{
		JobID:        uuid.New(),
		AnalysisDate: aprilDay(1),
		Nodes:        []dto.CriticalPathNode{paint, survey},
		CriticalPath: []dto.CriticalPathNode{survey},
	}
}

func TestWriteTextGantt(t *testing.T) {
	cp := sampleCriticalPath()
	var buf bytes.Buffer
	WriteTextGantt(&buf, &cp)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected header plus 2 rows, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[1], "Site survey") || !strings.HasSuffix(lines[1], "|##|") {
		t.Errorf("Expected survey first with two critical days, got %q", lines[1])
	}
	if !strings.HasSuffix(lines[2], "|.=|") {
		t.Errorf("Expected paint offset by a day with slack marks, got %q", lines[2])
	}
}

func TestCriticalPath_Formats(t *testing.T) {
	cp := sampleCriticalPath()

	var text bytes.Buffer
	if err := CriticalPath(Config{Format: FormatText, Out: &text}, cp); err != nil {
		t.Fatalf("text output failed: %v", err)
	}
	if !strings.Contains(text.String(), "Site survey") || !strings.Contains(text.String(), "yes") {
		t.Errorf("Expected the critical survey row in text output:\n%s", text.String())
	}

	var js bytes.Buffer
	if err := CriticalPath(Config{Format: FormatJSON, Out: &js}, cp); err != nil {
		t.Fatalf("json output failed: %v", err)
	}
	var decoded dto.CriticalPath
	if err := json.Unmarshal(js.Bytes(), &decoded); err != nil {
		t.Fatalf("Expected valid JSON: %v", err)
	}
	if decoded.JobID != cp.JobID || len(decoded.Nodes) != 2 {
		t.Errorf("Expected job %s with 2 nodes, got %+v", cp.JobID, decoded)
	}

	if err := CriticalPath(Config{Format: "csv"}, cp); err == nil {
		t.Error("Expected unsupported format to fail")
	}
}

func TestWorkflowStatus_ListsNextActions(t *testing.T) {
	batchID := uuid.New()
	status := dto.WorkflowStatus{
		JobID:       uuid.New(),
		JobStatus:   "Accepted",
		BatchID:     &batchID,
		BatchStatus: "Created",
		LineCounts:  map[string]int{"ClientWarehouse": 1},
		TotalLines:  1,
		TaskCounts:  map[string]int{"Not Started": 2},
		CanReceive:  true,
	}

	var buf bytes.Buffer
	if err := WorkflowStatus(Config{Out: &buf}, status); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{batchID.String(), "ClientWarehouse", "  - receive"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "  - accept") {
		t.Errorf("Expected accept not to be offered:\n%s", out)
	}
}

func TestGanttChart_SVG(t *testing.T) {
	cp := sampleCriticalPath()
	svg := NewGanttChart(&cp).GenerateSVG(&cp)

	if !strings.HasPrefix(svg, "<svg") || !strings.HasSuffix(svg, "</svg>") {
		t.Fatalf("Expected a complete svg document")
	}
	if strings.Count(svg, `class="task-bar"`) != 2 {
		t.Errorf("Expected 2 task bars")
	}
	if !strings.Contains(svg, "Paint &lt;mast&gt;") {
		t.Errorf("Expected task names to be escaped")
	}
	if !strings.Contains(svg, barColor(true)) {
		t.Errorf("Expected a critical bar colour")
	}

	empty := dto.CriticalPath{}
	if !strings.Contains(NewGanttChart(&empty).GenerateSVG(&empty), "No Tasks Found") {
		t.Errorf("Expected empty chart placeholder")
	}
}

func TestHTMLReport(t *testing.T) {
	cp := sampleCriticalPath()
	report := &HTMLReport{now: func() time.Time { return aprilDay(1) }}

	html, err := report.GenerateHTML(cp)
	if err != nil {
		t.Fatalf("GenerateHTML failed: %v", err)
	}
	for _, want := range []string{"<svg", cp.JobID.String(), `class="critical"`, "2025-04-01 00:00:00"} {
		if !strings.Contains(html, want) {
			t.Errorf("Expected %q in report", want)
		}
	}
}
