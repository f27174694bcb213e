package report

import (
	"bytes"
	"html/template"
	"io"
	"sort"
	"time"

	"github.com/ja7ad/gpuwatt/pkg/attribution"
	"github.com/ja7ad/gpuwatt/pkg/util"
)

// Row is one label in a summary, used by the HTML report and the CLI table.
type Row struct {
	Label   string
	Watts   float64
	Joules  float64
	Percent float64 // of all attributed watts
}

// TopRows returns the labels of res ordered by attributed watts, highest first.
// limit <= 0 returns every label.
func TopRows(res *attribution.Result, limit int) []Row {
	total := res.Totals.Total()
	rows := make([]Row, 0, res.Totals.Len())
	for _, l := range res.Totals.Labels() {
		w, _ := res.Totals.Get(l)
		j, _ := res.Energy.Get(l)
		rows = append(rows, Row{Label: l, Watts: w, Joules: j, Percent: 100 * util.SafeDiv(w, total)})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Watts > rows[j].Watts })
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

// WriteHTML renders a standalone summary page.
func WriteHTML(w io.Writer, target string, policy attribution.Policy, res *attribution.Result, at time.Time) error {
	type view struct {
		Target    string
		Policy    string
		Generated string
		Stats     attribution.Stats
		Seconds   float64
		Mean      float64
		Coverage  float64
		Rows      []Row
	}

	data := view{
		Target:    target,
		Policy:    policy.String(),
		Generated: at.Format("2006-01-02 15:04:05"),
		Stats:     res.Stats,
		Seconds:   float64(res.Stats.DurationNs) / 1e9,
		Mean:      res.Stats.MeanWatts(),
		Coverage:  100 * res.Stats.Coverage(),
		Rows:      TopRows(res, 0),
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

var tpl = template.Must(template.New("rep").Parse(`<!doctype html>
<html lang="en"><meta charset="utf-8">
<title>GPU Power Attribution: {{.Target}}</title>
<style>
body{font-family:system-ui,Segoe UI,Roboto,Helvetica,Arial,sans-serif;margin:20px}
h1,h2{margin:0 0 8px}
table{border-collapse:collapse;width:100%;font-size:14px}
th,td{border:1px solid #ddd;padding:6px 8px;text-align:right}
th:first-child,td:first-child{text-align:left}
ul{margin:6px 0 14px;padding-left:20px}
code{background:#f5f5f5;padding:2px 4px;border-radius:4px}
.small{color:#555}
.bar{display:inline-block;height:10px;background:#7a9cf0}
</style>

<h1>GPU Power Attribution</h1>

<p class="small">
Run: <code>{{.Target}}</code> &nbsp;|&nbsp;
Policy: <code>{{.Policy}}</code> &nbsp;|&nbsp;
Generated: {{.Generated}}
</p>

<h2>Summary</h2>
<ul>
<li>Windows: {{.Stats.Windows}} ({{.Stats.IdleWindows}} idle, {{.Stats.EmptyWindows}} empty)</li>
<li>Span: {{printf "%.3f" .Seconds}} s</li>
<li>Mean reading: {{printf "%.3f" .Mean}} W</li>
<li>Kernels: {{.Stats.Events}} indexed, {{.Stats.SkippedEvents}} without label</li>
<li>Coverage: {{printf "%.1f" .Coverage}}% of window watts attributed</li>
</ul>

<h2>Per-kernel</h2>
<table>
<thead>
<tr><th>kernel</th><th>watts</th><th>energy (J)</th><th>share</th><th></th></tr>
</thead>
<tbody>
{{range .Rows}}
<tr>
<td>{{.Label}}</td>
<td>{{printf "%.3f" .Watts}}</td>
<td>{{printf "%.3f" .Joules}}</td>
<td>{{printf "%.2f" .Percent}}%</td>
<td style="text-align:left"><span class="bar" style="width:{{printf "%.0f" .Percent}}%"></span></td>
</tr>
{{end}}
</tbody>
</table>
</html>`))
