package page

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
)

// SortOption is one entry of the sort control.
type SortOption struct {
	Value    string
	Label    string
	Selected bool
}

// HostData fills the built-in host page.
type HostData struct {
	Title       string
	SortOptions []SortOption
	// ChartJS includes the Chart.js bootstrap for data-chart targets.
	ChartJS bool
	// Intro adds the siteIntro element.
	Intro bool
}

var hostTmpl = template.Must(template.New("host").Parse(hostTemplate))

// NewHost builds the built-in host page.
func NewHost(data HostData) (*Page, error) {
	var buf bytes.Buffer
	if err := hostTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("executing host template: %w", err)
	}
	return Parse(&buf)
}

// LoadHost reads a user supplied host page from disk.
func LoadHost(path string) (*Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening host page: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

const hostTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <script src="https://cdn.tailwindcss.com"></script>
    {{if .ChartJS}}<script src="https://cdn.jsdelivr.net/npm/chart.js"></script>{{end}}
    <style>
        .muted { color: #6b7280; }
        .small { font-size: 0.8rem; }
        .badge {
            display: inline-block;
            padding: 0 0.4rem;
            margin-right: 0.25rem;
            border: 1px solid #d1d5db;
            border-radius: 0.25rem;
            font-size: 0.7rem;
        }
        .table { width: 100%; border-collapse: collapse; }
        .table th { text-align: left; font-size: 0.75rem; text-transform: uppercase; color: #6b7280; padding: 0.5rem; }
        .table td { padding: 0.75rem 0.5rem; border-top: 1px solid #e5e7eb; vertical-align: top; }
        .stat-value { font-variant-numeric: tabular-nums; font-size: 1.5rem; font-weight: 600; }
        .chart { position: relative; height: 320px; }
        .chart img { max-width: 100%; }
    </style>
</head>
<body class="bg-white">
    <div class="max-w-6xl mx-auto px-4 py-6">
        <h1 class="text-2xl font-semibold text-gray-900 mb-6">{{.Title}}</h1>
        {{if .Intro}}<div id="siteIntro" class="prose mb-6"></div>{{end}}

        <div class="grid grid-cols-3 gap-4 mb-8">
            <div>
                <div class="muted small">Total citations</div>
                <div id="statTotalCites" class="stat-value">—</div>
            </div>
            <div>
                <div class="muted small">Papers</div>
                <div id="statPaperCount" class="stat-value">—</div>
            </div>
            <div>
                <div class="muted small">Updated</div>
                <div id="statUpdatedAt" class="stat-value">—</div>
            </div>
        </div>

        <div class="grid grid-cols-2 gap-6 mb-8">
            <div>
                <h2 class="text-lg font-medium mb-2">Citations by year</h2>
                <div id="chartCitationsByYear" class="chart"></div>
            </div>
            <div>
                <h2 class="text-lg font-medium mb-2">Top papers</h2>
                <div id="chartTopPapers" class="chart"></div>
            </div>
        </div>

        <div class="flex justify-between items-center mb-4">
            <h2 class="text-lg font-medium">Publications</h2>
            <form method="get" action="">
                <label class="muted small" for="sortSelect">Sort by</label>
                <select id="sortSelect" name="sort" class="px-2 py-1 border border-gray-300 rounded-md" onchange="this.form.submit()">
                    {{range .SortOptions}}<option value="{{.Value}}"{{if .Selected}} selected{{end}}>{{.Label}}</option>
                    {{end}}
                </select>
            </form>
        </div>
        <div id="pubsTableWrap" class="overflow-x-auto"></div>
    </div>
    {{if .ChartJS}}
    <script>
        document.querySelectorAll("[data-chart]").forEach(function (el) {
            const canvas = document.createElement("canvas");
            el.appendChild(canvas);
            new Chart(canvas, JSON.parse(el.dataset.chart));
        });
    </script>
    {{end}}
</body>
</html>`
