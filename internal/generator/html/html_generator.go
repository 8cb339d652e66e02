package htmlgenerator

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BalanceBalls/timesheet-tracker/internal/generator"
	"github.com/BalanceBalls/timesheet-tracker/internal/report"
	"github.com/BalanceBalls/timesheet-tracker/internal/storage"
)

type HtmlGenerator struct {
	reportsDir   string
	tmplName     string
	generateFile bool
}

//go:embed *.tmpl
var tpls embed.FS

const DefaultTemplate = "html_report.tmpl"

func New(reportsDir string, tmplName string, generateFile bool) *HtmlGenerator {
	if tmplName == "" {
		tmplName = DefaultTemplate
	}
	return &HtmlGenerator{
		reportsDir:   reportsDir,
		tmplName:     tmplName,
		generateFile: generateFile,
	}
}

type templateData struct {
	Employee string
	From     string
	To       string
	Days     []templateDay
	Total    float64
}

type templateDay struct {
	Date   string
	Locked bool
	Rows   []report.ReportRow
	Total  float64
}

// Generate renders the reports into a single document. With file generation
// on, the document is also written to the reports directory.
func (g *HtmlGenerator) Generate(period generator.Period, reports []report.Report) (report.Result, error) {
	tmpl, err := template.ParseFS(tpls, g.tmplName)
	if err != nil {
		return report.Result{}, fmt.Errorf(
			"failed to parse template file for html report: %w", err)
	}

	data := templateData{
		Employee: period.Employee,
		From:     period.From.Format(storage.DateLayout),
		To:       period.To.Format(storage.DateLayout),
	}
	for _, r := range reports {
		data.Days = append(data.Days, templateDay{
			Date:   r.Date.Format(storage.DateLayout),
			Locked: r.Locked,
			Rows:   r.Rows,
			Total:  r.Total(),
		})
		data.Total += r.Total()
	}

	var buf bytes.Buffer
	if err = tmpl.ExecuteTemplate(&buf, g.tmplName, data); err != nil {
		return report.Result{}, fmt.Errorf(
			"failed to generate an html report: %w", err)
	}

	result := report.Result{
		Name: reportName(period),
		Data: buf.Bytes(),
	}

	if !g.generateFile {
		return result, nil
	}

	if err = os.MkdirAll(g.reportsDir, fs.ModePerm); err != nil {
		return report.Result{}, fmt.Errorf(
			"failed to create reports folder: %w", err)
	}

	if err = os.WriteFile(filepath.Join(g.reportsDir, result.Name), result.Data, 0o644); err != nil {
		return report.Result{}, fmt.Errorf(
			"failed to write html file for report: %w", err)
	}

	return result, nil
}

func reportName(p generator.Period) string {
	return fmt.Sprintf("report-%s-%s-%s.html",
		p.Employee, p.From.Format(storage.DateLayout), p.To.Format(storage.DateLayout))
}
