package generator

import (
	"time"

	"github.com/BalanceBalls/timesheet-tracker/internal/report"
)

// Period is what a document covers.
type Period struct {
	Employee string
	From     time.Time
	To       time.Time
}

type Generator interface {
	Generate(period Period, reports []report.Report) (report.Result, error)
}
