package finmodel

import (
	"fmt"

	"github.com/cantiere-erp/cantiere-erp/internal/planning"
)

// Thresholds configures plan validation limits.
type Thresholds struct {
	MarginErrorPct   float64
	MarginWarningPct float64
	MinDSCR          float64
}

// DefaultThresholds returns the standard covenant limits.
func DefaultThresholds() Thresholds {
	return Thresholds{MarginErrorPct: 5, MarginWarningPct: 10, MinDSCR: 1.2}
}

// ValidationReport summarises a post-update plan health check.
type ValidationReport struct {
	IsValid  bool     `json:"is_valid"`
	Warnings []string `json:"warnings"`
	Errors   []string `json:"errors"`
}

// Validate checks a plan's metrics against the thresholds. A report with an
// empty Errors slice is valid; warnings never invalidate the plan.
func Validate(plan planning.PlanSnapshot, metrics Metrics, th Thresholds) ValidationReport {
	report := ValidationReport{Warnings: []string{}, Errors: []string{}}

	switch {
	case metrics.MarginPct < th.MarginErrorPct:
		report.Errors = append(report.Errors, fmt.Sprintf("margin %.2f%% below minimum %.2f%%", metrics.MarginPct, th.MarginErrorPct))
	case metrics.MarginPct < th.MarginWarningPct:
		report.Warnings = append(report.Warnings, fmt.Sprintf("margin %.2f%% below target %.2f%%", metrics.MarginPct, th.MarginWarningPct))
	}

	if plan.Finance.Debt.Enabled && metrics.DSCR < th.MinDSCR {
		report.Errors = append(report.Errors, fmt.Sprintf("DSCR %.2f below covenant minimum %.2f", metrics.DSCR, th.MinDSCR))
	}

	if metrics.NPV < 0 {
		report.Warnings = append(report.Warnings, fmt.Sprintf("NPV is negative (%.2f)", metrics.NPV))
	}

	if plan.Targets.MarginPct > 0 && metrics.MarginPct < plan.Targets.MarginPct {
		report.Warnings = append(report.Warnings, fmt.Sprintf("margin %.2f%% below plan target %.2f%%", metrics.MarginPct, plan.Targets.MarginPct))
	}

	report.IsValid = len(report.Errors) == 0
	return report
}
