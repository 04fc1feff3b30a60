package reconcile

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/cantiere-erp/cantiere-erp/internal/finmodel"
)

// ImpactLevel classifies the severity of a metrics change.
type ImpactLevel string

const (
	ImpactLow      ImpactLevel = "LOW"
	ImpactMedium   ImpactLevel = "MEDIUM"
	ImpactHigh     ImpactLevel = "HIGH"
	ImpactCritical ImpactLevel = "CRITICAL"
)

// ImpactAnalysis diffs two metrics snapshots and carries the resulting
// severity and recommendations.
type ImpactAnalysis struct {
	CostChange      float64     `json:"cost_change"`
	MarginChange    float64     `json:"margin_change"`
	MarginPctChange float64     `json:"margin_pct_change"`
	NPVChange       float64     `json:"npv_change"`
	IRRChange       float64     `json:"irr_change"`
	DSCRChange      float64     `json:"dscr_change"`
	PaybackChange   float64     `json:"payback_change"`
	Level           ImpactLevel `json:"level"`
	Recommendations []string    `json:"recommendations"`
}

// minDSCRCovenant is the debt covenant floor recommendations warn about.
const minDSCRCovenant = 1.2

var amounts = message.NewPrinter(language.English)

// AnalyzeImpact computes metric deltas, classifies the magnitude of the
// margin-percentage change and emits recommendations. All recommendation
// rules are evaluated independently; any subset may fire.
func AnalyzeImpact(before, after finmodel.Metrics) ImpactAnalysis {
	analysis := ImpactAnalysis{
		CostChange:      round2(after.TotalCosts - before.TotalCosts),
		MarginChange:    round2(after.Margin - before.Margin),
		MarginPctChange: round2(after.MarginPct - before.MarginPct),
		NPVChange:       round2(after.NPV - before.NPV),
		IRRChange:       round2(after.IRR - before.IRR),
		DSCRChange:      round2(after.DSCR - before.DSCR),
		PaybackChange:   round2(after.PaybackPeriod - before.PaybackPeriod),
		Recommendations: []string{},
	}
	analysis.Level = classify(analysis.MarginPctChange)

	if analysis.MarginPctChange < -5 {
		analysis.Recommendations = append(analysis.Recommendations,
			amounts.Sprintf("margin eroded by %.2f points on a cost increase of %.0f: renegotiate supplier contracts for the drifting categories", -analysis.MarginPctChange, analysis.CostChange),
			"review design alternatives to recover margin before the next work package is awarded",
		)
	}
	if analysis.NPVChange < 0 {
		analysis.Recommendations = append(analysis.Recommendations,
			amounts.Sprintf("NPV dropped by %.0f: revisit the financing strategy and discount assumptions", -analysis.NPVChange))
	}
	if analysis.DSCRChange < 0 && after.DSCR < minDSCRCovenant {
		analysis.Recommendations = append(analysis.Recommendations,
			amounts.Sprintf("DSCR %.2f is below the %.1f covenant minimum: review the debt structure with the lender", after.DSCR, minDSCRCovenant))
	}
	return analysis
}

func classify(marginPctChange float64) ImpactLevel {
	switch delta := math.Abs(marginPctChange); {
	case delta > 20:
		return ImpactCritical
	case delta > 10:
		return ImpactHigh
	case delta > 5:
		return ImpactMedium
	default:
		return ImpactLow
	}
}
