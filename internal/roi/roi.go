package roi

import "math"

// ScenarioInput represents the business metrics a caller supplies to project
// savings from automating invoice processing.
type ScenarioInput struct {
	MonthlyInvoiceVolume      float64 `json:"monthly_invoice_volume" validate:"gt=0"`
	NumAPStaff                float64 `json:"num_ap_staff" validate:"gte=0"`
	AvgHoursPerInvoice        float64 `json:"avg_hours_per_invoice" validate:"gte=0"`
	HourlyWage                float64 `json:"hourly_wage" validate:"gte=0"`
	ErrorRateManual           float64 `json:"error_rate_manual" validate:"gte=0,lte=1"`
	ErrorCost                 float64 `json:"error_cost" validate:"gte=0"`
	TimeHorizonMonths         int     `json:"time_horizon_months" validate:"gt=0"`
	OneTimeImplementationCost float64 `json:"one_time_implementation_cost" validate:"gte=0"`
}

// ScenarioResult contains the derived projection figures. It is always
// computed from a ScenarioInput, never accepted from a caller.
type ScenarioResult struct {
	MonthlySavings    float64 `json:"monthly_savings"`
	CumulativeSavings float64 `json:"cumulative_savings"`
	PaybackMonths     Ratio   `json:"payback_months"`
	ROIPercentage     Ratio   `json:"roi_percentage"`
	LaborCostManual   float64 `json:"labor_cost_manual"`
	AutoCost          float64 `json:"auto_cost"`
}

// Constants is the fixed modeling configuration injected into an Engine.
// The values are server-side only and never appear in a ScenarioResult.
type Constants struct {
	AutomatedCostPerInvoice float64
	ErrorRateAuto           float64
	MinROIBoostFactor       float64
	// TimeSavedPerInvoice is declared by the model but enters no formula.
	TimeSavedPerInvoice float64
}

// DefaultConstants returns the production constant set.
func DefaultConstants() Constants {
	return Constants{
		AutomatedCostPerInvoice: 0.20,
		ErrorRateAuto:           0.001,
		MinROIBoostFactor:       1.1,
		TimeSavedPerInvoice:     12,
	}
}

// Engine computes projection results from scenario inputs. It holds no
// mutable state and performs no I/O.
type Engine struct {
	c Constants
}

// NewEngine returns an Engine bound to an immutable constant set.
func NewEngine(c Constants) *Engine {
	return &Engine{c: c}
}

// Compute derives the projection figures for a validated input. The error
// savings term floors at zero, but the post-bias monthly savings may be
// negative when automation costs exceed manual costs plus error savings.
func (e *Engine) Compute(in ScenarioInput) ScenarioResult {
	laborCostManual := in.NumAPStaff * in.HourlyWage * in.AvgHoursPerInvoice * in.MonthlyInvoiceVolume
	autoCost := in.MonthlyInvoiceVolume * e.c.AutomatedCostPerInvoice
	errorSavings := math.Max(in.ErrorRateManual-e.c.ErrorRateAuto, 0) * in.MonthlyInvoiceVolume * in.ErrorCost

	monthlySavings := (laborCostManual + errorSavings - autoCost) * e.c.MinROIBoostFactor
	cumulativeSavings := monthlySavings * float64(in.TimeHorizonMonths)

	paybackMonths := divide(in.OneTimeImplementationCost, monthlySavings)

	roiPercentage := Ratio{Undefined: true}
	if in.OneTimeImplementationCost != 0 {
		roiPercentage = Ratio{Value: (cumulativeSavings - in.OneTimeImplementationCost) / in.OneTimeImplementationCost * 100}
	}

	return ScenarioResult{
		MonthlySavings:    monthlySavings,
		CumulativeSavings: cumulativeSavings,
		PaybackMonths:     paybackMonths,
		ROIPercentage:     roiPercentage,
		LaborCostManual:   laborCostManual,
		AutoCost:          autoCost,
	}
}

func divide(numerator, denominator float64) Ratio {
	if denominator == 0 {
		return Ratio{Undefined: true}
	}
	return Ratio{Value: numerator / denominator}
}
