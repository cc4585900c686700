package seed

import (
	"errors"
	"fmt"

	"github.com/apflow/roiserver/internal/roi"
	"github.com/apflow/roiserver/internal/scenario"
)

const demoScenarioName = "Sample: 2,000 invoices/mo"

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
}

// Run inserts a demo scenario through the repository so a fresh install has
// something to list. It is idempotent: a name collision means the demo data
// is already present.
func Run(scenarios *scenario.Repo) (Stats, error) {
	demoInput := roi.ScenarioInput{
		MonthlyInvoiceVolume:      2000,
		NumAPStaff:                3,
		AvgHoursPerInvoice:        0.1667,
		HourlyWage:                30,
		ErrorRateManual:           0.005,
		ErrorCost:                 100,
		TimeHorizonMonths:         36,
		OneTimeImplementationCost: 50000,
	}

	_, err := scenarios.Create(demoScenarioName, demoInput)
	if err != nil {
		var dup *scenario.DuplicateNameError
		if errors.As(err, &dup) {
			return Stats{}, nil
		}
		return Stats{}, fmt.Errorf("seed demo scenario: %w", err)
	}

	return Stats{Inserts: 1}, nil
}
