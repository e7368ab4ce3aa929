// Package wealth derives financial indicators from a case's bank statements.
package wealth

import (
	"context"
	"fmt"

	"kycgate/internal/tools"
	"kycgate/internal/tools/documents"
)

// Stability values.
const (
	StabilityUnknown = "UNKNOWN"
)

// Calculator summarizes statement documents. Transaction-level extraction is
// left to the wealth worker's model; the calculator reports what evidence the
// model has to work with.
type Calculator struct{}

// NewCalculator creates a Calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Calculate summarizes the bank statements present in batch.
func (c *Calculator) Calculate(ctx context.Context, batch tools.DocumentBatch) (tools.WealthMetrics, error) {
	if err := ctx.Err(); err != nil {
		return tools.WealthMetrics{}, err
	}

	statements := 0
	for _, d := range batch.Documents {
		if d.DocumentType == documents.TypeBankStatement {
			statements++
		}
	}

	m := tools.WealthMetrics{
		StatementsProcessed: statements,
		IncomeStability:     StabilityUnknown,
		DebtIndicators:      []string{},
	}
	switch {
	case statements == 0:
		m.Notes = "No bank statements provided; source of wealth cannot be evidenced"
	default:
		m.Notes = fmt.Sprintf("%d bank statement(s) located; figures require transaction extraction", statements)
	}
	return m, nil
}
