package wealth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycgate/internal/tools"
	"kycgate/internal/tools/documents"
)

func TestCalculate(t *testing.T) {
	c := NewCalculator()

	t.Run("counts bank statements only", func(t *testing.T) {
		m, err := c.Calculate(context.Background(), tools.DocumentBatch{Documents: []tools.DocumentAnalysis{
			{DocumentType: documents.TypeBankStatement},
			{DocumentType: documents.TypeKTP},
			{DocumentType: documents.TypeBankStatement},
		}})
		require.NoError(t, err)
		assert.Equal(t, 2, m.StatementsProcessed)
		assert.Nil(t, m.EstimatedMonthlyIncome)
		assert.Equal(t, StabilityUnknown, m.IncomeStability)
		assert.NotNil(t, m.DebtIndicators)
	})

	t.Run("no statements", func(t *testing.T) {
		m, err := c.Calculate(context.Background(), tools.DocumentBatch{})
		require.NoError(t, err)
		assert.Zero(t, m.StatementsProcessed)
		assert.Contains(t, m.Notes, "No bank statements")
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := c.Calculate(ctx, tools.DocumentBatch{})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
