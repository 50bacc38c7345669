package workflow

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDryRun(t *testing.T) {
	exec := &fakeExecutor{}
	engine := NewEngine(exec)

	est, err := engine.DryRun(mustParse(t, chainWorkflow), nil)
	require.NoError(t, err)
	assert.Empty(t, exec.Calls(), "dry run never invokes skills")

	require.Len(t, est.Steps, 2)
	assert.Equal(t, "A", est.Steps[0].Name)
	assert.Equal(t, "B", est.Steps[1].Name)
	assert.Equal(t, "bees", est.Steps[0].Input)
	assert.Equal(t, 4, est.Steps[0].Chars)
	assert.Equal(t, Placeholder, est.Steps[1].Input)
	assert.Equal(t, len(Placeholder), est.Steps[1].Chars)

	total := 4 + len(Placeholder)
	assert.Equal(t, total, est.TotalChars)
	assert.Equal(t, total/4+1000*2, est.TotalTokens)
	assert.InDelta(t, float64(est.TotalTokens)/1e6*DefaultPricePerMillion, est.Cost, 1e-12)

	plain := est.Plain()
	assert.Less(t, strings.Index(plain, "1. A"), strings.Index(plain, "2. B"))
}

func TestDryRunUsesBoundOutputs(t *testing.T) {
	est, err := NewEngine(&fakeExecutor{}).DryRun(mustParse(t, chainWorkflow), map[string]any{"notes": "earlier notes"})
	require.NoError(t, err)
	assert.Equal(t, "earlier notes", est.Steps[1].Input)
}

func TestDryRunCostScalesWithPrice(t *testing.T) {
	def := mustParse(t, chainWorkflow)
	cheap, err := NewEngine(&fakeExecutor{}, WithPricePerMillion(1)).DryRun(def, nil)
	require.NoError(t, err)
	dear, err := NewEngine(&fakeExecutor{}, WithPricePerMillion(10)).DryRun(def, nil)
	require.NoError(t, err)

	assert.Equal(t, cheap.TotalTokens, dear.TotalTokens)
	assert.Greater(t, dear.Cost, cheap.Cost)
}
