package provider

// PriceTable maps model name to per-million-token USD prices, grounded on
// the per-model cost tracking trace records carry. Unknown models cost
// nothing, which is a conservative default for the loop's reported totals
// rather than a crash.
type PriceTable map[string]ModelPrice

// ModelPrice is the USD cost per million input and output tokens.
type ModelPrice struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// DefaultPriceTable covers the models this module is configured to reach
// for by default (see internal/config.AgentConfig).
func DefaultPriceTable() PriceTable {
	return PriceTable{
		"claude-sonnet-4-5-20250514": {InputPerMillion: 3.00, OutputPerMillion: 15.00},
		"claude-haiku-4-5-20251001":  {InputPerMillion: 0.80, OutputPerMillion: 4.00},
	}
}

// Cost computes the USD cost of one Usage sample against the model's listed
// price, returning 0 for a model absent from the table.
func (t PriceTable) Cost(model string, u Usage) float64 {
	p, ok := t[model]
	if !ok {
		return 0
	}
	return float64(u.InputTokens)/1_000_000*p.InputPerMillion + float64(u.OutputTokens)/1_000_000*p.OutputPerMillion
}
