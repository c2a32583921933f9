package correlation

// Industry template matrices are fixed 4x4 correlation matrices for the
// canonical ordering [revenue, margin, input-cost, demand]. They are
// inputs to the engine, not part of its core algorithms, and are never
// mutated after package init.
// Each template is built from a single-factor loading vector
// b=[revenue,margin,input-cost,demand] via R_ij = b_i*b_j (i!=j), R_ii=1,
// which guarantees positive definiteness whenever every |b_i|<1 (the
// matrix equals diag(1-b_i^2) + b*b^T, a PD diagonal plus a PSD rank-1
// term) while still letting each pair carry an independently-tunable
// sign and magnitude.
var (
	Manufacturing = Matrix{
		{1.0000, 0.4550, -0.4200, 0.5250},
		{0.4550, 1.0000, -0.3900, 0.4875},
		{-0.4200, -0.3900, 1.0000, -0.4500},
		{0.5250, 0.4875, -0.4500, 1.0000},
	}

	Retail = Matrix{
		{1.0000, 0.3300, -0.3000, 0.4800},
		{0.3300, 1.0000, -0.2750, 0.4400},
		{-0.3000, -0.2750, 1.0000, -0.4000},
		{0.4800, 0.4400, -0.4000, 1.0000},
	}

	Technology = Matrix{
		{1.0000, 0.5250, -0.2250, 0.5250},
		{0.5250, 1.0000, -0.2100, 0.4900},
		{-0.2250, -0.2100, 1.0000, -0.2100},
		{0.5250, 0.4900, -0.2100, 1.0000},
	}

	RealEstate = Matrix{
		{1.0000, 0.3900, -0.3575, 0.3900},
		{0.3900, 1.0000, -0.3300, 0.3600},
		{-0.3575, -0.3300, 1.0000, -0.3300},
		{0.3900, 0.3600, -0.3300, 1.0000},
	}

	FinancialServices = Matrix{
		{1.0000, 0.5850, -0.2730, 0.5304},
		{0.5850, 1.0000, -0.2625, 0.5100},
		{-0.2730, -0.2625, 1.0000, -0.2380},
		{0.5304, 0.5100, -0.2380, 1.0000},
	}
)

// Templates maps industry name to its fixed correlation template.
var Templates = map[string]Matrix{
	"manufacturing":      Manufacturing,
	"retail":             Retail,
	"technology":         Technology,
	"real_estate":        RealEstate,
	"financial_services": FinancialServices,
}
