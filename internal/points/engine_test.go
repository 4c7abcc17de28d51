package points_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharmasatrya/fareengine/internal/models"
	"github.com/dharmasatrya/fareengine/internal/points"
)

func testPrograms() []points.Program {
	return []points.Program{
		{
			ID: "bank", Name: "Bank Rewards", Type: points.CreditCard, ValuationRate: 2.0,
			Partners: []points.TransferPartner{
				{ProgramID: "air", Ratio: 1, MinimumTransfer: 1000, Active: true},
				{ProgramID: "hotel", Ratio: 2, MinimumTransfer: 1000, Active: true},
				{ProgramID: "closed", Ratio: 1, Active: false},
			},
		},
		{
			ID: "card", Name: "Card Points", Type: points.CreditCard, ValuationRate: 1.0,
			Partners: []points.TransferPartner{
				{ProgramID: "air", Ratio: 1, MinimumTransfer: 1000, MaximumTransfer: 20000, FeeCents: 500, Active: true},
			},
		},
		{ID: "air", Name: "Air Miles", Type: points.Airline, ValuationRate: 1.3},
		{ID: "hotel", Name: "Hotel Points", Type: points.Hotel, ValuationRate: 0.5},
		{ID: "closed", Name: "Closed Air", Type: points.Airline, ValuationRate: 1.5},
	}
}

func newEngine(t *testing.T) *points.Engine {
	t.Helper()
	e, err := points.NewEngine(testPrograms())
	require.NoError(t, err)
	return e
}

func TestValuePoints(t *testing.T) {
	e := newEngine(t)

	v, ok := e.ValuePoints(25000, "air")
	require.True(t, ok)
	assert.Equal(t, 325.0, v.CashEquivalent)
	assert.Equal(t, 1.3, v.ValuationRate)

	_, ok = e.ValuePoints(1000, "nope")
	assert.False(t, ok)

	prev := -1.0
	for p := 0; p <= 100000; p += 3333 {
		v, _ := e.ValuePoints(p, "AIR")
		assert.GreaterOrEqual(t, v.CashEquivalent, prev)
		prev = v.CashEquivalent
	}
}

func TestRegisterProgram_RejectsNonPositiveRate(t *testing.T) {
	e := newEngine(t)

	err := e.RegisterProgram(points.Program{ID: "free", Type: points.Airline, ValuationRate: 0})
	assert.ErrorIs(t, err, points.ErrInvalidRate)

	err = e.RegisterProgram(points.Program{ID: "neg", Type: points.Airline, ValuationRate: -1})
	assert.ErrorIs(t, err, points.ErrInvalidRate)

	err = e.RegisterProgram(points.Program{ID: "odd", Type: "casino", ValuationRate: 1})
	assert.ErrorIs(t, err, points.ErrInvalidProgram)

	require.NoError(t, e.RegisterProgram(points.Program{ID: "New", Type: points.Hotel, ValuationRate: 0.7}))
	_, ok := e.Program("new")
	assert.True(t, ok)
}

func TestTransferRecommendation(t *testing.T) {
	e := newEngine(t)

	tr, ok := e.TransferRecommendation("bank", "air", 25000)
	require.True(t, ok)
	assert.Equal(t, 25000, tr.SourcePoints)
	assert.Equal(t, 500.0, tr.TotalCost, "valued at the source program's rate")
	assert.True(t, tr.CoversNeed)

	tr, ok = e.TransferRecommendation("bank", "hotel", 25001)
	require.True(t, ok)
	assert.Equal(t, 12501, tr.SourcePoints)
	assert.Equal(t, 500.02, tr.TotalCost, "ratio does not change the price")

	_, ok = e.TransferRecommendation("bank", "air", 999)
	assert.False(t, ok, "below the minimum transfer")

	_, ok = e.TransferRecommendation("bank", "closed", 5000)
	assert.False(t, ok, "inactive partner")

	_, ok = e.TransferRecommendation("air", "bank", 5000)
	assert.False(t, ok, "not a listed partner")

	_, ok = e.TransferRecommendation("ghost", "air", 5000)
	assert.False(t, ok)
}

func TestTransferRecommendation_FeeAndCap(t *testing.T) {
	e := newEngine(t)

	tr, ok := e.TransferRecommendation("card", "air", 10000)
	require.True(t, ok)
	assert.Equal(t, 105.0, tr.TotalCost)

	tr, ok = e.TransferRecommendation("card", "air", 30000)
	require.True(t, ok)
	assert.Equal(t, 20000, tr.PointsTransferred)
	assert.False(t, tr.CoversNeed)
	assert.Equal(t, 20000, tr.SourcePoints)
	assert.Equal(t, 305.0, tr.TotalCost, "priced on the points needed, not the capped amount")
}

func TestTransferRecommendation_CostIncreasesWithPoints(t *testing.T) {
	e := newEngine(t)

	tests := []struct {
		from, to string
		step     int
	}{
		{"bank", "air", 1750},
		{"bank", "hotel", 1},
		{"card", "air", 1},
	}
	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			prev := -1.0
			for needed := 1000; needed <= 1000+40*tt.step; needed += tt.step {
				tr, ok := e.TransferRecommendation(tt.from, tt.to, needed)
				require.True(t, ok)
				assert.Greater(t, tr.TotalCost, prev, "needed=%d", needed)
				prev = tr.TotalCost
			}
		})
	}

	// Capped transfers keep rising with the need.
	capped, ok := e.TransferRecommendation("card", "air", 25000)
	require.True(t, ok)
	more, ok := e.TransferRecommendation("card", "air", 25001)
	require.True(t, ok)
	assert.Greater(t, more.TotalCost, capped.TotalCost)
}

func TestTransferRecommendation_DefaultCatalogRatios(t *testing.T) {
	e, err := points.NewEngine(nil)
	require.NoError(t, err)

	a, ok := e.TransferRecommendation("amex_mr", "hilton_honors", 25001)
	require.True(t, ok)
	b, ok := e.TransferRecommendation("amex_mr", "hilton_honors", 25002)
	require.True(t, ok)
	assert.Equal(t, 500.02, a.TotalCost)
	assert.Equal(t, 500.04, b.TotalCost)

	tr, ok := e.TransferRecommendation("marriott_bonvoy", "united", 3000)
	require.True(t, ok)
	assert.Equal(t, 9000, tr.SourcePoints, "3:1 transfers send exactly three points per mile")
	assert.Equal(t, 24.0, tr.TotalCost)
}

func TestOptimizePricing(t *testing.T) {
	e := newEngine(t)
	pricing := models.NewPricing(400, 50, 0, "USD")
	pricing.PointsOptions = []models.PointsOption{
		{ProgramID: "air", PointsRequired: 25000, CashCopay: 50},
		{ProgramID: "hotel", PointsRequired: 60000, CashCopay: 0},
	}

	tests := []struct {
		name     string
		balances []points.Balance
		want     points.PaymentMethod
		program  string
		savings  float64
	}{
		{
			name:     "no balances",
			balances: nil,
			want:     points.PayCash,
		},
		{
			name:     "air affordable",
			balances: []points.Balance{{ProgramID: "air", Points: 30000}},
			want:     points.PayPoints,
			program:  "air",
			savings:  75,
		},
		{
			name:     "cheapest affordable wins",
			balances: []points.Balance{{ProgramID: "air", Points: 30000}, {ProgramID: "hotel", Points: 60000}},
			want:     points.PayPoints,
			program:  "hotel",
			savings:  150,
		},
		{
			name:     "insufficient balance",
			balances: []points.Balance{{ProgramID: "air", Points: 24999}},
			want:     points.PayCash,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := e.OptimizePricing(pricing, tt.balances)
			assert.Equal(t, tt.want, d.Recommendation)
			assert.Equal(t, 450.0, d.CashPrice)
			if tt.want == points.PayPoints {
				require.NotNil(t, d.PointsOption)
				assert.Equal(t, tt.program, d.PointsOption.ProgramID)
				assert.Equal(t, tt.savings, d.Savings)
				assert.Greater(t, d.SavingsPercentage, 0.0)
			} else {
				assert.Zero(t, d.Savings)
				assert.Zero(t, d.SavingsPercentage)
			}
		})
	}
}

func TestOptimizePricing_TieGoesToCash(t *testing.T) {
	e := newEngine(t)
	pricing := models.NewPricing(325, 0, 0, "USD")
	pricing.PointsOptions = []models.PointsOption{{ProgramID: "air", PointsRequired: 25000}}

	d := e.OptimizePricing(pricing, []points.Balance{{ProgramID: "air", Points: 25000}})
	assert.Equal(t, points.PayCash, d.Recommendation)
	assert.Equal(t, 325.0, d.PointsCost)
	assert.Zero(t, d.Savings)
}

func TestFindTransferOpportunities(t *testing.T) {
	e := newEngine(t)
	balances := []points.Balance{
		{ProgramID: "bank", Points: 50000},
		{ProgramID: "air", Points: 100000},
		{ProgramID: "card", Points: 15000},
		{ProgramID: "hotel", Points: 90000},
	}

	got := e.FindTransferOpportunities("air", 12000, balances)
	require.Len(t, got, 2)
	assert.Equal(t, "card", got[0].FromProgram)
	assert.Equal(t, 125.0, got[0].TotalCost)
	assert.Equal(t, "bank", got[1].FromProgram)
	assert.Equal(t, 240.0, got[1].TotalCost)

	got = e.FindTransferOpportunities("air", 30000, balances)
	require.Len(t, got, 1, "card is capped and short of balance")
	assert.Equal(t, "bank", got[0].FromProgram)

	assert.Empty(t, e.FindTransferOpportunities("air", 500, balances))
}

func TestAnalyzeRedemption(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.RegisterProgram(points.Program{ID: "mid", Type: points.Airline, ValuationRate: 1.5}))

	r, err := e.AnalyzeRedemption(10000, 200, "mid")
	require.NoError(t, err)
	assert.Equal(t, 2.0, r.RedemptionValue)
	assert.True(t, r.IsGoodValue)
	assert.InDelta(t, 1.33, r.ValueMultiplier, 0.01)
	assert.Equal(t, 1.5, r.BaselineValue)

	r, err = e.AnalyzeRedemption(0, 200, "mid")
	require.NoError(t, err)
	assert.Zero(t, r.RedemptionValue)
	assert.False(t, r.IsGoodValue)
	assert.Zero(t, r.ValueMultiplier)

	_, err = e.AnalyzeRedemption(10000, 200, "ghost")
	assert.ErrorIs(t, err, points.ErrUnknownProgram)
}

func TestDefaultCatalog(t *testing.T) {
	e, err := points.NewEngine(nil)
	require.NoError(t, err)

	for _, p := range e.Programs() {
		assert.Greater(t, p.ValuationRate, 0.0, p.ID)
		for _, partner := range p.Partners {
			_, ok := e.Program(partner.ProgramID)
			assert.True(t, ok, "%s lists unknown partner %s", p.ID, partner.ProgramID)
		}
	}

	_, ok := e.TransferRecommendation("chase_ur", "united", 30000)
	assert.True(t, ok)
	_, ok = e.TransferRecommendation("capital_one", "american", 30000)
	assert.False(t, ok)
}

func TestLoadCatalog(t *testing.T) {
	_, err := points.LoadCatalog(strings.NewReader("version: x\nprograms:\n  - {id: a, name: A, type: airline, rate: 0}\n"))
	assert.ErrorIs(t, err, points.ErrInvalidRate)

	_, err = points.LoadCatalog(strings.NewReader("programs: []\n"))
	assert.Error(t, err)

	programs, err := points.LoadCatalog(strings.NewReader("version: x\nprograms:\n  - {id: a, name: A, type: airline, rate: 1.1}\n"))
	require.NoError(t, err)
	require.Len(t, programs, 1)
	assert.Equal(t, 1.1, programs[0].ValuationRate)
}
