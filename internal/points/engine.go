package points

import (
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/dharmasatrya/fareengine/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Engine is safe for concurrent use. Balances are always supplied by the
// caller; the engine keeps no account state.
type Engine struct {
	mu       sync.RWMutex
	programs map[string]Program
	logger   zerolog.Logger
}

type Option func(*Engine)

func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine registers the given programs, or the embedded catalog when none
// are given.
func NewEngine(programs []Program, opts ...Option) (*Engine, error) {
	e := &Engine{
		programs: make(map[string]Program),
		logger:   log.With().Str("component", "points").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if programs == nil {
		programs = DefaultPrograms()
	}
	for _, p := range programs {
		if err := e.RegisterProgram(p); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// RegisterProgram adds or replaces a program.
func (e *Engine) RegisterProgram(p Program) error {
	if err := p.validate(); err != nil {
		return err
	}
	p.ID = strings.ToLower(p.ID)
	p.Partners = append([]TransferPartner(nil), p.Partners...)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.programs[p.ID] = p
	return nil
}

func (e *Engine) Program(id string) (Program, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.programs[strings.ToLower(id)]
	return p, ok
}

func (e *Engine) Programs() []Program {
	e.mu.RLock()
	out := make([]Program, 0, len(e.programs))
	for _, p := range e.programs {
		out = append(out, p)
	}
	e.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type Valuation struct {
	ProgramID      string  `json:"program_id"`
	Points         int     `json:"points"`
	ValuationRate  float64 `json:"valuation_rate"`
	CashEquivalent float64 `json:"cash_equivalent"`
}

// ValuePoints converts points to cash at the program's rate.
func (e *Engine) ValuePoints(points int, programID string) (Valuation, bool) {
	p, ok := e.Program(programID)
	if !ok {
		return Valuation{}, false
	}
	return Valuation{
		ProgramID:      p.ID,
		Points:         points,
		ValuationRate:  p.ValuationRate,
		CashEquivalent: cashValue(points, p.ValuationRate).InexactFloat64(),
	}, true
}

type Transfer struct {
	FromProgram string `json:"from_program"`
	ToProgram   string `json:"to_program"`
	// PointsNeeded and PointsTransferred are in the target program's points.
	PointsNeeded      int     `json:"points_needed"`
	PointsTransferred int     `json:"points_transferred"`
	SourcePoints      int     `json:"source_points"`
	Ratio             float64 `json:"ratio"`
	FeeCents          int     `json:"fee_cents"`
	TotalCost         float64 `json:"total_cost"`
	CoversNeed        bool    `json:"covers_need"`
}

// TransferRecommendation prices moving pointsNeeded points from one program
// to another. TotalCost is pointsNeeded valued at the source program's rate
// plus the fee, whatever the ratio or cap. SourcePoints is what actually
// leaves the source balance.
func (e *Engine) TransferRecommendation(fromProgram, toProgram string, pointsNeeded int) (Transfer, bool) {
	from, ok := e.Program(fromProgram)
	if !ok {
		return Transfer{}, false
	}
	to, ok := e.Program(toProgram)
	if !ok || pointsNeeded <= 0 {
		return Transfer{}, false
	}
	partner, ok := from.partner(to.ID)
	if !ok || !partner.Active {
		return Transfer{}, false
	}
	if pointsNeeded < partner.MinimumTransfer {
		return Transfer{}, false
	}

	transferred := pointsNeeded
	if partner.MaximumTransfer > 0 && transferred > partner.MaximumTransfer {
		transferred = partner.MaximumTransfer
	}
	source := sourcePoints(transferred, partner.Ratio)

	cost := cashValue(pointsNeeded, from.ValuationRate).
		Add(decimal.NewFromInt(int64(partner.FeeCents)).Div(hundred))

	return Transfer{
		FromProgram:       from.ID,
		ToProgram:         to.ID,
		PointsNeeded:      pointsNeeded,
		PointsTransferred: transferred,
		SourcePoints:      source,
		Ratio:             partner.Ratio,
		FeeCents:          partner.FeeCents,
		TotalCost:         cost.Round(2).InexactFloat64(),
		CoversNeed:        transferred >= pointsNeeded,
	}, true
}

type PaymentMethod string

const (
	PayCash   PaymentMethod = "cash"
	PayPoints PaymentMethod = "points"
)

type PricingDecision struct {
	Recommendation PaymentMethod        `json:"recommendation"`
	CashPrice      float64              `json:"cash_price"`
	PointsOption   *models.PointsOption `json:"points_option,omitempty"`
	// PointsCost is the cash equivalent of the points plus any co-payment.
	PointsCost float64 `json:"points_cost,omitempty"`
	// Savings fields are set only when points are recommended.
	Savings           float64 `json:"savings,omitempty"`
	SavingsPercentage float64 `json:"savings_percentage,omitempty"`
	Reason            string  `json:"reason"`
}

// OptimizePricing compares the cash price with the cheapest points option
// the caller can afford. Points win only when strictly cheaper.
func (e *Engine) OptimizePricing(pricing models.Pricing, balances []Balance) PricingDecision {
	held := balanceIndex(balances)
	decision := PricingDecision{
		Recommendation: PayCash,
		CashPrice:      pricing.TotalPrice,
	}

	var (
		best     *models.PointsOption
		bestCost decimal.Decimal
	)
	for i := range pricing.PointsOptions {
		opt := pricing.PointsOptions[i]
		p, ok := e.Program(opt.ProgramID)
		if !ok || opt.PointsRequired <= 0 || held[p.ID] < opt.PointsRequired {
			continue
		}
		cost := cashValue(opt.PointsRequired, p.ValuationRate).Add(decimal.NewFromFloat(opt.CashCopay))
		if best == nil || cost.LessThan(bestCost) {
			best, bestCost = &opt, cost
		}
	}

	if best == nil {
		decision.Reason = "No points option is covered by the available balances"
		return decision
	}

	cash := decimal.NewFromFloat(pricing.TotalPrice)
	decision.PointsOption = best
	decision.PointsCost = bestCost.Round(2).InexactFloat64()
	if !bestCost.LessThan(cash) {
		decision.Reason = "Paying cash costs no more than the value of the points"
		return decision
	}

	savings := cash.Sub(bestCost)
	decision.Recommendation = PayPoints
	decision.Savings = savings.Round(2).InexactFloat64()
	if cash.IsPositive() {
		decision.SavingsPercentage = savings.Div(cash).Mul(hundred).Round(2).InexactFloat64()
	}
	decision.Reason = "Redeeming " + best.ProgramID + " points is cheaper than paying cash"
	return decision
}

// FindTransferOpportunities lists the balances that can fully fund
// pointsNeeded in the target program, cheapest first. Equal costs keep the
// order of balances.
func (e *Engine) FindTransferOpportunities(targetProgram string, pointsNeeded int, balances []Balance) []Transfer {
	var out []Transfer
	for _, b := range balances {
		if strings.EqualFold(b.ProgramID, targetProgram) {
			continue
		}
		t, ok := e.TransferRecommendation(b.ProgramID, targetProgram, pointsNeeded)
		if !ok || !t.CoversNeed || b.Points < t.SourcePoints {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TotalCost < out[j].TotalCost })

	e.logger.Debug().
		Str("target", targetProgram).
		Int("points_needed", pointsNeeded).
		Int("opportunities", len(out)).
		Msg("transfer opportunities evaluated")
	return out
}

type Redemption struct {
	ProgramID string `json:"program_id"`
	// RedemptionValue is the cents per point actually realized.
	RedemptionValue float64 `json:"redemption_value"`
	BaselineValue   float64 `json:"baseline_value"`
	IsGoodValue     bool    `json:"is_good_value"`
	ValueMultiplier float64 `json:"value_multiplier"`
}

// AnalyzeRedemption reports how a redemption compares with the program's
// valuation rate. It errors for unknown programs because callers are
// expected to pass a program they already resolved.
func (e *Engine) AnalyzeRedemption(pointsUsed int, cashValue float64, programID string) (Redemption, error) {
	p, ok := e.Program(programID)
	if !ok {
		return Redemption{}, ErrUnknownProgram
	}
	r := Redemption{ProgramID: p.ID, BaselineValue: p.ValuationRate}
	if pointsUsed <= 0 {
		return r, nil
	}

	realized := decimal.NewFromFloat(cashValue).Mul(hundred).Div(decimal.NewFromInt(int64(pointsUsed)))
	baseline := decimal.NewFromFloat(p.ValuationRate)
	r.RedemptionValue = realized.InexactFloat64()
	r.IsGoodValue = realized.GreaterThan(baseline)
	r.ValueMultiplier = realized.Div(baseline).InexactFloat64()
	return r, nil
}

func cashValue(points int, rate float64) decimal.Decimal {
	return decimal.NewFromInt(int64(points)).Mul(decimal.NewFromFloat(rate)).Div(hundred)
}

// sourcePoints is ceil(target / ratio). The quotient is rounded to four
// places first so repeating ratios such as 1:3 do not overshoot.
func sourcePoints(target int, ratio float64) int {
	q := decimal.NewFromInt(int64(target)).Div(decimal.NewFromFloat(ratio))
	return int(q.Round(4).Ceil().IntPart())
}

func balanceIndex(balances []Balance) map[string]int {
	held := make(map[string]int, len(balances))
	for _, b := range balances {
		held[strings.ToLower(b.ProgramID)] += b.Points
	}
	return held
}
