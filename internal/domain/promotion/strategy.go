package promotion

import "github.com/shopspring/decimal"

// Strategy turns an amount into its discounted amount.
type Strategy interface {
	Apply(amount decimal.Decimal) decimal.Decimal
}

// StrategyFactory builds a strategy from a promotion's discount value.
type StrategyFactory func(value decimal.Decimal) Strategy

type PercentageOfCart struct{ Percent decimal.Decimal }

func (s PercentageOfCart) Apply(amount decimal.Decimal) decimal.Decimal {
	return percentOff(amount, s.Percent)
}

type PercentageOfItem struct{ Percent decimal.Decimal }

func (s PercentageOfItem) Apply(amount decimal.Decimal) decimal.Decimal {
	return percentOff(amount, s.Percent)
}

type FixedAmountOff struct{ Amount decimal.Decimal }

func (s FixedAmountOff) Apply(amount decimal.Decimal) decimal.Decimal {
	return clampRound(amount.Sub(s.Amount))
}

// DefaultStrategies maps every promotion type to its strategy.
func DefaultStrategies() map[Type]StrategyFactory {
	return map[Type]StrategyFactory{
		TypeCartPromoCode: func(v decimal.Decimal) Strategy { return PercentageOfCart{Percent: v} },
		TypeItemDiscount:  func(v decimal.Decimal) Strategy { return PercentageOfItem{Percent: v} },
		TypeFixedAmount:   func(v decimal.Decimal) Strategy { return FixedAmountOff{Amount: v} },
	}
}

func percentOff(amount, pct decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Sub(pct.Div(hundred))
	return clampRound(amount.Mul(factor))
}

func clampRound(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d.Round(2)
}
