package command

import (
	"sniprx/internal/state"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Summary 是已平仓交易的聚合结果。盈亏恰好为 0 的交易只计入总数与总盈亏。
type Summary struct {
	TotalProfit decimal.Decimal
	TotalTrades int
	Wins        int
	Losses      int
	WinRate     decimal.Decimal // 百分比，无交易时为 0
	AvgWin      decimal.Decimal
	AvgLoss     decimal.Decimal
}

// Summarize 用十进制累加，避免浮点误差影响展示。
func Summarize(closed []state.Trade) Summary {
	total, winSum, lossSum := decimal.Zero, decimal.Zero, decimal.Zero
	wins, losses := 0, 0
	for _, t := range closed {
		p := decimal.NewFromFloat(t.Profit)
		total = total.Add(p)
		switch p.Sign() {
		case 1:
			wins++
			winSum = winSum.Add(p)
		case -1:
			losses++
			lossSum = lossSum.Add(p)
		}
	}
	s := Summary{
		TotalProfit: total,
		TotalTrades: len(closed),
		Wins:        wins,
		Losses:      losses,
		WinRate:     decimal.Zero,
		AvgWin:      decimal.Zero,
		AvgLoss:     decimal.Zero,
	}
	if len(closed) > 0 {
		s.WinRate = decimal.NewFromInt(int64(wins)).Mul(hundred).Div(decimal.NewFromInt(int64(len(closed))))
	}
	if wins > 0 {
		s.AvgWin = winSum.Div(decimal.NewFromInt(int64(wins)))
	}
	if losses > 0 {
		s.AvgLoss = lossSum.Div(decimal.NewFromInt(int64(losses)))
	}
	return s
}
