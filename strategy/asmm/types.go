package asmm

import (
	"fmt"

	"github.com/shopspring/decimal"

	"asmm-quoter/decimalx"
)

// Quote is one two-sided quote. Spread always equals Ask - Bid.
type Quote struct {
	Bid              decimal.Decimal
	Ask              decimal.Decimal
	ReservationPrice decimal.Decimal
	Spread           decimal.Decimal
}

// Mid 报价中点，等于 ReservationPrice。
func (q Quote) Mid() decimal.Decimal {
	return decimalx.Half(q.Bid.Add(q.Ask))
}

func (q Quote) String() string {
	return fmt.Sprintf("bid=%s ask=%s reservation=%s spread=%s", q.Bid, q.Ask, q.ReservationPrice, q.Spread)
}
