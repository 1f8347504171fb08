package models

import "github.com/shopspring/decimal"

func init() {
	// amounts travel as JSON numbers, e.g. {"currentBid": 501}
	decimal.MarshalJSONWithoutQuotes = true
}
