package classify

import "github.com/odyssey-erp/stockledger/internal/ledger"

// StoreTotal is the Full exit quantity of one storefront.
type StoreTotal struct {
	Store    ledger.Store `json:"store"`
	Quantity int          `json:"quantity"`
}

// ExitSummary aggregates exit quantities for the dashboard bar chart.
type ExitSummary struct {
	Expedicao int          `json:"expedicao"`
	Full      int          `json:"full"`
	Stores    []StoreTotal `json:"stores"`
}

// SummarizeExits totals Expedição and Full exits, then Full exits of each
// requested store in the order given.
func SummarizeExits(exits []ledger.Exit, stores []ledger.Store) ExitSummary {
	summary := ExitSummary{Stores: make([]StoreTotal, 0, len(stores))}
	byStore := make(map[ledger.Store]int)
	for _, e := range exits {
		switch e.Type {
		case ledger.ExitExpedicao:
			summary.Expedicao += e.Quantity
		case ledger.ExitFull:
			summary.Full += e.Quantity
			byStore[e.Store] += e.Quantity
		}
	}
	for _, s := range stores {
		summary.Stores = append(summary.Stores, StoreTotal{Store: s, Quantity: byStore[s]})
	}
	return summary
}
