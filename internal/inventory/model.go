package inventory

type StockItem struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Available int    `json:"available"`
}

type Line struct {
	ProductID string
	Quantity  int
}

// DepletedLine reports a product whose stock cannot cover the cumulative
// quantity requested for it.
type DepletedLine struct {
	ProductID string
	Name      string
	Requested int
	Available int
}

type ReserveResult struct {
	Reserved []Line
	Depleted []DepletedLine
}

// Short reports whether at least one line could not be covered.
func (r ReserveResult) Short() bool {
	return len(r.Depleted) > 0
}
