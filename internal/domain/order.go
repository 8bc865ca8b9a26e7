package domain

// OrderRecord is one raw row of order input.
// Positional layout: order_id, customer_id, created_at, order_sequence.
type OrderRecord struct {
	OrderID    string // not used by aggregation
	CustomerID string // customer who placed the order
	CreatedAt  string // "YYYY-MM-DD HH:MM:SS" in the record's own timezone
	Sequence   string // per-customer order number, "1" marks a first order
}

// FirstOrderSequence marks a customer's first order.
const FirstOrderSequence = "1"

// IntervalCounts holds the distinct counts for one reporting interval.
type IntervalCounts struct {
	Orderers          int // distinct customers who ordered in the interval
	FirstTimeOrderers int // distinct customers whose first order fell in the interval
}
