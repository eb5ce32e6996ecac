package order

type Status string

const (
	StatusPending            Status = "Pending"
	StatusAwaitingPayment    Status = "Awaiting Payment"
	StatusConfirmed          Status = "Confirmed"
	StatusFailedInsufficient Status = "Failed - Insufficient Stock"
	StatusShipped            Status = "Shipped"
	StatusDelivered          Status = "Delivered"
	StatusCancelled          Status = "Cancelled"
)

var transitions = map[Status][]Status{
	StatusPending:         {StatusAwaitingPayment, StatusConfirmed, StatusCancelled},
	StatusAwaitingPayment: {StatusConfirmed, StatusFailedInsufficient, StatusCancelled},
	StatusConfirmed:       {StatusShipped},
	StatusShipped:         {StatusDelivered},
}

// CanTransition reports whether an order may move from one status to another.
// Statuses only move forward; the stock failure status is terminal.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}
