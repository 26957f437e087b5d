package entity

import "time"

// Delivery states of a notification.
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// Notification is a rendered push notification ready to be handed to the
// push provider. It is the unit that travels through the delivery queue and
// is recorded in the delivery log.
type Notification struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	CaseID    int64     `json:"case_id"`
	Message   string    `json:"message"`
	Targeting Targeting `json:"targeting"`
	Status    string    `json:"status"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"last_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Targeting selects the subscribers a notification is delivered to.
// Broadcast targets every subscriber; otherwise Filters holds the role
// predicates interleaved with OR connectives.
type Targeting struct {
	Broadcast bool           `json:"broadcast"`
	Filters   []FilterClause `json:"filters,omitempty"`
}

// FilterClause is either a tag predicate (Field/Key/Relation/Value) or a
// logical connective (Operator). The JSON shape matches the push provider's
// filter syntax.
type FilterClause struct {
	Field    string `json:"field,omitempty"`
	Key      string `json:"key,omitempty"`
	Relation string `json:"relation,omitempty"`
	Value    string `json:"value,omitempty"`
	Operator string `json:"operator,omitempty"`
}

// IsConnective reports whether the clause is a logical operator.
func (f FilterClause) IsConnective() bool {
	return f.Operator != ""
}

// Roles returns the role values of the predicate clauses in order.
func (t Targeting) Roles() []string {
	roles := make([]string, 0, len(t.Filters))
	for _, f := range t.Filters {
		if !f.IsConnective() {
			roles = append(roles, f.Value)
		}
	}
	return roles
}
