package notify

import (
	"casetrack/internal/domain/entity"
)

const (
	filterField    = "tag"
	filterKey      = "role"
	filterRelation = "="
	operatorOR     = "OR"
)

// BuildTargeting converts a type's role list into a targeting directive.
// nil targets every subscriber; an empty non-nil list is a ConfigurationError.
func BuildTargeting(targets []string) (entity.Targeting, error) {
	if targets == nil {
		return entity.Targeting{Broadcast: true}, nil
	}
	filters, err := Filterize(targets)
	if err != nil {
		return entity.Targeting{}, err
	}
	return entity.Targeting{Filters: filters}, nil
}

// Filterize returns one role predicate per entry joined by OR connectives:
// n roles give n predicates and n-1 connectives. Order is kept and
// duplicates are not removed.
func Filterize(roles []string) ([]entity.FilterClause, error) {
	if len(roles) == 0 {
		return nil, &ConfigurationError{Err: ErrEmptyTargets}
	}
	filters := make([]entity.FilterClause, 0, 2*len(roles)-1)
	for i, role := range roles {
		if i > 0 {
			filters = append(filters, entity.FilterClause{Operator: operatorOR})
		}
		filters = append(filters, entity.FilterClause{
			Field:    filterField,
			Key:      filterKey,
			Relation: filterRelation,
			Value:    role,
		})
	}
	return filters, nil
}
