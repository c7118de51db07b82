// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package client

import "strings"

// Filter is a disjunctive row predicate: a row matches if any of the
// clauses match. The zero Filter matches everything.
type Filter struct {
	clauses []string
}

// Or creates a filter from raw clauses in column.operator.value form,
// for example "estado.eq.pendente".
func Or(clauses ...string) Filter {
	return Filter{clauses: append([]string{}, clauses...)}
}

// Eq returns a new filter with an equality clause added.
func (f Filter) Eq(column string, value string) Filter {
	return Filter{clauses: append(append([]string{}, f.clauses...), column+".eq."+value)}
}

// IsZero reports whether the filter has no clauses.
func (f Filter) IsZero() bool {
	return len(f.clauses) == 0
}

// Encode renders the predicate in the store's wire form: "(a.eq.x,b.eq.y)".
func (f Filter) Encode() string {
	return "(" + strings.Join(f.clauses, ",") + ")"
}
