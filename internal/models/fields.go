package models

import "sort"

// Fields is a partial update keyed by column name. Repositories apply only the
// columns they allow for their entity and ignore the rest.
type Fields map[string]interface{}

// Keys returns the column names in a stable order.
func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
