package set

import "strings"

// Join joins the items of a string Set in ascending order, separated by sep.
func Join(s Set[string], sep string) string {
	return strings.Join(Sorted(s), sep)
}
