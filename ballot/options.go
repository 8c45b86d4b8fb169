package ballot

import (
	"fmt"

	"clubgov/apperr"
)

// ValidateOptions checks a proposed option list before a ballot is created
// or its option set replaced. The list must hold more than one option and
// each option's 1-based index must equal its position: no gaps, no
// duplicates, no reordering. Runs once per creation/replacement, never
// per vote and never at tabulation time.
func ValidateOptions(options []Option) error {
	if len(options) < 2 {
		return apperr.Validation("too_few_options",
			"a ballot needs at least two options", nil)
	}
	for i, o := range options {
		want := i + 1
		if want > 255 {
			return apperr.Validation("too_many_options",
				"a ballot holds at most 255 options", nil)
		}
		if int(o.Index) != want {
			return apperr.Validation("bad_option_index",
				fmt.Sprintf("option at position %d has index %d, want %d", i, o.Index, want), nil)
		}
	}
	return nil
}
