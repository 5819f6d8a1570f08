package model

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// ErrInvalidRange is returned for ranges that are not 1-based and ordered.
var ErrInvalidRange = eris.New("model: invalid row range")

// Range is a 1-based, inclusive span of ledger data rows.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Validate checks that the range is 1-based and ordered.
func (r Range) Validate() error {
	if r.Start < 1 {
		return eris.Wrapf(ErrInvalidRange, "start %d must be >= 1", r.Start)
	}
	if r.End < r.Start {
		return eris.Wrapf(ErrInvalidRange, "end %d must be >= start %d", r.End, r.Start)
	}
	return nil
}

// Len returns the number of rows spanned.
func (r Range) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// Clamp limits End to total rows. The returned range may be empty
// (Len() == 0) when Start lies past total.
func (r Range) Clamp(total int) Range {
	if r.End > total {
		r.End = total
	}
	return r
}

func (r Range) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}
