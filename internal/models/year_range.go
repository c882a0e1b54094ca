package models

import "fmt"

// YearRange is an inclusive window of years.
type YearRange struct {
	Start int `json:"startYear"`
	End   int `json:"endYear"`
}

// NewYearRange builds a range without validating it.
func NewYearRange(start, end int) YearRange {
	return YearRange{Start: start, End: end}
}

// Validate reports every violated bound, or nil.
func (r YearRange) Validate() []string {
	var problems []string
	if r.Start < MinYear || r.Start > MaxYear {
		problems = append(problems, fmt.Sprintf("start year %d must be between %d and %d", r.Start, MinYear, MaxYear))
	}
	if r.End < MinYear || r.End > MaxYear {
		problems = append(problems, fmt.Sprintf("end year %d must be between %d and %d", r.End, MinYear, MaxYear))
	}
	if r.Start > r.End {
		problems = append(problems, fmt.Sprintf("start year %d is after end year %d", r.Start, r.End))
	}
	return problems
}

// Contains reports whether year falls inside the range.
func (r YearRange) Contains(year int) bool {
	return year >= r.Start && year <= r.End
}

// Len is the number of years covered.
func (r YearRange) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// Years lists every year in the range in ascending order.
func (r YearRange) Years() []int {
	out := make([]int, 0, r.Len())
	for y := r.Start; y <= r.End; y++ {
		out = append(out, y)
	}
	return out
}

// Clamp pulls both ends into the accepted year bounds.
func (r YearRange) Clamp() YearRange {
	clamp := func(y int) int {
		if y < MinYear {
			return MinYear
		}
		if y > MaxYear {
			return MaxYear
		}
		return y
	}
	return YearRange{Start: clamp(r.Start), End: clamp(r.End)}
}

func (r YearRange) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}
