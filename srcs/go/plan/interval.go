package plan

// Interval represents the interval of integers [Begin, End)
type Interval struct {
	Begin int
	End   int
}

func (i Interval) Len() int { return i.End - i.Begin }

// EvenPartition parts an Interval into k parts such that the length of each part differ at most 1
func EvenPartition(r Interval, k int) []Interval {
	quo, rem := divide(r.Len(), k)
	parts := make([]Interval, 0, k)
	offset := r.Begin
	for i := 0; i < k; i++ {
		n := quo
		if i < rem {
			n++
		}
		parts = append(parts, Interval{Begin: offset, End: offset + n})
		offset += n
	}
	return parts
}

func divide(a, b int) (int, int) {
	q := a / b
	return q, a - b*q
}

// CeilDiv returns ceil(a / b) for positive b.
func CeilDiv(a, b int) int {
	return (a + b - 1) / b
}
