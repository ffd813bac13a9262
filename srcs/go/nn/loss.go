package nn

import (
	"math"

	"github.com/pkg/errors"
)

// CrossEntropy returns the mean softmax cross entropy of logits [B, C] against
// labels and its gradient with respect to the logits. An empty batch has loss 0.
func CrossEntropy(logits *Tensor, labels []int) (float32, *Tensor, error) {
	n, c := logits.Rows(), logits.Cols()
	if n != len(labels) {
		return 0, nil, errors.Errorf("%d logits rows for %d labels", n, len(labels))
	}
	grad := NewTensor(n, c)
	if n == 0 {
		return 0, grad, nil
	}
	var total float64
	scale := 1 / float64(n)
	for i, y := range labels {
		if y < 0 || y >= c {
			return 0, nil, errors.Errorf("label %d out of range [0, %d)", y, c)
		}
		row := logits.Row(i)
		m := float64(row[0])
		for _, v := range row[1:] {
			m = math.Max(m, float64(v))
		}
		var sum float64
		for _, v := range row {
			sum += math.Exp(float64(v) - m)
		}
		logZ := m + math.Log(sum)
		total += logZ - float64(row[y])
		g := grad.Row(i)
		for j, v := range row {
			g[j] = float32(math.Exp(float64(v)-logZ) * scale)
		}
		g[y] -= float32(scale)
	}
	return float32(total * scale), grad, nil
}

// Argmax returns the index of the largest logit of each row.
func Argmax(logits *Tensor) []int {
	out := make([]int, logits.Rows())
	for i := range out {
		row := logits.Row(i)
		best := 0
		for j, v := range row {
			if v > row[best] {
				best = j
			}
		}
		out[i] = best
	}
	return out
}

func CountCorrect(logits *Tensor, labels []int) int {
	var n int
	for i, p := range Argmax(logits) {
		if p == labels[i] {
			n++
		}
	}
	return n
}
