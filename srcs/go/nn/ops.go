package nn

import (
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

func general(t *Tensor, rows, cols int) blas32.General {
	return blas32.General{
		Rows:   rows,
		Cols:   cols,
		Stride: cols,
		Data:   t.Data,
	}
}

// matMul computes c = alpha * op(a) op(b) + beta * c.
func matMul(tA, tB bool, alpha float32, a blas32.General, b blas32.General, beta float32, c blas32.General) {
	if c.Rows == 0 || c.Cols == 0 {
		return
	}
	transA, transB := blas.NoTrans, blas.NoTrans
	if tA {
		transA = blas.Trans
	}
	if tB {
		transB = blas.Trans
	}
	blas32.Gemm(transA, transB, alpha, a, b, beta, c)
}

// addRowVector adds v to every row of m.
func addRowVector(m *Tensor, v []float32) {
	for i := 0; i < m.Rows(); i++ {
		row := m.Row(i)
		for j := range row {
			row[j] += v[j]
		}
	}
}

// sumRows adds the sum over rows of m to out.
func sumRows(out []float32, m *Tensor) {
	for i := 0; i < m.Rows(); i++ {
		for j, x := range m.Row(i) {
			out[j] += x
		}
	}
}
