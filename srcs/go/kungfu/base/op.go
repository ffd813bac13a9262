package base

import "fmt"

type OP int32

const (
	SUM OP = iota
	MIN
	MAX
	PROD
)

var opNames = map[OP]string{
	SUM:  "SUM",
	MIN:  "MIN",
	MAX:  "MAX",
	PROD: "PROD",
}

func (op OP) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return fmt.Sprintf("op(%d)", int32(op))
}

type number interface {
	~uint8 | ~int32 | ~int64 | ~float32 | ~float64
}

// Transform performs y[i] = y[i] op x[i]
func Transform(y, x *Vector, op OP) {
	Transform2(y, x, y, op)
}

// Transform2 performs z[i] = x[i] op y[i]; the three vectors must agree in Count and Type.
func Transform2(z, x, y *Vector, op OP) {
	if z.Count == 0 {
		return
	}
	switch z.Type {
	case U8:
		transform2(z.AsU8(), x.AsU8(), y.AsU8(), op)
	case I32:
		transform2(z.AsI32(), x.AsI32(), y.AsI32(), op)
	case I64:
		transform2(z.AsI64(), x.AsI64(), y.AsI64(), op)
	case F32:
		transform2(z.AsF32(), x.AsF32(), y.AsF32(), op)
	case F64:
		transform2(z.AsF64(), x.AsF64(), y.AsF64(), op)
	default:
		panic(fmt.Sprintf("unsupported dtype %s", z.Type))
	}
}

func transform2[T number](z, x, y []T, op OP) {
	switch op {
	case SUM:
		for i := range z {
			z[i] = x[i] + y[i]
		}
	case PROD:
		for i := range z {
			z[i] = x[i] * y[i]
		}
	case MIN:
		for i := range z {
			z[i] = min(x[i], y[i])
		}
	case MAX:
		for i := range z {
			z[i] = max(x[i], y[i])
		}
	default:
		panic(fmt.Sprintf("unsupported op %s", op))
	}
}
