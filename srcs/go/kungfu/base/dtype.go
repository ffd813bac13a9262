package base

import "fmt"

type DataType int32

const (
	U8 DataType = iota
	I32
	I64
	F32
	F64
)

var dtypeSizes = map[DataType]int{
	U8:  1,
	I32: 4,
	I64: 8,
	F32: 4,
	F64: 8,
}

func (t DataType) Size() int {
	return dtypeSizes[t]
}

var dtypeNames = map[DataType]string{
	U8:  "u8",
	I32: "i32",
	I64: "i64",
	F32: "f32",
	F64: "f64",
}

func (t DataType) String() string {
	if name, ok := dtypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("dtype(%d)", int32(t))
}
