// Package checkpoint stores model state in the safetensors format: an 8-byte
// little-endian header length, a JSON header, then the raw tensor data.
package checkpoint

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/lsds/kungfu-ddp/srcs/go/log"
	"github.com/lsds/kungfu-ddp/srcs/go/nn"
	"github.com/pkg/errors"
)

const (
	dtypeF32    = "F32"
	metadataKey = "__metadata__"
	maxHeader   = 100 << 20
)

type tensorInfo struct {
	DType       string   `json:"dtype"`
	Shape       []int    `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// Encode serializes state; tensors are laid out in name order.
func Encode(state map[string]*nn.Tensor) ([]byte, error) {
	names := make([]string, 0, len(state))
	for name := range state {
		if name == metadataKey {
			return nil, errors.Errorf("reserved tensor name %q", name)
		}
		names = append(names, name)
	}
	sort.Strings(names)
	header := make(map[string]interface{}, len(names)+1)
	header[metadataKey] = map[string]string{"format": "pt"}
	var offset int64
	for _, name := range names {
		n := int64(4 * len(state[name].Data))
		header[name] = tensorInfo{
			DType:       dtypeF32,
			Shape:       state[name].Shape,
			DataOffsets: [2]int64{offset, offset + n},
		}
		offset += n
	}
	h, err := json.Marshal(header)
	if err != nil {
		return nil, errors.Wrap(err, "encode header")
	}
	// pad the header with spaces so the data is 8-byte aligned
	if r := len(h) % 8; r != 0 {
		h = append(h, bytes.Repeat([]byte{' '}, 8-r)...)
	}
	buf := make([]byte, 8, 8+int64(len(h))+offset)
	binary.LittleEndian.PutUint64(buf, uint64(len(h)))
	buf = append(buf, h...)
	for _, name := range names {
		for _, v := range state[name].Data {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
		}
	}
	return buf, nil
}

// Decode parses a safetensors buffer holding F32 tensors.
func Decode(bs []byte) (map[string]*nn.Tensor, error) {
	if len(bs) < 8 {
		return nil, errors.New("file too small")
	}
	n := binary.LittleEndian.Uint64(bs[:8])
	if n > maxHeader || uint64(len(bs)-8) < n {
		return nil, errors.Errorf("invalid header length %d", n)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(bs[8:8+n], &raw); err != nil {
		return nil, errors.Wrap(err, "parse header")
	}
	data := bs[8+n:]
	state := make(map[string]*nn.Tensor, len(raw))
	for name, msg := range raw {
		if name == metadataKey {
			continue
		}
		var info tensorInfo
		if err := json.Unmarshal(msg, &info); err != nil {
			return nil, errors.Wrapf(err, "parse info of %s", name)
		}
		if info.DType != dtypeF32 {
			return nil, errors.Errorf("%s: unsupported dtype %s", name, info.DType)
		}
		begin, end := info.DataOffsets[0], info.DataOffsets[1]
		if begin < 0 || end < begin || end > int64(len(data)) {
			return nil, errors.Errorf("%s: invalid data offsets %v", name, info.DataOffsets)
		}
		t := nn.NewTensor(info.Shape...)
		if int64(4*t.Len()) != end-begin {
			return nil, errors.Errorf("%s: shape %v does not match %d bytes", name, info.Shape, end-begin)
		}
		for i := range t.Data {
			t.Data[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[begin+int64(4*i):]))
		}
		state[name] = t
	}
	return state, nil
}

// Save writes state to path, replacing any existing file.
func Save(path string, state map[string]*nn.Tensor) error {
	bs, err := Encode(state)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, bs, 0644); err != nil {
		return errors.Wrapf(err, "write checkpoint %q", path)
	}
	log.Infof("saved %d tensors (%s) to %s", len(state), humanize.Bytes(uint64(len(bs))), path)
	return nil
}

func Load(path string) (map[string]*nn.Tensor, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read checkpoint %q", path)
	}
	state, err := Decode(bs)
	if err != nil {
		return nil, errors.WithMessagef(err, "decode %q", path)
	}
	return state, nil
}
