// Package cifar downloads and reads the binary version of the CIFAR-10 dataset.
// See https://www.cs.toronto.edu/~kriz/cifar.html
package cifar

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/lsds/kungfu-ddp/srcs/go/log"
	"github.com/pkg/errors"
)

const (
	URL     = "https://www.cs.toronto.edu/~kriz/cifar-10-binary.tar.gz"
	TarName = "cifar-10-binary.tar.gz"
	SubDir  = "cifar-10-batches-bin"
	SHA256  = "c4a38c50a1bc5f3a1c5537f2155ab9d68f9f25eb1ed8d9ddda3db29a59bca1dd"

	NumTrainExamples = 50000
	NumTestExamples  = 10000
	ExamplesPerFile  = 10000
	NumClasses       = 10
)

// Width, Height and Depth are the dimensions of one image.
const (
	Width  = 32
	Height = 32
	Depth  = 3

	ImageSize  = Width * Height * Depth
	recordSize = 1 + ImageSize
)

var Labels = []string{"airplane", "automobile", "bird", "cat", "deer", "dog", "frog", "horse", "ship", "truck"}

var trainFiles = []string{"data_batch_1.bin", "data_batch_2.bin", "data_batch_3.bin", "data_batch_4.bin", "data_batch_5.bin"}

const testFile = "test_batch.bin"

func batchFiles(train bool) []string {
	if train {
		return trainFiles
	}
	return []string{testFile}
}

// Dataset holds the raw pixels of a CIFAR-10 split in memory.
type Dataset struct {
	images    []byte // N x [3][32][32]
	labels    []uint8
	transform *Transform
}

// Open reads the training (or test) split from dir/cifar-10-batches-bin.
// A nil transform only scales and normalizes the pixels.
func Open(dir string, train bool, transform *Transform) (*Dataset, error) {
	if transform == nil {
		transform = &Transform{Mean: Mean, Std: Std}
	}
	ds := &Dataset{transform: transform}
	for _, name := range batchFiles(train) {
		if err := ds.readFile(filepath.Join(dir, SubDir, name)); err != nil {
			return nil, err
		}
	}
	log.Infof("loaded %s CIFAR-10 examples (%s) from %s", humanize.Comma(int64(ds.Len())), humanize.Bytes(uint64(len(ds.images))), dir)
	return ds, nil
}

func (ds *Dataset) readFile(filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return errors.Wrapf(err, "opening data file %q", filename)
	}
	defer f.Close()
	var record [recordSize]byte
	for i := 0; ; i++ {
		if _, err := io.ReadFull(f, record[:]); err != nil {
			if err == io.EOF {
				return nil
			}
			return errors.Wrapf(err, "reading example %d from %q", i, filename)
		}
		if record[0] >= NumClasses {
			return errors.Errorf("example %d of %q has invalid label %d", i, filename, record[0])
		}
		ds.labels = append(ds.labels, record[0])
		ds.images = append(ds.images, record[1:]...)
	}
}

func (ds *Dataset) Len() int { return len(ds.labels) }

// Dim is the length of one transformed example.
func (ds *Dataset) Dim() int { return ImageSize }

// Image returns the raw CHW pixels of example i.
func (ds *Dataset) Image(i int) []byte {
	return ds.images[i*ImageSize : (i+1)*ImageSize]
}

func (ds *Dataset) Label(i int) int { return int(ds.labels[i]) }

// Example writes the transformed example i, as seen in the given epoch, into dst
// and returns its label.
func (ds *Dataset) Example(epoch, i int, dst []float32) (int, error) {
	if i < 0 || i >= ds.Len() {
		return 0, errors.Errorf("example %d out of range [0, %d)", i, ds.Len())
	}
	if len(dst) != ImageSize {
		return 0, errors.Errorf("destination has %d elements, want %d", len(dst), ImageSize)
	}
	ds.transform.Apply(dst, ds.Image(i), epoch, i)
	return ds.Label(i), nil
}

func (ds *Dataset) String() string {
	return fmt.Sprintf("CIFAR-10[%d]", ds.Len())
}
