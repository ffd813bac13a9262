package cifar

import (
	"math/rand/v2"
)

// Per-channel statistics of the training split.
var (
	Mean = [Depth]float32{0.4914, 0.4822, 0.4465}
	Std  = [Depth]float32{0.2023, 0.1994, 0.2010}
)

// Transform turns raw pixels into a normalized float image, optionally with
// random-crop and horizontal-flip augmentation.
type Transform struct {
	// Padding > 0 enables a random 32x32 crop of the zero-padded image.
	Padding int
	Flip    bool
	Mean    [Depth]float32
	Std     [Depth]float32
	Seed    uint64
}

// TrainTransform is RandomCrop(32, padding=4), RandomHorizontalFlip, ToTensor, Normalize.
func TrainTransform(seed uint64) *Transform {
	return &Transform{Padding: 4, Flip: true, Mean: Mean, Std: Std, Seed: seed}
}

// Apply writes the transformed CHW image into dst. The random choices depend
// only on (Seed, epoch, index), so any worker reproduces them.
func (t *Transform) Apply(dst []float32, img []byte, epoch, index int) {
	var dx, dy int
	var flip bool
	if t.Padding > 0 || t.Flip {
		rng := rand.New(rand.NewPCG(t.Seed, uint64(epoch)<<32|uint64(uint32(index))))
		if t.Padding > 0 {
			dy = rng.IntN(2*t.Padding+1) - t.Padding
			dx = rng.IntN(2*t.Padding+1) - t.Padding
		}
		if t.Flip {
			flip = rng.IntN(2) == 1
		}
	}
	for c := 0; c < Depth; c++ {
		scale := 1 / (255 * t.Std[c])
		bias := -t.Mean[c] / t.Std[c]
		plane := img[c*Height*Width : (c+1)*Height*Width]
		out := dst[c*Height*Width : (c+1)*Height*Width]
		for y := 0; y < Height; y++ {
			sy := y + dy
			for x := 0; x < Width; x++ {
				sx := x + dx
				if flip {
					sx = Width - 1 - x + dx
				}
				var v byte
				if sy >= 0 && sy < Height && sx >= 0 && sx < Width {
					v = plane[sy*Width+sx]
				}
				out[y*Width+x] = float32(v)*scale + bias
			}
		}
	}
}
