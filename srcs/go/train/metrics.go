package train

// Metrics accumulate over the batches of one epoch on one worker.
type Metrics struct {
	LossSum float64
	Correct int
	Total   int
	Steps   int
}

func (m *Metrics) Reset() { *m = Metrics{} }

func (m *Metrics) Add(loss float32, correct, total int) {
	m.LossSum += float64(loss)
	m.Correct += correct
	m.Total += total
	m.Steps++
}

// Accuracy is Correct/Total, or 0 before any sample was seen.
func (m *Metrics) Accuracy() float64 {
	if m.Total == 0 {
		return 0
	}
	return float64(m.Correct) / float64(m.Total)
}

// MeanLoss is the average of the per-batch mean losses.
func (m *Metrics) MeanLoss() float64 {
	if m.Steps == 0 {
		return 0
	}
	return m.LossSum / float64(m.Steps)
}
