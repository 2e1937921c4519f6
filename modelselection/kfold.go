// Package modelselection provides hyperparameter grids, k-fold splitting and
// an exhaustive grid search scored by cross-validated R².
package modelselection

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// Splitter yields cross-validation folds over n samples.
type Splitter interface {
	Split(nSamples int) []Fold
	GetNSplits() int
}

// Fold is one train/validation partition.
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// KFold splits samples into NSplits contiguous folds. The first
// nSamples%NSplits folds get one extra sample.
type KFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed uint64
}

// NewKFold creates a k-fold splitter. nSplits below 2 means 3.
func NewKFold(nSplits int, shuffle bool, randomSeed uint64) *KFold {
	if nSplits < 2 {
		nSplits = 3
	}
	return &KFold{NSplits: nSplits, Shuffle: shuffle, RandomSeed: randomSeed}
}

// GetNSplits returns the number of folds.
func (kf *KFold) GetNSplits() int {
	return kf.NSplits
}

// Split returns NSplits folds. Each sample appears in exactly one test fold.
func (kf *KFold) Split(nSamples int) []Fold {
	indices := make([]int, nSamples)
	for i := range indices {
		indices[i] = i
	}
	if kf.Shuffle {
		r := rand.New(rand.NewPCG(kf.RandomSeed, kf.RandomSeed))
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	folds := make([]Fold, kf.NSplits)
	foldSize := nSamples / kf.NSplits
	remainder := nSamples % kf.NSplits

	start := 0
	for i := 0; i < kf.NSplits; i++ {
		size := foldSize
		if i < remainder {
			size++
		}
		end := start + size

		test := make([]int, size)
		copy(test, indices[start:end])
		train := make([]int, 0, nSamples-size)
		train = append(train, indices[:start]...)
		train = append(train, indices[end:]...)

		folds[i] = Fold{TrainIndices: train, TestIndices: test}
		start = end
	}
	return folds
}

// TakeRows copies the listed rows of X and y.
func TakeRows(X, y mat.Matrix, indices []int) (*mat.Dense, *mat.Dense) {
	_, xCols := X.Dims()
	_, yCols := y.Dims()
	xs := mat.NewDense(len(indices), xCols, nil)
	ys := mat.NewDense(len(indices), yCols, nil)
	for i, idx := range indices {
		for j := 0; j < xCols; j++ {
			xs.Set(i, j, X.At(idx, j))
		}
		for j := 0; j < yCols; j++ {
			ys.Set(i, j, y.At(idx, j))
		}
	}
	return xs, ys
}

// CVResult is the cross-validation outcome of one parameter combination.
type CVResult struct {
	Params     map[string]interface{}
	FoldScores []float64
	Err        error
}

// MeanScore returns the mean fold score, or NaN for a failed combination.
func (r *CVResult) MeanScore() float64 {
	if r.Err != nil || len(r.FoldScores) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, s := range r.FoldScores {
		sum += s
	}
	return sum / float64(len(r.FoldScores))
}

// StdScore returns the population standard deviation of the fold scores.
func (r *CVResult) StdScore() float64 {
	if r.Err != nil || len(r.FoldScores) == 0 {
		return math.NaN()
	}
	mean := r.MeanScore()
	sumSq := 0.0
	for _, s := range r.FoldScores {
		d := s - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(r.FoldScores)))
}
