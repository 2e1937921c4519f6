package dataset

import (
	"math"
	"math/rand/v2"

	"github.com/YuminosukeSato/examscore/pkg/errors"
)

// DefaultSeed and DefaultTestSize reproduce the reference split.
const (
	DefaultSeed     uint64  = 42
	DefaultTestSize float64 = 0.2
)

// TrainTestSplit permutes [0, n) with a PCG source seeded by seed and returns
// the first ceil(testSize·n) permuted indices as test and the rest as train.
// The same (n, testSize, seed) always yields the same split.
func TrainTestSplit(n int, testSize float64, seed uint64) (train, test []int, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, errors.NewValidationError("test_size", "must be in (0, 1)", testSize)
	}
	nTest := int(math.Ceil(testSize * float64(n)))
	if n < 2 || nTest >= n {
		return nil, nil, errors.NewValueError("TrainTestSplit",
			"need at least one train row and one test row")
	}

	rng := rand.New(rand.NewPCG(seed, seed))
	perm := rng.Perm(n)
	return perm[nTest:], perm[:nTest], nil
}
