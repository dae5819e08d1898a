package scheduler

import (
	"schedsim/src/model"
	"schedsim/src/server/kernel"

	"golang.org/x/exp/constraints"
)

type Extremum int

const (
	SMALLEST Extremum = -1
	LARGEST  Extremum = 1
)

// FindProcess returns the member of q whose key is the smallest or the
// largest. Ties go to the member met first, closest to the head.
//
// Returns model.None if q is empty.
func FindProcess[K constraints.Ordered](
	s *kernel.State, q *kernel.Queue, want Extremum, key func(*model.Process) K,
) model.Handle {
	result := model.None
	var best K

	for i := 0; i < q.Len(); i++ {
		h := q.At(i)
		k := key(s.Process(h))

		switch {
		case result == model.None:
		case want == SMALLEST && k < best:
		case want == LARGEST && k > best:
		default:
			continue
		}
		result, best = h, k
	}

	return result
}

func Lifespan(p *model.Process) int { return p.Lifespan }

func Remaining(p *model.Process) int { return p.Remaining() }

func Priority(p *model.Process) int { return p.Priority }
