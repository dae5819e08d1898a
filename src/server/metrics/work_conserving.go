package metrics

// A work-conserving scheduler never idles while work is waiting.
type workConserving struct {
	busy    int // backlog > 0 && running
	idle    int // backlog > 0 && !running
	backlog int // backlog > 0
}

func (w *workConserving) sample(running bool, backlog int) {
	if backlog == 0 {
		return
	}
	w.backlog++
	if running {
		w.busy++
	} else {
		w.idle++
	}
}

func (w *workConserving) ratio() float64 {
	if w.backlog == 0 {
		return 1.0
	}
	return float64(w.busy) / float64(w.busy+w.idle)
}
