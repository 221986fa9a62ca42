package progress

// logStep is the percent distance between sampled progress log lines.
const logStep = 10

// logSampler thins progress logging. Every stage change is logged; within a
// stage only the first update past each logStep threshold is.
type logSampler struct {
	stage string
	next  int
}

func (s *logSampler) admit(u Update) bool {
	if u.Stage != s.stage {
		s.stage = u.Stage
		s.next = nextThreshold(u.Percent)
		return true
	}
	if u.Percent >= s.next {
		s.next = nextThreshold(u.Percent)
		return true
	}
	return false
}

func (s *logSampler) reset() {
	*s = logSampler{}
}

func nextThreshold(percent int) int {
	return (percent/logStep + 1) * logStep
}
