package runtime

// Suspend disables the monitor and returns a function that restores its
// previous enabled state. It implements ports.Suspendable.
func (m *Monitor) Suspend() func() {
	was := m.enabled
	m.enabled = false
	return func() { m.enabled = was }
}

// suspendAll is the reentrancy guard: it disables the monitor and every
// sibling subsystem, and returns the function restoring them in reverse
// order. Callers defer it so restoration happens on every exit path.
func (m *Monitor) suspendAll() func() {
	resumes := make([]func(), 0, len(m.siblings)+1)
	resumes = append(resumes, m.Suspend())
	for _, s := range m.siblings {
		resumes = append(resumes, s.Suspend())
	}
	return func() {
		for i := len(resumes) - 1; i >= 0; i-- {
			resumes[i]()
		}
	}
}
