package charts

// Slot owns at most one live chart. Replacing destroys the previous chart
// before the new one is bound so a drawing surface is never shared.
type Slot struct {
	handle Handle
}

// Replace destroys the current chart, if any, then binds the result of build.
// On error the slot is left empty.
func (s *Slot) Replace(build func() (Handle, error)) (Handle, error) {
	s.Close()
	h, err := build()
	if err != nil {
		return nil, err
	}
	s.handle = h
	return h, nil
}

// Current returns the live chart or nil.
func (s *Slot) Current() Handle {
	return s.handle
}

// Close destroys the live chart.
func (s *Slot) Close() {
	if s.handle != nil {
		s.handle.Destroy()
		s.handle = nil
	}
}
