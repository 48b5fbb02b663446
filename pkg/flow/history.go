package flow

// remember appends the current instance to the navigation history, unless
// its leaf is flagged skip-on-back, in which case the visit is never stored
// and the previous eligible entry remains the back target. A repeat visit to
// the position already at the top refreshes its parameter snapshot instead
// of growing the history.
func (in *Instance) remember() {
	if in.pos.Leaf().SkipOnBack() {
		return
	}
	entry := HistoryEntry{Position: in.pos.Name(), Params: in.urlParams()}
	h := in.state.History
	if n := len(h); n > 0 && h[n-1].Position == entry.Position {
		h[n-1] = entry
		return
	}
	in.state.History = append(h, entry)
}

// BackURL returns the URL of the most recent visited position other than the
// current one. With no eligible history, it falls back to the current
// instance's own URL (re-rendering the current step): "back" from the first
// step is a normal occurrence, not a fault.
func (in *Instance) BackURL() (string, error) {
	h := in.state.History
	for i := len(h) - 1; i >= 0; i-- {
		if h[i].Position == in.pos.Name() {
			continue
		}
		p, err := in.pos.reg.PositionByName(h[i].Position)
		if err != nil {
			return "", err
		}
		return p.url(h[i].Params, in.state.ID)
	}
	return in.AbsoluteURL()
}
