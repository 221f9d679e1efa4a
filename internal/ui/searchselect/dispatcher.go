package searchselect

// Closer is an open dropdown the Dispatcher can dismiss.
type Closer interface {
	ID() int
	Close()
}

// Dispatcher tracks the one dropdown open in a session and closes it on
// outside pointer presses and Escape. Fields claim it when they open, so
// at most one dropdown is open at a time. A nil *Dispatcher is inert.
type Dispatcher struct {
	open Closer
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Claim marks c as the open dropdown, closing any other.
func (d *Dispatcher) Claim(c Closer) {
	if d == nil {
		return
	}
	prev := d.open
	d.open = c
	if prev != nil && prev.ID() != c.ID() {
		prev.Close()
	}
}

// Release forgets c if it is the open dropdown.
func (d *Dispatcher) Release(c Closer) {
	if d == nil || d.open == nil {
		return
	}
	if d.open.ID() == c.ID() {
		d.open = nil
	}
}

// Open returns the id of the open dropdown.
func (d *Dispatcher) Open() (int, bool) {
	if d == nil || d.open == nil {
		return 0, false
	}
	return d.open.ID(), true
}

// PointerDown routes a press on field target (NoTarget for empty space).
// It closes the open dropdown unless the press landed on it and reports
// whether it closed anything.
func (d *Dispatcher) PointerDown(target int) bool {
	if d == nil || d.open == nil || d.open.ID() == target {
		return false
	}
	d.open.Close()
	return true
}

// Escape closes the open dropdown, if any.
func (d *Dispatcher) Escape() bool {
	if d == nil || d.open == nil {
		return false
	}
	d.open.Close()
	return true
}

// NoTarget is the PointerDown target for presses outside every field.
const NoTarget = -1
