package taxation

// Adjustable is anything that owns an ordered collection of adjustments:
// the order itself, its items and their units.
type Adjustable interface {
	// GetAdjustments returns the active adjustments of the given kind in insertion order.
	// An empty kind returns all active adjustments.
	GetAdjustments(kind AdjustmentKind) []*Adjustment
	// AddAdjustment attaches the adjustment to this adjustable
	AddAdjustment(adjustment *Adjustment)
	// RemoveAdjustment detaches the adjustment if it belongs to this adjustable
	RemoveAdjustment(adjustment *Adjustment)
	// RemoveAdjustments detaches every adjustment of the given kind,
	// including superseded ones, which can then no longer be restored
	RemoveAdjustments(kind AdjustmentKind)
	// SupersedeAdjustment detaches the adjustment but remembers it and its position
	// so that RestoreSupersededAdjustments can put it back
	SupersedeAdjustment(adjustment *Adjustment)
	// RestoreSupersededAdjustments re-attaches superseded adjustments at their original positions
	// and returns how many were restored
	RestoreSupersededAdjustments() int
	// SupersededAdjustments returns the adjustments currently superseded
	SupersededAdjustments() []*Adjustment
}

type supersededAdjustment struct {
	adjustment *Adjustment
	position   int
}

// adjustmentCollection is the storage shared by every Adjustable.
// The owner is passed in on mutation so adjustments point back at the entity, not the collection.
type adjustmentCollection struct {
	active     []*Adjustment
	superseded []supersededAdjustment
}

func (c *adjustmentCollection) list(kind AdjustmentKind) []*Adjustment {
	result := make([]*Adjustment, 0, len(c.active))
	for _, a := range c.active {
		if kind == "" || a.Kind == kind {
			result = append(result, a)
		}
	}
	return result
}

func (c *adjustmentCollection) add(owner Adjustable, a *Adjustment) {
	if a == nil {
		return
	}
	if a.adjustable == owner && c.indexOf(a) >= 0 {
		return
	}
	if a.adjustable != nil {
		a.adjustable.RemoveAdjustment(a)
	}
	a.adjustable = owner
	c.active = append(c.active, a)
}

func (c *adjustmentCollection) remove(a *Adjustment) {
	idx := c.indexOf(a)
	if idx < 0 {
		return
	}
	c.active = append(c.active[:idx], c.active[idx+1:]...)
	a.adjustable = nil
}

func (c *adjustmentCollection) removeKind(kind AdjustmentKind) {
	kept := c.active[:0]
	for _, a := range c.active {
		if a.Kind == kind {
			a.adjustable = nil
			continue
		}
		kept = append(kept, a)
	}
	clear(c.active[len(kept):])
	c.active = kept

	superseded := c.superseded[:0]
	for _, s := range c.superseded {
		if s.adjustment.Kind != kind {
			superseded = append(superseded, s)
		}
	}
	c.superseded = superseded
}

func (c *adjustmentCollection) supersede(a *Adjustment) {
	idx := c.indexOf(a)
	if idx < 0 {
		return
	}
	c.active = append(c.active[:idx], c.active[idx+1:]...)
	a.adjustable = nil
	c.superseded = append(c.superseded, supersededAdjustment{adjustment: a, position: idx})
}

// restore walks superseded entries backwards so each insert sees the list
// exactly as it was when that entry was taken out.
func (c *adjustmentCollection) restore(owner Adjustable) int {
	n := len(c.superseded)
	for i := n - 1; i >= 0; i-- {
		s := c.superseded[i]
		pos := min(s.position, len(c.active))
		c.active = append(c.active, nil)
		copy(c.active[pos+1:], c.active[pos:])
		c.active[pos] = s.adjustment
		s.adjustment.adjustable = owner
	}
	c.superseded = nil
	return n
}

func (c *adjustmentCollection) supersededList() []*Adjustment {
	result := make([]*Adjustment, len(c.superseded))
	for i, s := range c.superseded {
		result[i] = s.adjustment
	}
	return result
}

func (c *adjustmentCollection) indexOf(a *Adjustment) int {
	for i, existing := range c.active {
		if existing == a {
			return i
		}
	}
	return -1
}
