package engine

import "time"

// PriceToBeat anchors the reference price for the active market window.
//
// When the observed market slug changes the anchor resets and re-arms; the
// first available oracle price after that fills it, and the value then
// stays immutable until the next slug change. This keeps every cycle of a
// window settling against the same reference even as the oracle moves.
type PriceToBeat struct {
	slug  string
	value *float64
	setAt time.Time
}

// Observe feeds the anchor one cycle's market slug and oracle price.
// An empty slug (no market resolved this cycle) leaves the state untouched.
func (p *PriceToBeat) Observe(slug string, currentPrice *float64, now time.Time) {
	if slug != "" && slug != p.slug {
		p.slug = slug
		p.value = nil
		p.setAt = time.Time{}
	}
	if p.slug != "" && p.value == nil && currentPrice != nil {
		v := *currentPrice
		p.value = &v
		p.setAt = now
	}
}

// Value returns the anchored price, or nil while anchoring.
func (p *PriceToBeat) Value() *float64 {
	if p.value == nil {
		return nil
	}
	v := *p.value
	return &v
}

// Slug returns the market window the anchor is tracking.
func (p *PriceToBeat) Slug() string { return p.slug }

// SetAt returns when the anchor was filled.
func (p *PriceToBeat) SetAt() time.Time { return p.setAt }
