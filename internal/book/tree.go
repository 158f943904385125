package book

import "math/bits"

// word256 is one 256-bit occupancy word of the bin index.
type word256 [4]uint64

func (w *word256) set(bit uint8)   { w[bit>>6] |= 1 << (bit & 63) }
func (w *word256) clear(bit uint8) { w[bit>>6] &^= 1 << (bit & 63) }

func (w *word256) test(bit uint8) bool {
	return w[bit>>6]&(1<<(bit&63)) != 0
}

func (w *word256) isZero() bool {
	return w[0]|w[1]|w[2]|w[3] == 0
}

// msb returns the highest set bit.
func (w *word256) msb() (uint8, bool) {
	for limb := 3; limb >= 0; limb-- {
		if v := w[limb]; v != 0 {
			return uint8(limb<<6 + 63 - bits.LeadingZeros64(v)), true
		}
	}
	return 0, false
}

// lsb returns the lowest set bit.
func (w *word256) lsb() (uint8, bool) {
	for limb := 0; limb < 4; limb++ {
		if v := w[limb]; v != 0 {
			return uint8(limb<<6 + bits.TrailingZeros64(v)), true
		}
	}
	return 0, false
}

// closestRight returns the highest set bit strictly below from.
func (w *word256) closestRight(from uint8) (uint8, bool) {
	limb := int(from >> 6)
	mask := uint64(1)<<(from&63) - 1
	if v := w[limb] & mask; v != 0 {
		return uint8(limb<<6 + 63 - bits.LeadingZeros64(v)), true
	}
	for limb--; limb >= 0; limb-- {
		if v := w[limb]; v != 0 {
			return uint8(limb<<6 + 63 - bits.LeadingZeros64(v)), true
		}
	}
	return 0, false
}

// closestLeft returns the lowest set bit strictly above from.
func (w *word256) closestLeft(from uint8) (uint8, bool) {
	limb := int(from >> 6)
	mask := ^(uint64(1)<<((from&63)+1) - 1)
	if v := w[limb] & mask; v != 0 {
		return uint8(limb<<6 + bits.TrailingZeros64(v)), true
	}
	for limb++; limb < 4; limb++ {
		if v := w[limb]; v != 0 {
			return uint8(limb<<6 + bits.TrailingZeros64(v)), true
		}
	}
	return 0, false
}

// Tree indexes the live bins of a pool over the 24-bit id space. A leaf bit
// is set exactly when that bin has outstanding shares; the two upper levels
// mark which words below them are non-empty, so nearest-bin queries touch at
// most three words in either direction. Only words that contain at least one
// set bit are allocated.
type Tree struct {
	top    word256
	mid    map[uint8]*word256
	leaves map[uint16]*word256
}

func NewTree() *Tree {
	return &Tree{
		mid:    make(map[uint8]*word256),
		leaves: make(map[uint16]*word256),
	}
}

func (t *Tree) Contains(id uint32) bool {
	leaf, ok := t.leaves[uint16(id>>8)]
	return ok && leaf.test(uint8(id))
}

// Add marks id and reports whether it was newly set.
func (t *Tree) Add(id uint32) bool {
	leafKey := uint16(id >> 8)
	leaf := t.leaves[leafKey]
	if leaf == nil {
		leaf = new(word256)
		t.leaves[leafKey] = leaf
	} else if leaf.test(uint8(id)) {
		return false
	}
	wasEmpty := leaf.isZero()
	leaf.set(uint8(id))
	if !wasEmpty {
		return true
	}

	midKey := uint8(id >> 16)
	mid := t.mid[midKey]
	if mid == nil {
		mid = new(word256)
		t.mid[midKey] = mid
	}
	if mid.isZero() {
		t.top.set(midKey)
	}
	mid.set(uint8(id >> 8))
	return true
}

// Remove clears id and reports whether it was set.
func (t *Tree) Remove(id uint32) bool {
	leafKey := uint16(id >> 8)
	leaf := t.leaves[leafKey]
	if leaf == nil || !leaf.test(uint8(id)) {
		return false
	}
	leaf.clear(uint8(id))
	if !leaf.isZero() {
		return true
	}
	delete(t.leaves, leafKey)

	midKey := uint8(id >> 16)
	mid := t.mid[midKey]
	mid.clear(uint8(id >> 8))
	if mid.isZero() {
		delete(t.mid, midKey)
		t.top.clear(midKey)
	}
	return true
}

// FindFirstRight returns the closest marked id strictly below id.
func (t *Tree) FindFirstRight(id uint32) (uint32, bool) {
	leafKey := uint16(id >> 8)
	if leaf := t.leaves[leafKey]; leaf != nil {
		if b, ok := leaf.closestRight(uint8(id)); ok {
			return uint32(leafKey)<<8 | uint32(b), true
		}
	}
	midKey := uint8(id >> 16)
	if mid := t.mid[midKey]; mid != nil {
		if m, ok := mid.closestRight(uint8(id >> 8)); ok {
			leafKey = uint16(midKey)<<8 | uint16(m)
			b, _ := t.leaves[leafKey].msb()
			return uint32(leafKey)<<8 | uint32(b), true
		}
	}
	if k, ok := t.top.closestRight(midKey); ok {
		m, _ := t.mid[k].msb()
		leafKey = uint16(k)<<8 | uint16(m)
		b, _ := t.leaves[leafKey].msb()
		return uint32(leafKey)<<8 | uint32(b), true
	}
	return 0, false
}

// FindFirstLeft returns the closest marked id strictly above id.
func (t *Tree) FindFirstLeft(id uint32) (uint32, bool) {
	leafKey := uint16(id >> 8)
	if leaf := t.leaves[leafKey]; leaf != nil {
		if b, ok := leaf.closestLeft(uint8(id)); ok {
			return uint32(leafKey)<<8 | uint32(b), true
		}
	}
	midKey := uint8(id >> 16)
	if mid := t.mid[midKey]; mid != nil {
		if m, ok := mid.closestLeft(uint8(id >> 8)); ok {
			leafKey = uint16(midKey)<<8 | uint16(m)
			b, _ := t.leaves[leafKey].lsb()
			return uint32(leafKey)<<8 | uint32(b), true
		}
	}
	if k, ok := t.top.closestLeft(midKey); ok {
		m, _ := t.mid[k].lsb()
		leafKey = uint16(k)<<8 | uint16(m)
		b, _ := t.leaves[leafKey].lsb()
		return uint32(leafKey)<<8 | uint32(b), true
	}
	return 0, false
}
