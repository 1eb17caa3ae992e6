package session

import "github.com/grovety/grc/pkg/grcerr"

// DefaultTagTableCapacity bounds the host-side tag table. The original C
// driver hard-codes 5 slots (MAX_TAG_CNT); this driver raises it to 16,
// which is still small enough to keep the table a plain slice scan.
const DefaultTagTableCapacity = 16

// tagTable is the per-handle ordered map from dense device class index to
// caller-supplied tag. Indices are contiguous starting at 0; a tag appears
// at most once.
type tagTable struct {
	tags     []uint32
	capacity int
}

func newTagTable(capacity int) *tagTable {
	return &tagTable{capacity: capacity}
}

func (tt *tagTable) clear() {
	tt.tags = tt.tags[:0]
}

// indexOf returns the class index for tag, or -1 if not yet trained.
func (tt *tagTable) indexOf(tag uint32) int {
	for i, t := range tt.tags {
		if t == tag {
			return i
		}
	}
	return -1
}

// append records a newly trained class. It fails if the table is full.
func (tt *tagTable) append(tag uint32) (int, error) {
	if len(tt.tags) >= tt.capacity {
		return 0, grcerr.ErrArgument
	}
	idx := len(tt.tags)
	tt.tags = append(tt.tags, tag)
	return idx, nil
}

// tagAt returns the caller-facing tag for a device class index.
func (tt *tagTable) tagAt(idx int) (uint32, bool) {
	if idx < 0 || idx >= len(tt.tags) {
		return 0, false
	}
	return tt.tags[idx], true
}

func (tt *tagTable) len() int {
	return len(tt.tags)
}

// reinitIdentity reinitialises the table to the identity map 0..n-1, as
// Upload does after loading externally trained classes.
func (tt *tagTable) reinitIdentity(n int) {
	tt.tags = make([]uint32, n)
	for i := range tt.tags {
		tt.tags[i] = uint32(i)
	}
}
