package lz11

const (
	hashBits = 15
	hashSize = 1 << hashBits

	// maxChain bounds how many earlier positions are compared per byte.
	maxChain = 128
)

// Compress encodes src with a greedy hash-chain match finder.
// An empty src produces an empty result.
func Compress(src []byte) []byte {
	if len(src) == 0 {
		return nil
	}

	dst := make([]byte, 0, len(src)+len(src)/8+1)
	m := newMatcher(src)
	pos := 0
	for pos < len(src) {
		flagIdx := len(dst)
		dst = append(dst, 0)
		for bit := 0; bit < 8 && pos < len(src); bit++ {
			length, disp := m.find(pos)
			if length < MinMatch {
				dst = append(dst, src[pos])
				m.insert(pos)
				pos++
				continue
			}
			dst[flagIdx] |= 0x80 >> bit
			dst = appendMatch(dst, length, disp)
			for k := range length {
				m.insert(pos + k)
			}
			pos += length
		}
	}
	return dst
}

type matcher struct {
	src  []byte
	head []int32
	prev []int32
}

func newMatcher(src []byte) *matcher {
	head := make([]int32, hashSize)
	for i := range head {
		head[i] = -1
	}
	return &matcher{
		src:  src,
		head: head,
		prev: make([]int32, len(src)),
	}
}

func hash3(b []byte) uint32 {
	v := uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
	return (v * 2654435761) >> (32 - hashBits)
}

func (m *matcher) insert(pos int) {
	if pos+MinMatch > len(m.src) {
		return
	}
	h := hash3(m.src[pos:])
	m.prev[pos] = m.head[h]
	m.head[h] = int32(pos) //nolint:gosec // positions past MaxInt32 wrap negative and are never matched
}

// find returns the longest match for the bytes at pos among earlier
// positions inside the window.
func (m *matcher) find(pos int) (length, disp int) {
	if pos+MinMatch > len(m.src) {
		return 0, 0
	}
	limit := min(MaxMatch, len(m.src)-pos)
	cand := int(m.head[hash3(m.src[pos:])])
	for depth := 0; cand >= 0 && pos-cand <= WindowSize && depth < maxChain; depth++ {
		l := 0
		for l < limit && m.src[cand+l] == m.src[pos+l] {
			l++
		}
		if l > length {
			length, disp = l, pos-cand
			if l == limit {
				break
			}
		}
		cand = int(m.prev[cand])
	}
	return length, disp
}
