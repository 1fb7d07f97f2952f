package engine

import (
	"container/heap"
	"fmt"
	"strings"
)

// BPEConfig configures a BPE model.
type BPEConfig struct {
	Vocab  Vocab
	Merges []Merge
	// Extra holds tokens that merges and initial symbols may resolve to
	// without counting towards the model vocabulary, such as added tokens.
	Extra Vocab
	// UnkToken replaces characters missing from the vocabulary. When empty
	// such characters are dropped.
	UnkToken string
	// FuseUnk collapses consecutive unknown characters into one UnkToken.
	FuseUnk bool
	// ByteFallback emits <0xXX> tokens for missing characters when the
	// vocabulary has them.
	ByteFallback            bool
	ContinuingSubwordPrefix string
	EndOfWordSuffix         string
}

type mergeRule struct {
	rank int
	id   uint32
}

// BPE is a byte-pair-encoding model: a vocabulary plus ranked merge rules.
type BPE struct {
	vocab        Vocab
	extra        Vocab
	inv          map[uint32]string
	merges       map[[2]uint32]mergeRule
	unk          string
	unkID        uint32
	hasUnk       bool
	fuseUnk      bool
	byteFallback bool
	prefix       string
	suffix       string
}

// NewBPE validates cfg and builds the merge table. Every merge must reference
// tokens of Vocab or Extra on both sides and produce one of them. A pair
// listed twice keeps its last rank.
func NewBPE(cfg BPEConfig) (*BPE, error) {
	if cfg.Vocab == nil {
		cfg.Vocab = Vocab{}
	}
	inv := cfg.Vocab.inverse()
	for id, tok := range cfg.Extra.inverse() {
		if _, ok := inv[id]; !ok {
			inv[id] = tok
		}
	}
	m := &BPE{
		vocab:        cfg.Vocab,
		extra:        cfg.Extra,
		inv:          inv,
		merges:       make(map[[2]uint32]mergeRule, len(cfg.Merges)),
		fuseUnk:      cfg.FuseUnk,
		byteFallback: cfg.ByteFallback,
		prefix:       cfg.ContinuingSubwordPrefix,
		suffix:       cfg.EndOfWordSuffix,
	}
	if cfg.UnkToken != "" {
		id, ok := cfg.Vocab[cfg.UnkToken]
		if !ok {
			return nil, fmt.Errorf("%w: unk token %q", ErrNotInVocab, cfg.UnkToken)
		}
		m.unk, m.unkID, m.hasUnk = cfg.UnkToken, id, true
	}

	for rank, mg := range cfg.Merges {
		left, ok := m.lookup(mg[0])
		if !ok {
			return nil, fmt.Errorf("%w: %q (merge %d)", ErrNotInVocab, mg[0], rank)
		}
		right, ok := m.lookup(mg[1])
		if !ok {
			return nil, fmt.Errorf("%w: %q (merge %d)", ErrNotInVocab, mg[1], rank)
		}
		merged := mg[0] + strings.TrimPrefix(mg[1], m.prefix)
		id, ok := m.lookup(merged)
		if !ok {
			return nil, fmt.Errorf("%w: %q (merge %d)", ErrNotInVocab, merged, rank)
		}
		m.merges[[2]uint32{left, right}] = mergeRule{rank: rank, id: id}
	}

	return m, nil
}

func (m *BPE) lookup(tok string) (uint32, bool) {
	if id, ok := m.vocab[tok]; ok {
		return id, true
	}
	id, ok := m.extra[tok]
	return id, ok
}

func (m *BPE) idToToken(id uint32) (string, bool) {
	s, ok := m.inv[id]
	return s, ok
}

func (m *BPE) tokenToID(tok string) (uint32, bool) {
	id, ok := m.vocab[tok]
	return id, ok
}

func (m *BPE) size() int {
	return len(m.vocab)
}

// tokenize encodes one pre-tokenized word.
func (m *BPE) tokenize(word string) []token {
	ids := m.initialSymbols(word)
	ids = m.applyMerges(ids)

	out := make([]token, len(ids))
	for i, id := range ids {
		v := m.inv[id]
		if m.hasUnk && id == m.unkID {
			v = m.unk
		}
		out[i] = token{id: id, value: v}
	}

	return out
}

func (m *BPE) initialSymbols(word string) []uint32 {
	runes := []rune(word)
	ids := make([]uint32, 0, len(runes))
	lastUnk := false
	for i, r := range runes {
		s := string(r)
		if i > 0 {
			s = m.prefix + s
		}
		if i == len(runes)-1 {
			s += m.suffix
		}
		if id, ok := m.lookup(s); ok {
			ids = append(ids, id)
			lastUnk = false
			continue
		}
		if m.byteFallback {
			if fb, ok := m.fallbackBytes(string(r)); ok {
				ids = append(ids, fb...)
				lastUnk = false
				continue
			}
		}
		if !m.hasUnk {
			continue
		}
		if m.fuseUnk && lastUnk {
			continue
		}
		ids = append(ids, m.unkID)
		lastUnk = true
	}

	return ids
}

func (m *BPE) fallbackBytes(s string) ([]uint32, bool) {
	ids := make([]uint32, 0, len(s))
	for i := 0; i < len(s); i++ {
		id, ok := m.vocab[fmt.Sprintf("<0x%02X>", s[i])]
		if !ok {
			return nil, false
		}
		ids = append(ids, id)
	}

	return ids, true
}

// symbol is a node of the doubly linked list applyMerges works on.
type symbol struct {
	id         uint32
	prev, next int
	dead       bool
}

// mergeCand is a queued merge of the symbol at pos with its right neighbour.
// It is stale once either side no longer holds left/right.
type mergeCand struct {
	rank        int
	pos         int
	left, right uint32
}

// mergeQueue is a min-heap of candidates by rank, then by position.
type mergeQueue []mergeCand

func (q mergeQueue) Len() int { return len(q) }

func (q mergeQueue) Less(i, j int) bool {
	if q[i].rank != q[j].rank {
		return q[i].rank < q[j].rank
	}
	return q[i].pos < q[j].pos
}

func (q mergeQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *mergeQueue) Push(x any) { *q = append(*q, x.(mergeCand)) }

func (q *mergeQueue) Pop() any {
	old := *q
	c := old[len(old)-1]
	*q = old[:len(old)-1]
	return c
}

// applyMerges repeatedly merges the leftmost adjacent pair with the lowest
// rank until no rule applies. Merged symbols collapse into their left node,
// so node indices stay in text order.
func (m *BPE) applyMerges(ids []uint32) []uint32 {
	if len(ids) < 2 {
		return ids
	}

	syms := make([]symbol, len(ids))
	for i, id := range ids {
		syms[i] = symbol{id: id, prev: i - 1, next: i + 1}
	}
	syms[len(syms)-1].next = -1

	q := make(mergeQueue, 0, len(ids))
	enqueue := func(pos int) {
		next := syms[pos].next
		if next < 0 {
			return
		}
		pair := [2]uint32{syms[pos].id, syms[next].id}
		if rule, ok := m.merges[pair]; ok {
			heap.Push(&q, mergeCand{rank: rule.rank, pos: pos, left: pair[0], right: pair[1]})
		}
	}
	for i := 0; i < len(syms)-1; i++ {
		enqueue(i)
	}

	for q.Len() > 0 {
		c := heap.Pop(&q).(mergeCand)
		s := &syms[c.pos]
		if s.dead || s.next < 0 || s.id != c.left || syms[s.next].id != c.right {
			continue
		}
		r := s.next
		s.id = m.merges[[2]uint32{c.left, c.right}].id
		syms[r].dead = true
		s.next = syms[r].next
		if s.next >= 0 {
			syms[s.next].prev = c.pos
		}
		if s.prev >= 0 {
			enqueue(s.prev)
		}
		enqueue(c.pos)
	}

	out := ids[:0]
	for i := 0; i >= 0; i = syms[i].next {
		out = append(out, syms[i].id)
	}

	return out
}
