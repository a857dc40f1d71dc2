package jpeg

import (
	"container/heap"
	"fmt"
	"sort"
)

// codeword is a left-justified canonical codeword.
type codeword struct {
	bits   uint16
	length uint8
}

// HuffmanEncoder maps symbols to canonical codewords.
type HuffmanEncoder struct {
	table     HuffmanTable
	codewords [256]codeword
}

// Encoder assigns canonical codewords to the symbols of t.
func (t *HuffmanTable) Encoder() *HuffmanEncoder {
	e := &HuffmanEncoder{table: HuffmanTable{Class: t.Class}}
	for l := range t.Symbols {
		e.table.Symbols[l] = append([]byte(nil), t.Symbols[l]...)
	}
	e.assign()

	return e
}

// Table returns the interchange form of the encoder's code.
func (e *HuffmanEncoder) Table() *HuffmanTable {
	return &e.table
}

// Codeword returns the left-justified codeword for symbol and its length.
// It panics if the symbol has no codeword.
func (e *HuffmanEncoder) Codeword(symbol uint8) (bits uint16, length int) {
	c := e.codewords[symbol]
	if c.length == 0 {
		panic(fmt.Sprintf("jpeg: symbol 0x%02x is not in the %v huffman table", symbol, e.table.Class))
	}

	return c.bits, int(c.length)
}

// assign hands out canonical codewords: consecutive counter values within a
// length, with one extra left shift whenever the length grows.
func (e *HuffmanEncoder) assign() {
	code := 0
	for l, symbols := range e.table.Symbols {
		length := l + 1
		for _, s := range symbols {
			e.codewords[s] = codeword{bits: uint16(code << (16 - length)), length: uint8(length)}
			code++
		}
		code <<= 1
	}
}

// huffmanNode is a node of the transient code tree. Nodes live in an arena
// and refer to their children by index; leaves have no children.
type huffmanNode struct {
	weight      int
	left, right int
}

const noChild = -1

// nodeHeap is a min-heap of arena indices ordered by weight, then by creation order.
type nodeHeap struct {
	arena []huffmanNode
	items []int
}

func (h *nodeHeap) Len() int { return len(h.items) }

func (h *nodeHeap) Less(i, j int) bool {
	a, b := h.items[i], h.items[j]
	if h.arena[a].weight != h.arena[b].weight {
		return h.arena[a].weight < h.arena[b].weight
	}

	return a < b
}

func (h *nodeHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *nodeHeap) Push(x any) { h.items = append(h.items, x.(int)) }

func (h *nodeHeap) Pop() any {
	n := len(h.items) - 1
	x := h.items[n]
	h.items = h.items[:n]

	return x
}

// BuildHuffmanEncoder builds an optimal length-limited canonical code for the
// given symbol frequencies. Symbols with zero frequency get no codeword. The
// all-ones codeword is never assigned.
func BuildHuffmanEncoder(class HuffmanClass, frequencies *[256]int) *HuffmanEncoder {
	type weighted struct {
		symbol    uint8
		frequency int
	}

	var symbols []weighted
	for s, f := range frequencies {
		if f > 0 {
			symbols = append(symbols, weighted{symbol: uint8(s), frequency: f})
		}
	}

	e := &HuffmanEncoder{table: HuffmanTable{Class: class}}
	if len(symbols) == 0 {
		return e
	}

	sort.SliceStable(symbols, func(i, j int) bool {
		return symbols[i].frequency > symbols[j].frequency
	})

	h := &nodeHeap{arena: make([]huffmanNode, 0, 2*len(symbols)+1)}
	for _, s := range symbols {
		h.arena = append(h.arena, huffmanNode{weight: s.frequency, left: noChild, right: noChild})
		h.items = append(h.items, len(h.arena)-1)
	}
	// Zero-weight placeholder for the reserved all-ones codeword.
	h.arena = append(h.arena, huffmanNode{weight: 0, left: noChild, right: noChild})
	h.items = append(h.items, len(h.arena)-1)
	heap.Init(h)

	for h.Len() > 1 {
		a := heap.Pop(h).(int)
		b := heap.Pop(h).(int)
		h.arena = append(h.arena, huffmanNode{
			weight: h.arena[a].weight + h.arena[b].weight,
			left:   a,
			right:  b,
		})
		heap.Push(h, len(h.arena)-1)
	}

	counts := leafDepths(h.arena, h.items[0])
	limitHeight(counts)

	// Drop the placeholder from the deepest level.
	for l := len(counts) - 1; l > 0; l-- {
		if counts[l] > 0 {
			counts[l]--
			break
		}
	}

	k := 0
	for l := 1; l <= 16; l++ {
		for i := 0; i < counts[l]; i++ {
			e.table.Symbols[l-1] = append(e.table.Symbols[l-1], symbols[k].symbol)
			k++
		}
	}
	e.assign()

	return e
}

// leafDepths counts leaves per depth by breadth-first traversal from root.
// The result has at least 17 entries; index 0 is the root level, which is
// never a leaf because the placeholder guarantees at least two leaves.
func leafDepths(arena []huffmanNode, root int) []int {
	counts := make([]int, 17)

	level := []int{root}
	for depth := 0; len(level) > 0; depth++ {
		if depth >= len(counts) {
			counts = append(counts, 0)
		}

		var next []int
		for _, i := range level {
			n := arena[i]
			if n.left == noChild {
				counts[depth]++
				continue
			}
			next = append(next, n.left, n.right)
		}
		level = next
	}

	return counts
}

// limitHeight reshapes per-depth leaf counts so no leaf is deeper than 16,
// keeping the code complete. Sibling leaves below depth 16 are merged into
// their parent, and each symbol displaced that way is resettled by splitting
// the deepest leaf above depth 16 into two.
func limitHeight(counts []int) {
	unhoused := 0
	for l := len(counts) - 1; l > 16; l-- {
		pairs := counts[l] / 2
		counts[l-1] += pairs
		unhoused += pairs
		counts[l] = 0
	}

	for ; unhoused > 0; unhoused-- {
		j := 15
		for counts[j] == 0 {
			j--
		}
		counts[j]--
		counts[j+1] += 2
	}
}
