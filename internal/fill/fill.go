// Package fill provides the explicit-stack flood fill shared by the
// labeling and watershed stages.
package fill

// Queued marks a pixel that has been claimed by a fill in progress but not
// yet given its final label. It never leaves the labeling stages.
const Queued uint32 = 1<<32 - 1

const minCapacity = 64

// Stack is a growable LIFO of pixel indices. It doubles its backing
// buffer when full.
type Stack struct {
	buf []int
	n   int
}

// Push appends a pixel index
func (s *Stack) Push(i int) {
	if s.n == len(s.buf) {
		grown := make([]int, max(minCapacity, 2*len(s.buf)))
		copy(grown, s.buf[:s.n])
		s.buf = grown
	}
	s.buf[s.n] = i
	s.n++
}

// Pop removes and returns the most recently pushed index
func (s *Stack) Pop() int {
	s.n--
	return s.buf[s.n]
}

// Len returns the number of queued indices
func (s *Stack) Len() int { return s.n }

// Cap returns the size of the backing buffer
func (s *Stack) Cap() int { return len(s.buf) }

// Reset empties the stack but keeps its buffer
func (s *Stack) Reset() { s.n = 0 }

// Region collects every pixel 8-connected to start whose label is 0 and
// for which accept returns true. Collected pixels are set to Queued in
// labels; the caller commits the final value. The pixels are appended to
// dst, which is returned.
func Region(width, height, start int, labels []uint32, accept func(i int) bool, s *Stack, dst []int) []int {
	s.Reset()
	labels[start] = Queued
	s.Push(start)

	for s.Len() > 0 {
		i := s.Pop()
		dst = append(dst, i)

		x, y := i%width, i/width
		for dy := -1; dy <= 1; dy++ {
			ny := y + dy
			if ny < 0 || ny >= height {
				continue
			}
			for dx := -1; dx <= 1; dx++ {
				nx := x + dx
				if (dx == 0 && dy == 0) || nx < 0 || nx >= width {
					continue
				}
				n := ny*width + nx
				if labels[n] != 0 || !accept(n) {
					continue
				}
				labels[n] = Queued
				s.Push(n)
			}
		}
	}
	return dst
}

// Commit writes label into every listed pixel
func Commit(labels []uint32, pixels []int, label uint32) {
	for _, i := range pixels {
		labels[i] = label
	}
}
