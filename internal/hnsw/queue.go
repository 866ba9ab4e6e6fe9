package hnsw

// less orders results by distance, then by NodeID, so equidistant nodes
// resolve deterministically.
func less(a, b Result) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return a.ID < b.ID
}

// priorityQueue is a value-based binary heap of Results. It does NOT
// implement container/heap to avoid interface overhead.
type priorityQueue struct {
	isMaxHeap bool // true = max heap (worst on top), false = min heap
	items     []Result
}

func newPriorityQueue(isMaxHeap bool, capacity int) *priorityQueue {
	return &priorityQueue{
		isMaxHeap: isMaxHeap,
		items:     make([]Result, 0, capacity),
	}
}

// Reset clears the queue for reuse.
func (pq *priorityQueue) Reset() {
	pq.items = pq.items[:0]
}

// Len returns the number of elements in the heap.
func (pq *priorityQueue) Len() int {
	return len(pq.items)
}

// Top returns the top element of the heap.
func (pq *priorityQueue) Top() (Result, bool) {
	if len(pq.items) == 0 {
		return Result{}, false
	}
	return pq.items[0], true
}

// Push inserts an item while maintaining the heap invariant.
func (pq *priorityQueue) Push(item Result) {
	pq.items = append(pq.items, item)
	pq.siftUp(len(pq.items) - 1)
}

// PushBounded inserts into a max heap holding at most capacity items. When
// full, the item replaces the top only if it is better.
func (pq *priorityQueue) PushBounded(item Result, capacity int) {
	if len(pq.items) < capacity {
		pq.Push(item)
		return
	}
	if less(item, pq.items[0]) {
		pq.items[0] = item
		pq.siftDown(0)
	}
}

// Pop removes and returns the top element from the heap.
func (pq *priorityQueue) Pop() (Result, bool) {
	n := len(pq.items)
	if n == 0 {
		return Result{}, false
	}

	item := pq.items[0]
	pq.items[0] = pq.items[n-1]
	pq.items = pq.items[:n-1]

	if len(pq.items) > 0 {
		pq.siftDown(0)
	}

	return item, true
}

// drainAscending empties a max heap into a new slice sorted closest first.
func (pq *priorityQueue) drainAscending() []Result {
	out := make([]Result, pq.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i], _ = pq.Pop()
	}
	return out
}

func (pq *priorityQueue) before(i, j int) bool {
	if pq.isMaxHeap {
		return less(pq.items[j], pq.items[i])
	}
	return less(pq.items[i], pq.items[j])
}

func (pq *priorityQueue) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !pq.before(i, parent) {
			break
		}
		pq.items[i], pq.items[parent] = pq.items[parent], pq.items[i]
		i = parent
	}
}

func (pq *priorityQueue) siftDown(i int) {
	n := len(pq.items)
	for {
		left := 2*i + 1
		if left >= n {
			break
		}
		best := left
		if right := left + 1; right < n && pq.before(right, left) {
			best = right
		}
		if !pq.before(best, i) {
			break
		}
		pq.items[i], pq.items[best] = pq.items[best], pq.items[i]
		i = best
	}
}
