package graph

// heapNode is a frontier entry for the shortest path search
type heapNode struct {
	nodeID int
	dist   float64
}

// nodeHeap orders by distance, then node index, so equal inputs always
// settle in the same order.
type nodeHeap []heapNode

func (h nodeHeap) Len() int { return len(h) }
func (h nodeHeap) Less(i, j int) bool {
	if h[i].dist != h[j].dist {
		return h[i].dist < h[j].dist
	}
	return h[i].nodeID < h[j].nodeID
}
func (h nodeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

// Push pushes a new node to the heap
func (h *nodeHeap) Push(x interface{}) {
	*h = append(*h, x.(heapNode))
}

// Pop pops a node from the heap
func (h *nodeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[0 : n-1]
	return item
}
