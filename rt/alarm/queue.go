package alarm

// queue is a min-heap of alarms ordered by fire time, then by insertion.
type queue []*Alarm

func (q queue) Len() int { return len(q) }

func (q queue) Less(i, j int) bool {
	if q[i].fire != q[j].fire {
		return q[i].fire < q[j].fire
	}
	return q[i].seq < q[j].seq
}

func (q queue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *queue) Push(x any) {
	a := x.(*Alarm)
	a.index = len(*q)
	a.queued = true
	*q = append(*q, a)
}

func (q *queue) Pop() any {
	old := *q
	n := len(old)
	a := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	a.index = -1
	a.queued = false
	return a
}
