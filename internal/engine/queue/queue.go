// Package queue implements the engine's priority work queue: a totally
// ordered ready-set over (rank DESC, Transform-before-Analyze, id ASC)
// with permanent discard of blocked tasks on pop.
package queue

import "container/heap"

// Task is a unit of scheduling priority: a processor id together with the
// ordering keys the queue needs (its topological rank and whether it is a
// Transform processor).
type Task struct {
	ID          string
	Rank        int
	IsTransform bool
}

// taskHeap implements container/heap.Interface with the total order highest
// priority first: rank descending, Transform before Analyze at equal rank,
// id ascending for deterministic tie-breaking.
type taskHeap []Task

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].Rank != h[j].Rank {
		return h[i].Rank > h[j].Rank
	}
	if h[i].IsTransform != h[j].IsTransform {
		return h[i].IsTransform
	}
	return h[i].ID < h[j].ID
}

func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x any) { *h = append(*h, x.(Task)) }

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// PriorityWorkQueue is a thread-unsafe priority queue of ready tasks. The
// work-queue executor owns one instance per run and guards every access
// (the driver's pops and its workers' pushes) with its own mutex, so no
// internal locking is required; callers needing concurrent access must
// synchronize externally.
type PriorityWorkQueue struct {
	h taskHeap
}

// New returns an empty PriorityWorkQueue.
func New() *PriorityWorkQueue {
	q := &PriorityWorkQueue{h: make(taskHeap, 0)}
	heap.Init(&q.h)
	return q
}

// Push adds task to the queue.
func (q *PriorityWorkQueue) Push(task Task) {
	heap.Push(&q.h, task)
}

// PopNextAvailable returns the highest-priority task whose id is not present
// in blocked. Any blocked task encountered while searching is popped and
// permanently discarded; it cannot re-enter the queue.
// The second return value is false if no eligible task remains.
func (q *PriorityWorkQueue) PopNextAvailable(blocked map[string]struct{}) (Task, bool) {
	for q.h.Len() > 0 {
		t := heap.Pop(&q.h).(Task)
		if _, isBlocked := blocked[t.ID]; isBlocked {
			continue
		}
		return t, true
	}
	return Task{}, false
}

// Len returns the number of tasks currently queued.
func (q *PriorityWorkQueue) Len() int { return q.h.Len() }

// IsEmpty reports whether the queue holds no tasks.
func (q *PriorityWorkQueue) IsEmpty() bool { return q.h.Len() == 0 }
