package models

import (
	"container/heap"
	"sync"
	"time"
)

const (
	SimEventEnableSession  = "EnableSession"
	SimEventPauseSession   = "PauseSession"
	SimEventOrderArrival   = "OrderArrival"
	SimEventOrderReady     = "OrderReady"
	SimEventOrderPickup    = "OrderPickup"
	SimEventOrderCancel    = "OrderCancel"
	SimEventSchedulerTick  = "SchedulerTick"
	SimEventDisableSession = "DisableSession"
)

// QueuedEvent is a simulation step due at Time
type QueuedEvent struct {
	Time time.Time
	Type string
	Data interface{}
}

// EventQueue is a priority queue of simulation events ordered by time
type EventQueue struct {
	events []*QueuedEvent
	mutex  sync.Mutex
}

type eventHeap []*QueuedEvent

func (h eventHeap) Len() int           { return len(h) }
func (h eventHeap) Less(i, j int) bool { return h[i].Time.Before(h[j].Time) }
func (h eventHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x interface{}) {
	*h = append(*h, x.(*QueuedEvent))
}

func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}

func NewEventQueue() *EventQueue {
	return &EventQueue{events: make([]*QueuedEvent, 0)}
}

func (eq *EventQueue) Enqueue(event *QueuedEvent) {
	eq.mutex.Lock()
	defer eq.mutex.Unlock()
	heap.Push((*eventHeap)(&eq.events), event)
}

// Dequeue removes and returns the earliest event, or nil when empty
func (eq *EventQueue) Dequeue() *QueuedEvent {
	eq.mutex.Lock()
	defer eq.mutex.Unlock()
	if len(eq.events) == 0 {
		return nil
	}
	return heap.Pop((*eventHeap)(&eq.events)).(*QueuedEvent)
}

func (eq *EventQueue) Peek() *QueuedEvent {
	eq.mutex.Lock()
	defer eq.mutex.Unlock()
	if len(eq.events) == 0 {
		return nil
	}
	return eq.events[0]
}

func (eq *EventQueue) Len() int {
	eq.mutex.Lock()
	defer eq.mutex.Unlock()
	return len(eq.events)
}

// DequeueUntil pops every event due at or before t, in time order
func (eq *EventQueue) DequeueUntil(t time.Time) []*QueuedEvent {
	eq.mutex.Lock()
	defer eq.mutex.Unlock()

	var batch []*QueuedEvent
	for len(eq.events) > 0 && !eq.events[0].Time.After(t) {
		batch = append(batch, heap.Pop((*eventHeap)(&eq.events)).(*QueuedEvent))
	}
	return batch
}
