// Package iqueue provides an unbounded FIFO queue bridging a producer
// channel and a consumer channel. Loop must be running for values to
// move from Send to Receive.
package iqueue

import (
	"container/list"
)

func New() *Queue {
	q := &Queue{}
	q.Init()
	return q
}

type Queue struct {
	queue *list.List
	send  chan interface{}
	recv  chan interface{}
}

func (iq *Queue) Init() {
	iq.queue = list.New()
	iq.send = make(chan interface{}, 1)
	iq.recv = make(chan interface{}, 1)
}

func (iq *Queue) Send(v interface{}) {
	iq.send <- v
}

func (iq *Queue) Receive() <-chan interface{} {
	return iq.recv
}

func (iq *Queue) Len() int {
	return iq.queue.Len()
}

func (iq *Queue) Queue() *list.List {
	return iq.queue
}

func (iq *Queue) Close() {
	close(iq.send)
}

func (iq *Queue) Loop() {
	for {
		front := iq.queue.Front()
		if front == nil {
			value, ok := <-iq.send
			if !ok {
				close(iq.recv)
				return
			}
			iq.queue.PushBack(value)
			continue
		}
		select {
		case iq.recv <- front.Value:
			iq.queue.Remove(front)
		case value, ok := <-iq.send:
			if ok {
				iq.queue.PushBack(value)
				continue
			}
			// drain what is buffered, then stop
			for e := iq.queue.Front(); e != nil; e = e.Next() {
				iq.recv <- e.Value
			}
			close(iq.recv)
			return
		}
	}
}
