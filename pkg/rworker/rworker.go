// Package rworker runs fire-and-forget jobs gated by a shared rate
// channel. Errors are reported best effort: a full error channel drops
// them instead of blocking the job.
package rworker

import "sync"

func Job(wg *sync.WaitGroup, fn func() error, rate chan struct{}, errCh chan<- error) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		rate <- struct{}{}
		defer func() { <-rate }()
		if err := fn(); err != nil {
			select {
			case errCh <- err:
			default:
			}
		}
	}()
}
