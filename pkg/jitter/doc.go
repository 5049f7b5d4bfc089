// ABOUTME: Jitter buffer package documentation
// ABOUTME: Explains the single-producer/single-consumer contract
// Package jitter provides the bounded queue that absorbs arrival-time variance
// between the network receiver and the audio device callback.
//
// New returns the two ends of a buffer. The Producer belongs to the goroutine
// reading packets, the Consumer to the device callback. Neither side ever
// blocks or takes a lock: Push fails with ErrFull when the buffer is at
// capacity, Pop reports an underrun with ok == false, and Len is an
// approximation that may lag a concurrent Push or Pop.
//
// Example:
//
//	prod, cons := jitter.New[audio.Frame](10240)
//	if err := prod.Push(frame); errors.Is(err, jitter.ErrFull) {
//	    // dropped
//	}
//	frame, ok := cons.Pop()
package jitter
