/*
   Copyright 2020 Joseph Cumines

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package kvmpsc

import (
	"context"
	"sync"
)

// core holds the state shared by both coordination flavors: the keyed
// buffer, the producer count, the disconnected flag, and the coordinator
// implementing the wait/signal pair. Exactly one mutex protects all of it;
// it is never held across a coordinator wait call or across a caller's code
// outside of send/recv/releaseKeys.
//
// Both Sender/Receiver and AsyncSender/AsyncReceiver are thin handles over a
// core; the two flavors differ only in which coordinator implementation the
// core was built with, and in whether their methods accept a context.Context.
type core[K comparable, V any] struct {
	mu           sync.Mutex
	buffer       *keyedBuffer[K, V]
	coord        coordinator
	producers    int
	disconnected bool
}

// newCore allocates a core with capacity and wires it to a coordinator built
// by makeCoord, which receives a pointer to the core's own mutex - needed
// because the blocking flavor's condition variables must share that exact
// lock.
func newCore[K comparable, V any](capacity int, makeCoord func(mu *sync.Mutex) coordinator) *core[K, V] {
	if capacity <= 0 {
		panic("kvmpsc: capacity must be positive")
	}
	c := &core[K, V]{
		buffer:    newKeyedBuffer[K, V](capacity),
		producers: 1,
	}
	c.coord = makeCoord(&c.mu)
	return c
}

// send implements the send protocol of §4.3: block/suspend while the buffer
// is full and the channel is not disconnected, then either enqueue or report
// disconnection. ctx is nil for the blocking flavor, which ignores it.
func (c *core[K, V]) send(ctx context.Context, msg Message[K, V]) error {
	c.mu.Lock()
	for c.buffer.isFull() && !c.disconnected {
		if err := c.coord.waitSpace(ctx); err != nil {
			c.mu.Unlock()
			return err
		}
	}
	if c.disconnected {
		c.mu.Unlock()
		return &SendError[K, V]{Message: msg}
	}
	c.buffer.pushBack(msg)
	c.mu.Unlock()

	// exactly one data-available waiter per successful enqueue (§4.3); the
	// single receiver makes this sufficient, and a spurious wake elsewhere
	// is benign because every waiter rechecks its predicate
	c.coord.signalDataOne()
	return nil
}

// recv implements the receive protocol of §4.4: wait for either a brand new
// message or the release of a key that makes a previously-skipped message
// eligible, never surfacing an error for the latter case ("all conflict") -
// the caller simply keeps waiting, unlike the all-conflict error the design
// this channel is based on used to return.
func (c *core[K, V]) recv(ctx context.Context) (Message[K, V], error) {
	c.mu.Lock()
	for {
		if c.buffer.isEmpty() {
			if c.disconnected {
				c.mu.Unlock()
				return Message[K, V]{}, ErrDisconnected
			}
			if err := c.coord.waitData(ctx); err != nil {
				c.mu.Unlock()
				return Message[K, V]{}, err
			}
			continue
		}

		m, ok := c.buffer.popFrontEligible()
		if !ok {
			// buffer non-empty, everything conflicts: wait for a release to
			// make something eligible, or a new arrival
			if err := c.coord.waitData(ctx); err != nil {
				c.mu.Unlock()
				return Message[K, V]{}, err
			}
			continue
		}

		m = withRelease(m, c.releaseKeys)
		c.mu.Unlock()
		c.coord.signalSpaceOne()
		return m, nil
	}
}

// releaseKeys is the Message back-reference installed by recv: it is the
// only place buffer.releaseKeys is called (§4.6).
func (c *core[K, V]) releaseKeys(ks KeySet[K]) {
	c.mu.Lock()
	c.buffer.releaseKeys(ks)
	c.mu.Unlock()

	// the receiver may be waiting for a previously ineligible message to
	// become eligible
	c.coord.signalDataOne()
}

// addProducer increments the producer count; called by Sender.Clone.
func (c *core[K, V]) addProducer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.producers++
}

// removeProducer decrements the producer count, and if it reaches zero,
// flips disconnected and wakes every suspended receive so it can observe
// closure (notify_all on every disconnect transition, per the resolved open
// question in §9).
func (c *core[K, V]) removeProducer() {
	c.mu.Lock()
	c.producers--
	last := c.producers == 0
	if last {
		c.disconnected = true
	}
	c.mu.Unlock()

	if last {
		c.coord.signalDataAll()
	}
}

// closeReceiver flips disconnected and wakes every suspended send so it can
// observe closure.
func (c *core[K, V]) closeReceiver() {
	c.mu.Lock()
	already := c.disconnected
	c.disconnected = true
	c.mu.Unlock()

	if !already {
		c.coord.signalSpaceAll()
	}
}
