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
	"sync/atomic"
)

// Sender is the cloneable, multi-producer handle of the blocking channel
// flavor. The zero value is not usable; construct a Sender/Receiver pair via
// Bounded.
type Sender[K comparable, V any] struct {
	core      *core[K, V]
	closeOnce sync.Once
}

// Receiver is the single, non-shareable consumer handle of the blocking
// channel flavor.
type Receiver[K comparable, V any] struct {
	core      *core[K, V]
	closeOnce sync.Once
	recvBusy  atomic.Bool
}

// Bounded constructs a blocking (thread-suspending) bounded keyed channel.
// capacity must be positive; Bounded panics otherwise (§4.7).
func Bounded[K comparable, V any](capacity int) (*Sender[K, V], *Receiver[K, V]) {
	c := newCore[K, V](capacity, newCondCoordinator)
	return &Sender[K, V]{core: c}, &Receiver[K, V]{core: c}
}

// Send delivers msg, blocking the calling goroutine while the buffer is
// full. It returns a *SendError[K, V] carrying msg back if the receiver has
// been closed.
func (s *Sender[K, V]) Send(msg Message[K, V]) error {
	return s.core.send(nil, msg)
}

// Clone returns a new Sender sharing this Sender's channel, incrementing the
// producer count (§4.7).
func (s *Sender[K, V]) Clone() *Sender[K, V] {
	s.core.addProducer()
	return &Sender[K, V]{core: s.core}
}

// Close releases this Sender's producer slot. Once every Sender created from
// the same Bounded call has been closed, the channel becomes disconnected
// and every suspended Receiver.Recv call observes it. Close is idempotent.
func (s *Sender[K, V]) Close() {
	s.closeOnce.Do(s.core.removeProducer)
}

// Recv returns the earliest message whose keys do not conflict with any
// currently delivered, unreleased message, blocking while the buffer is
// empty or every buffered message conflicts. It returns ErrDisconnected once
// the buffer is empty and every Sender has been closed. Recv must not be
// called concurrently by multiple goroutines; doing so panics.
func (r *Receiver[K, V]) Recv() (Message[K, V], error) {
	if !r.recvBusy.CompareAndSwap(false, true) {
		panic("kvmpsc: concurrent Recv calls on the same Receiver")
	}
	defer r.recvBusy.Store(false)
	return r.core.recv(nil)
}

// Close marks the channel disconnected, waking every Sender blocked in Send
// so it can observe closure. Close is idempotent.
func (r *Receiver[K, V]) Close() {
	r.closeOnce.Do(r.core.closeReceiver)
}

// AsyncSender is the cloneable, multi-producer handle of the suspending
// (context-aware) channel flavor.
type AsyncSender[K comparable, V any] struct {
	core      *core[K, V]
	closeOnce sync.Once
}

// AsyncReceiver is the single, non-shareable consumer handle of the
// suspending channel flavor.
type AsyncReceiver[K comparable, V any] struct {
	core      *core[K, V]
	closeOnce sync.Once
	recvBusy  atomic.Bool
}

// BoundedAsync constructs a suspending (cooperatively-scheduled) bounded
// keyed channel. capacity must be positive; BoundedAsync panics otherwise.
func BoundedAsync[K comparable, V any](capacity int) (*AsyncSender[K, V], *AsyncReceiver[K, V]) {
	c := newCore[K, V](capacity, newChanCoordinator)
	return &AsyncSender[K, V]{core: c}, &AsyncReceiver[K, V]{core: c}
}

// Send delivers msg, suspending until there is space, ctx is cancelled, or
// the receiver is closed. A cancelled Send that has not yet enqueued msg
// returns ctx.Err(); the caller retains msg (§5, "Cancellation semantics").
func (s *AsyncSender[K, V]) Send(ctx context.Context, msg Message[K, V]) error {
	return s.core.send(ctx, msg)
}

// Clone returns a new AsyncSender sharing this AsyncSender's channel,
// incrementing the producer count.
func (s *AsyncSender[K, V]) Clone() *AsyncSender[K, V] {
	s.core.addProducer()
	return &AsyncSender[K, V]{core: s.core}
}

// Close releases this AsyncSender's producer slot; see Sender.Close.
func (s *AsyncSender[K, V]) Close() {
	s.closeOnce.Do(s.core.removeProducer)
}

// Recv returns the earliest eligible message, suspending until one exists,
// ctx is cancelled, or the channel disconnects. A cancelled Recv unregisters
// from the wait list without consuming a message (§5). Recv must not be
// called concurrently by multiple goroutines; doing so panics.
func (r *AsyncReceiver[K, V]) Recv(ctx context.Context) (Message[K, V], error) {
	if !r.recvBusy.CompareAndSwap(false, true) {
		panic("kvmpsc: concurrent Recv calls on the same AsyncReceiver")
	}
	defer r.recvBusy.Store(false)
	return r.core.recv(ctx)
}

// Close marks the channel disconnected; see Receiver.Close.
func (r *AsyncReceiver[K, V]) Close() {
	r.closeOnce.Do(r.core.closeReceiver)
}
