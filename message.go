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

import "sync"

// Message is a value paired with the KeySet it claims. A Message returned by
// a Recv call carries a release lease on its keys: the consumer must call
// Release once it is done with the message, which makes any key it held
// eligible for delivery to later, conflicting messages. A Message that was
// never delivered (e.g. one still held by the producer, or one returned
// inside a SendError) carries no lease, and Release on it is a no-op.
//
// The zero value of Message is not usable; construct one via NewSingleKeyMessage
// or NewMultiKeyMessage.
type Message[K comparable, V any] struct {
	value   V
	keys    KeySet[K]
	release *messageRelease[K]
}

// messageRelease is the non-owning back-reference described in the design
// notes: it is attached to a Message only after the message leaves the
// buffer, and is guaranteed to run its release function at most once.
type messageRelease[K comparable] struct {
	once sync.Once
	fn   func(KeySet[K])
	keys KeySet[K]
}

// NewSingleKeyMessage constructs a Message declaring a single key.
func NewSingleKeyMessage[K comparable, V any](key K, value V) Message[K, V] {
	return Message[K, V]{value: value, keys: SingleKey(key)}
}

// NewMultiKeyMessage constructs a Message declaring one or more keys.
func NewMultiKeyMessage[K comparable, V any](keys []K, value V) Message[K, V] {
	return Message[K, V]{value: value, keys: MultipleKeys(keys...)}
}

// Value returns the message's payload.
func (m Message[K, V]) Value() V {
	return m.value
}

// Keys returns the message's declared keys, in no particular order.
func (m Message[K, V]) Keys() []K {
	return m.keys.Slice()
}

// Release disposes of the message's lease on its keys, if any, making any
// key it held eligible for messages currently skipped over due to conflict.
// It is safe (and a no-op) to call Release more than once, or on a message
// that was never delivered.
func (m *Message[K, V]) Release() {
	if m.release == nil {
		return
	}
	r := m.release
	m.release = nil
	r.once.Do(func() {
		r.fn(r.keys)
	})
}

// withRelease returns a copy of m carrying a release lease that invokes fn
// with the message's KeySet exactly once. It is called by the core, after a
// message has been removed from the buffer, to attach the back-reference the
// design notes describe.
func withRelease[K comparable, V any](m Message[K, V], fn func(KeySet[K])) Message[K, V] {
	m.release = &messageRelease[K]{fn: fn, keys: m.keys}
	return m
}
