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

import "container/list"

// keyedBuffer is a capacity-bounded FIFO of messages, augmented with an
// active-key index and a scan cursor, supporting conflict-aware extraction.
//
// It is backed by a doubly-linked sequence (container/list) rather than an
// indexable ring: recorded positions are *list.Element pointers, which
// remain valid across pops of *other* elements, so releasing a key never
// needs to renumber the rest of the index the way a ring buffer would on
// removal. A monotonic sequence number on each entry gives positions a total
// order cheaply, for the "rewind the cursor to the minimum recorded
// position" step on release.
//
// keyedBuffer is not safe for concurrent use; callers must hold core.mu.
type keyedBuffer[K comparable, V any] struct {
	cap     int
	entries *list.List // of *bufferEntry[K, V]
	nextSeq uint64

	// active maps every key of every delivered-but-not-released message to
	// the recorded position of the earliest still-buffered message that
	// conflicts on it. has is false (the sentinel) when no such conflict has
	// been observed yet.
	active map[K]conflictPos[K, V]

	// cursor is the element at which the next eligibility scan begins; nil
	// means the scan has already reached the tail with nothing eligible
	// found since the last push or release that could change the outcome.
	cursor *list.Element
}

type bufferEntry[K comparable, V any] struct {
	msg Message[K, V]
	seq uint64
}

type conflictPos[K comparable, V any] struct {
	elem *list.Element
	has  bool
}

func newKeyedBuffer[K comparable, V any](capacity int) *keyedBuffer[K, V] {
	return &keyedBuffer[K, V]{
		cap:     capacity,
		entries: list.New(),
		active:  make(map[K]conflictPos[K, V]),
	}
}

func (b *keyedBuffer[K, V]) len() int {
	return b.entries.Len()
}

func (b *keyedBuffer[K, V]) isEmpty() bool {
	return b.entries.Len() == 0
}

func (b *keyedBuffer[K, V]) isFull() bool {
	return b.entries.Len() >= b.cap
}

// pushBack appends m to the buffer. Precondition: !b.isFull().
func (b *keyedBuffer[K, V]) pushBack(m Message[K, V]) {
	ent := &bufferEntry[K, V]{msg: m, seq: b.nextSeq}
	b.nextSeq++
	elem := b.entries.PushBack(ent)

	// a fully-drained scan leaves the cursor nil; a fresh arrival is always
	// unscanned, so it becomes the new scan start
	if b.cursor == nil {
		b.cursor = elem
	}

	// record this message as a conflict for any key it shares with an
	// already-active key, taking the minimum position like recordConflicts
	// does, so a release that arrives before the next scan still knows to
	// rewind to the earliest conflicting message
	for _, k := range m.Keys() {
		if pos, ok := b.active[k]; ok && (!pos.has || b.seq(elem) < b.seq(pos.elem)) {
			b.active[k] = conflictPos[K, V]{elem: elem, has: true}
		}
	}
}

// popFrontEligible removes and returns the earliest message whose keys are
// all currently inactive, or reports ok == false if no such message exists.
func (b *keyedBuffer[K, V]) popFrontEligible() (m Message[K, V], ok bool) {
	for e := b.cursor; e != nil; {
		ent := e.Value.(*bufferEntry[K, V])
		next := e.Next()

		if b.recordConflicts(ent.msg, e) {
			e = next
			continue
		}

		// eligible: remove it, activate its keys with the sentinel, and
		// advance the cursor past it
		b.entries.Remove(e)
		for _, k := range ent.msg.Keys() {
			b.active[k] = conflictPos[K, V]{has: false}
		}
		b.cursor = next
		return ent.msg, true
	}
	b.cursor = nil
	return m, false
}

// recordConflicts reports whether msg conflicts with any currently active
// key, recording e as the conflict position for every active key of msg
// whose recorded position is still the sentinel, or is later than e: the
// conflict pointer must always hold the earliest buffered position, never
// just the first one observed, or a later release can rewind the cursor to
// a stale position and strand an eligible message below it.
func (b *keyedBuffer[K, V]) recordConflicts(msg Message[K, V], e *list.Element) (conflicts bool) {
	for _, k := range msg.Keys() {
		pos, ok := b.active[k]
		if !ok {
			continue
		}
		conflicts = true
		if !pos.has || b.seq(e) < b.seq(pos.elem) {
			b.active[k] = conflictPos[K, V]{elem: e, has: true}
		}
	}
	return conflicts
}

// releaseKeys removes every key in ks from the active-key index, rewinding
// the scan cursor to the minimum recorded conflict position among them.
func (b *keyedBuffer[K, V]) releaseKeys(ks KeySet[K]) {
	for _, k := range ks.Slice() {
		pos, ok := b.active[k]
		delete(b.active, k)
		if !ok || !pos.has {
			continue
		}
		if b.cursor == nil || b.seq(pos.elem) < b.seq(b.cursor) {
			b.cursor = pos.elem
		}
	}
}

func (b *keyedBuffer[K, V]) seq(e *list.Element) uint64 {
	return e.Value.(*bufferEntry[K, V]).seq
}
