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

// Package kvmpsc implements a bounded, keyed, multi-producer single-consumer
// channel.
//
// Every message declares one or more keys describing the logical resource(s)
// it touches. The channel guarantees that at most one delivered-but-not-yet-
// released message may hold any given key at a time: a buffered message that
// conflicts on a key with a message currently held by the consumer is passed
// over (without being removed from the buffer) until that key is released,
// at which point it becomes eligible again. Messages that never conflict are
// delivered in send order.
//
// Two coordination flavors share the same buffer and dequeue policy: Bounded
// constructs a pair whose Send/Recv block the calling goroutine, and
// BoundedAsync constructs a pair whose Send/Recv take a context.Context and
// suspend cooperatively, returning early on cancellation.
package kvmpsc
