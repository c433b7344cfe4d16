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

import "context"

// coordinator is the wait/signal capability §4.5 and §9 ("Dispatch over
// coordinator") require core's send/recv to be parameterized over, so the
// two coordination flavors can share one state machine and differ only in
// how a caller suspends and is woken.
//
// waitSpace/waitData must be called with the core's mutex held; they
// release it for the duration of the wait and reacquire it before
// returning, exactly like sync.Cond.Wait. ctx is nil for the blocking
// flavor, which has no cancellation contract and ignores it.
//
// signal{Space,Data}{One,All} must be called without the mutex held - they
// are the only permitted interaction with the coordinator outside the lock
// (§5, "Shared resource policy").
type coordinator interface {
	waitSpace(ctx context.Context) error
	waitData(ctx context.Context) error
	signalSpaceOne()
	signalSpaceAll()
	signalDataOne()
	signalDataAll()
}
