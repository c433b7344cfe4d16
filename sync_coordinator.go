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

// condCoordinator is the blocking (sync) coordinator of §4.5: two condition
// variables sharing the core's mutex. Spurious wakeups are permitted, since
// every caller loops on its own predicate (§4.3, §4.4).
type condCoordinator struct {
	space *sync.Cond
	data  *sync.Cond
}

func newCondCoordinator(mu *sync.Mutex) coordinator {
	return &condCoordinator{
		space: sync.NewCond(mu),
		data:  sync.NewCond(mu),
	}
}

// waitSpace blocks the calling goroutine until signalSpaceOne/All; ctx is
// ignored, as the blocking flavor has no cancellation contract.
func (c *condCoordinator) waitSpace(ctx context.Context) error {
	c.space.Wait()
	return nil
}

func (c *condCoordinator) waitData(ctx context.Context) error {
	c.data.Wait()
	return nil
}

func (c *condCoordinator) signalSpaceOne() { c.space.Signal() }
func (c *condCoordinator) signalSpaceAll() { c.space.Broadcast() }
func (c *condCoordinator) signalDataOne()  { c.data.Signal() }
func (c *condCoordinator) signalDataAll()  { c.data.Broadcast() }
