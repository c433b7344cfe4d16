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
	"errors"
	"fmt"
)

// ErrDisconnected is returned by Receiver.Recv / AsyncReceiver.Recv once the
// buffer is empty and no producer handles remain. Sender.Send /
// AsyncSender.Send return a *SendError wrapping it once the receiver has been
// closed, so errors.Is(err, ErrDisconnected) holds there too. It is terminal: once
// observed by a receiver, every subsequent call returns it again.
var ErrDisconnected = errors.New("kvmpsc: disconnected")

// SendError is returned by Sender.Send / AsyncSender.Send when the channel
// is disconnected, and carries the message that could not be delivered so
// the caller can recover the payload.
type SendError[K comparable, V any] struct {
	Message Message[K, V]
}

func (e *SendError[K, V]) Error() string {
	return fmt.Sprintf("kvmpsc: send on disconnected channel: %v", e.Message.Value())
}

// Unwrap allows errors.Is(err, ErrDisconnected) to succeed against a *SendError.
func (e *SendError[K, V]) Unwrap() error {
	return ErrDisconnected
}
