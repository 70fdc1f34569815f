// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package navd

import "errors"

var (
	// ErrCorruptEntry indicates text read from the log does not match the
	// digest recorded when it was appended.
	ErrCorruptEntry = errors.New("corrupt entry")

	// ErrMemoryClosed is returned by operations on a closed Memory.
	ErrMemoryClosed = errors.New("memory is closed")

	// ErrUnknownProvider indicates an ai.Config names no supported provider.
	ErrUnknownProvider = errors.New("unknown embedding provider")
)
