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


// Package local implements ai.Embedder with a model served locally by Ollama.
//
// Loading a local model is expensive and may download weights on first use.
// The Embedder defers this work until the first embedding request and
// performs it at most once: concurrent callers share a single in-flight
// initialization instead of each loading the model.
//
//	embedder, err := local.NewEmbedder(ai.NewConfig(
//	    ai.WithModel("nomic-embed-text"),
//	    ai.WithPullModel(true),
//	))
//
// NewEmbedderWithLoader accepts any Loader, which lets tests and other
// runtimes supply their own model initialization.
package local
