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

import (
	"fmt"

	"github.com/poiesic/navd/ai"
	"github.com/poiesic/navd/ai/local"
	"github.com/poiesic/navd/ai/openai"
)

// NewEmbedder creates the embedder selected by config.Provider.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	if config == nil {
		config = ai.DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Provider {
	case ai.ProviderOpenAI:
		return openai.NewEmbedder(config)
	case ai.ProviderLocal:
		return local.NewEmbedder(config)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, config.Provider)
	}
}
