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


package ai

import (
	"context"
	"fmt"
)

// probeText is embedded once at startup to verify the service responds.
const probeText = "capability check"

// CheckEmbedder embeds a short probe text and returns the vector dimension.
// Any failure, including an empty vector, is reported as ErrEmbedderUnavailable.
func CheckEmbedder(ctx context.Context, embedder Embedder) (int, error) {
	if embedder == nil {
		return 0, fmt.Errorf("%w: no embedder configured", ErrEmbedderUnavailable)
	}

	vec, err := embedder.EmbedText(ctx, probeText)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrEmbedderUnavailable, err)
	}
	if len(vec) == 0 {
		return 0, fmt.Errorf("%w: empty embedding returned", ErrEmbedderUnavailable)
	}

	return len(vec), nil
}
