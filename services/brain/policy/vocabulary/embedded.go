// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
This file bridges the build system and the runtime policy engine. It uses the
Go embed package to bake routing_vocabulary.yaml directly into the compiled
binary, so the routing rules are immutable at runtime and travel with the
executable.
*/

package vocabulary

import (
	_ "embed"
)

// RoutingVocabulary holds the raw byte content of routing_vocabulary.yaml.
//
// Populated at compile time via the embed directive. Pass these bytes
// directly to yaml.Unmarshal when constructing the policy engine.
//
//go:embed routing_vocabulary.yaml
var RoutingVocabulary []byte
