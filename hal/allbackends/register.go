// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package allbackends

import (
	// Import all HAL backends for side-effect registration.
	// Each backend's init() function registers it with hal.RegisterBackend().

	// No-op backend - always available, useful for testing.
	_ "github.com/fulcrumgfx/core/hal/noop"

	// Software backend - pure-Go CPU reference rasterizer, always available.
	_ "github.com/fulcrumgfx/core/hal/software"
)
