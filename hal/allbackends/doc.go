// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package allbackends imports all HAL backend implementations.
//
// Import this package for side effects to register all available backends:
//
//	import (
//		_ "github.com/fulcrumgfx/core/hal/allbackends"
//	)
//
// This will register:
//   - Software backend (all platforms, CPU reference rasterizer)
//   - No-op backend (all platforms, for testing)
//
// After importing, use hal.GetBackend or hal.SelectBestBackend to access
// backends. Native-driver backends (Vulkan, DX12, Metal) are not part of
// this module; see DESIGN.md for why.
package allbackends
