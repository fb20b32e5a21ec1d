package noop

import "github.com/fulcrumgfx/core/hal"

// init registers the noop backend with the HAL registry.
func init() {
	hal.RegisterBackend(API{})
}
