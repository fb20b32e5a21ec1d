package software

import "github.com/fulcrumgfx/core/hal"

// init registers the software backend with the HAL registry.
func init() {
	hal.RegisterBackend(API{})
}
