package renderpass

import "github.com/gogpu/gputypes"

func indexFormatFor(is32 bool) gputypes.IndexFormat {
	if is32 {
		return gputypes.IndexFormatUint32
	}
	return gputypes.IndexFormatUint16
}
