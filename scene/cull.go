package scene

import "sort"

// CullAgainstCamera discards every object whose world bounds lie entirely
// outside frustum, splits the survivors into opaque and transparent
// buckets, and returns them sorted (opaque front-to-back, transparent
// back-to-front) relative to cameraPos. Lights pass through unfiltered —
// shadow-casting lights are culled per-cascade by the shadow pass, not here.
func CullAgainstCamera(rscene RenderScene, frustum Frustum, cameraPos Vec3) VisibleScene {
	vis := VisibleScene{
		Lights: rscene.Lights,
	}

	for _, obj := range rscene.Objects {
		if !frustum.IntersectsAABB(obj.WorldBounds) {
			continue
		}
		if obj.Transparent {
			vis.Transparent = append(vis.Transparent, obj)
		} else {
			vis.Opaque = append(vis.Opaque, obj)
		}
	}

	SortVisibleObjects(&vis, cameraPos)
	return vis
}

// SortVisibleObjects sorts vis.Opaque front-to-back and vis.Transparent
// back-to-front by squared distance from cameraPos to each object's
// bounds center, breaking ties by SortKey so objects sharing a pipeline
// and material stay adjacent in the draw stream. Distance is compared
// squared to avoid a sqrt per object per frame.
func SortVisibleObjects(vis *VisibleScene, cameraPos Vec3) {
	distSq := func(o RenderObject) float32 {
		return o.WorldBounds.Center().DistanceSquared(cameraPos)
	}

	sort.Slice(vis.Opaque, func(i, j int) bool {
		di, dj := distSq(vis.Opaque[i]), distSq(vis.Opaque[j])
		if di != dj {
			return di < dj
		}
		return vis.Opaque[i].SortKey < vis.Opaque[j].SortKey
	})

	sort.Slice(vis.Transparent, func(i, j int) bool {
		di, dj := distSq(vis.Transparent[i]), distSq(vis.Transparent[j])
		if di != dj {
			return di > dj
		}
		return vis.Transparent[i].SortKey < vis.Transparent[j].SortKey
	})
}
