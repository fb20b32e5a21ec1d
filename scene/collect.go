package scene

// NodeKind distinguishes the two kinds of node a World exposes.
type NodeKind int

const (
	NodeKindMesh NodeKind = iota
	NodeKindLight
)

// WorldNode is one node of the caller's scene graph, as exposed through
// World. Nodes are expected in an order where every node's ParentIndex
// refers to an earlier index in the slice (or -1 for a root), so a single
// forward pass can accumulate world transforms.
type WorldNode struct {
	Local       Mat4
	ParentIndex int
	Kind        NodeKind

	// Mesh-node fields.
	Mesh        MeshID
	Material    MaterialID
	SubmeshIdx  int
	LocalBounds AABB
	CastsShadow bool
	Transparent bool
	SortKey     uint32

	// Light-node fields.
	Light RenderLight
}

// World is implemented by the caller's scene graph to expose it to
// CollectFromWorld. The engine never looks inside the caller's own node
// types; Nodes is the entire contract.
type World interface {
	Nodes() []WorldNode
}

// CollectFromWorld walks every node of w exactly once, accumulates world
// transforms from parent to child, and produces a RenderScene with every
// mesh instance's world matrix and world-space bounds precomputed, and
// every light's position/direction resolved into world space.
//
// CollectFromWorld does no culling; it is the single point where the
// engine touches the caller's scene representation, so the rest of the
// frame (CullAgainstCamera, SortVisibleObjects) never needs the World
// interface again.
func CollectFromWorld(w World) RenderScene {
	nodes := w.Nodes()
	worldMats := make([]Mat4, len(nodes))

	scene := RenderScene{
		Objects: make([]RenderObject, 0, len(nodes)),
		Lights:  make([]RenderLight, 0),
	}

	for i, n := range nodes {
		var world Mat4
		if n.ParentIndex >= 0 && n.ParentIndex < i {
			world = worldMats[n.ParentIndex].Mul(n.Local)
		} else {
			world = n.Local
		}
		worldMats[i] = world

		switch n.Kind {
		case NodeKindMesh:
			scene.Objects = append(scene.Objects, RenderObject{
				Mesh:        n.Mesh,
				Material:    n.Material,
				World:       world,
				WorldBounds: n.LocalBounds.Transform(world),
				SubmeshIdx:  n.SubmeshIdx,
				SortKey:     n.SortKey,
				CastsShadow: n.CastsShadow,
				Transparent: n.Transparent,
			})
		case NodeKindLight:
			light := n.Light
			light.Position = world.MulPoint(n.Light.Position)
			light.Direction = world.MulDirection(n.Light.Direction).Normalize()
			scene.Lights = append(scene.Lights, light)
		}
	}

	return scene
}
