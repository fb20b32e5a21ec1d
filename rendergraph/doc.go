// Package rendergraph implements a frame graph over hal resources: passes
// declare reads and writes against virtual texture/buffer handles, Compile
// culls unreferenced passes, orders survivors, plans barriers, and aliases
// transient memory, and Execute replays the plan into a single command
// encoder.
//
// The graph itself knows nothing about cameras, views, or scenes — those
// live in the scene and renderpass packages, which bind a RenderObject
// list and a ViewData to the passes this package schedules.
package rendergraph
