// Package gpures owns the GPU-resident copies of meshes and textures: it
// decides what is resident, drives the asynchronous upload queue that
// gets data onto the device, and evicts what hasn't been drawn recently
// under memory pressure.
//
// Callers register CPU-side mesh and texture descriptions once with
// RegisterMesh/RegisterTexture, then call RequestUpload to schedule the
// GPU copy and MarkUsed every frame an entry is actually drawn. The
// render loop drains the upload queue once per frame via
// ProcessPendingUploads, bounded by a time budget so a burst of uploads
// never stalls a frame.
package gpures
