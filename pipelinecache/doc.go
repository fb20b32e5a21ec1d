// Package pipelinecache turns a WGSL shader pair and its binding reflection
// metadata into the hal objects a renderpass.Pass needs to draw: bind group
// layouts, a pipeline layout, one render pipeline per target color format,
// and the view/object constant buffers those pipelines read from.
//
// Binding reflection is supplied by the caller (BindingInfo), not recovered
// from the shader itself — naga is used only to parse and validate WGSL and
// to discover entry point names, the one surface of it exercised anywhere in
// this codebase's teacher material.
package pipelinecache
