// Package framesync manages GPU/CPU synchronization for multi-buffered
// rendering: one timeline fence per frame-in-flight slot, waited on
// before a slot's resources are reused and signaled after its work is
// submitted.
package framesync
