// Package voxel holds the shared simulation volume and the small pieces of
// state that travel with it between dispatches.
//
//   - [Grid]: dense dimension³ array of [Cell], the one shared mutable resource
//   - [GenerationFlag]: one-bit generation marker toggled once per iteration
//   - [Slot]: the block insertion target written by the renderer and read by
//     the simulation kernel on the next dispatch
//
// # Cell Layout
//
// A cell is a uint32. The low seven bits carry the material code, bit 7
// carries the generation flag:
//
//	0b_xxxx_xxxx F MMMMMMM
//	           │ └── material (0 empty, 1 stone, 2 sand, 3 water)
//	           └──── generation flag (0x80)
//
// # Thread Safety
//
// Grid is not synchronized. Writers are the compute dispatches, which are
// ordered by barriers and spatially partitioned so that no two concurrently
// running workgroups touch the same or adjacent cells.
package voxel
