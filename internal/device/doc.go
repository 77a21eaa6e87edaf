// Package device provides the compute device the simulation and renderer
// dispatch work to.
//
// A [Backend] behaves like a GPU command queue: dispatches may still be in
// flight when Dispatch* returns, and [Backend.Barrier] blocks until every
// write issued so far is visible to later work. Backends are chosen by name:
//
//   - cpu: a pond worker pool runs workgroups concurrently
//   - gl:  OpenGL 4.3 compute shaders (registered by package device/gl)
//
// Kernel sources are compiled with [Backend.Compile]. Compilation never
// fails loudly: a broken source yields [InvalidProgram], and a [ProgramSlot]
// keeps running whatever program was active before.
//
//	b, _ := device.Open("cpu", device.Options{})
//	_ = b.Bind(device.Binding{Grid: g, Slot: &slot, Spacing: 4, Resolution: [2]int{640, 360}})
//	src, _ := device.ReadSource(b, device.KernelSim, "")
//	prog := b.Compile(device.KernelSim, src)
package device
