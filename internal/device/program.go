package device

import "github.com/go-logr/logr"

// ProgramSlot holds the program currently used for one kernel. Swapping in
// InvalidProgram leaves the active program in place; the failure is logged
// once until a later compile succeeds.
type ProgramSlot struct {
	kernel  Kernel
	active  Program
	failing bool
	log     logr.Logger
}

func NewProgramSlot(k Kernel, log logr.Logger) *ProgramSlot {
	return &ProgramSlot{kernel: k, log: log}
}

// Swap installs p and reports whether it was accepted.
func (s *ProgramSlot) Swap(p Program) bool {
	if p == InvalidProgram {
		if !s.failing {
			s.log.Info("kernel compile failed, keeping previous program",
				"kernel", s.kernel.String(), "program", uint32(s.active))
		}
		s.failing = true
		return false
	}
	if s.failing {
		s.log.Info("kernel compile recovered", "kernel", s.kernel.String())
	}
	s.active = p
	s.failing = false
	return true
}

func (s *ProgramSlot) Active() Program { return s.active }
func (s *ProgramSlot) Valid() bool     { return s.active != InvalidProgram }
func (s *ProgramSlot) Failing() bool   { return s.failing }
