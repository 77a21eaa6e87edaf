// Package logging builds the process logger.
package logging

import (
	"io"
	"log"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/google/uuid"
)

// New returns a logger writing to w with the [voxelsand] prefix. Messages
// at V(n) are printed for n <= verbosity. Every logger carries a session
// id so runs can be told apart in shared output.
func New(w io.Writer, verbosity int) (logr.Logger, string) {
	stdr.SetVerbosity(verbosity)
	std := log.New(w, "[voxelsand] ", log.LstdFlags|log.Lmicroseconds)
	session := uuid.NewString()
	return stdr.New(std).WithValues("session", session), session
}
