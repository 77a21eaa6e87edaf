package device

import (
	"os"
	"path/filepath"
)

// ReadSource returns the source for kernel k. With dir empty the backend's
// embedded default is used; otherwise the file named by SourceName is read
// from dir so kernels can be edited and reloaded while running.
func ReadSource(b Backend, k Kernel, dir string) ([]byte, error) {
	if dir == "" {
		return b.DefaultSource(k), nil
	}
	return os.ReadFile(filepath.Join(dir, b.SourceName(k)))
}

// Load reads and compiles kernel k in one step. Read errors are reported as
// InvalidProgram, the same as a failed compile.
func Load(b Backend, k Kernel, dir string) (Program, error) {
	src, err := ReadSource(b, k, dir)
	if err != nil {
		return InvalidProgram, err
	}
	return b.Compile(k, src), nil
}
