package device

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/stdr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgramSlot_KeepsPreviousOnFailure(t *testing.T) {
	var buf bytes.Buffer
	s := NewProgramSlot(KernelSim, stdr.New(log.New(&buf, "", 0)))

	assert.False(t, s.Valid())
	assert.True(t, s.Swap(7))
	assert.Equal(t, Program(7), s.Active())

	assert.False(t, s.Swap(InvalidProgram))
	assert.False(t, s.Swap(InvalidProgram))
	assert.Equal(t, Program(7), s.Active())
	assert.True(t, s.Failing())
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("keeping previous program")))

	assert.True(t, s.Swap(9))
	assert.False(t, s.Failing())
	assert.Equal(t, Program(9), s.Active())
}

func TestLoad_FromDirectory(t *testing.T) {
	b := NewCPUBackend(Options{Workers: 1})
	defer b.Cleanup()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "particlesim.yaml"), b.DefaultSource(KernelSim), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dda.yaml"), []byte("kernel: dda\nvoid: [2, 0, 0]\n"), 0644))

	p, err := Load(b, KernelSim, dir)
	require.NoError(t, err)
	assert.NotEqual(t, InvalidProgram, p)

	p, err = Load(b, KernelRender, dir)
	require.NoError(t, err)
	assert.Equal(t, InvalidProgram, p)

	_, err = Load(b, KernelSim, filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestLoad_EmbeddedDefaults(t *testing.T) {
	b := NewCPUBackend(Options{Workers: 1})
	defer b.Cleanup()

	for _, k := range []Kernel{KernelSim, KernelRender} {
		p, err := Load(b, k, "")
		require.NoError(t, err)
		assert.NotEqual(t, InvalidProgram, p, k.String())
	}
}

func TestOpen(t *testing.T) {
	b, err := Open("cpu", Options{Workers: 1})
	require.NoError(t, err)
	assert.Equal(t, "cpu", b.Name())
	b.Cleanup()

	_, err = Open("quantum", Options{})
	assert.ErrorIs(t, err, ErrUnknownBackend)

	auto, err := Open("auto", Options{Workers: 1})
	require.NoError(t, err)
	assert.NotNil(t, auto)
	auto.Cleanup()
	assert.Contains(t, Names(), "cpu")
}

func TestHostTimer(t *testing.T) {
	tm := NewHostTimer()
	assert.Empty(t, tm.Poll())

	tm.End(StageSim)
	assert.Empty(t, tm.Poll(), "End without Begin records nothing")

	tm.Begin(StageSim)
	tm.End(StageSim)
	tm.Begin(StageRender)
	tm.End(StageRender)
	samples := tm.Poll()
	require.Len(t, samples, 2)
	assert.Equal(t, StageSim, samples[0].Stage)
	assert.Equal(t, StageRender, samples[1].Stage)
	assert.Empty(t, tm.Poll())
}
