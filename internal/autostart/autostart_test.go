package autostart

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteUnit(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeUnit(&buf, "/usr/local/bin/drivesync", "/home/me/My Notes"))

	unit := buf.String()
	assert.Contains(t, unit, `ExecStart="/usr/local/bin/drivesync" sync "/home/me/My Notes"`)
	assert.Contains(t, unit, "[Service]")
	assert.Contains(t, unit, "WantedBy=default.target")
}

func TestLinuxInstallUninstall(t *testing.T) {
	dir := t.TempDir()
	l := &LinuxAutoStarter{dir: dir}

	installed, err := l.IsInstalled()
	require.NoError(t, err)
	assert.False(t, installed)

	require.NoError(t, l.Install("/bin/drivesync", "/data/root"))

	installed, err = l.IsInstalled()
	require.NoError(t, err)
	assert.True(t, installed)

	b, err := os.ReadFile(filepath.Join(dir, serviceName))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"/data/root"`)

	require.NoError(t, l.Uninstall())
	installed, err = l.IsInstalled()
	require.NoError(t, err)
	assert.False(t, installed)

	// Uninstalling twice is fine.
	require.NoError(t, l.Uninstall())
}

func TestTaskCommand(t *testing.T) {
	assert.Equal(t, `"C:\bin\drivesync.exe" sync "D:\notes"`, taskCommand(`C:\bin\drivesync.exe`, `D:\notes`))
}
