package autostart

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"text/template"
)

const serviceName = "drivesync.service"

var serviceTemplate = template.Must(template.New("service").Funcs(template.FuncMap{
	"quote": strconv.Quote,
}).Parse(`[Unit]
Description=drivesync directory mirror
After=network-online.target

[Service]
ExecStart={{quote .ExecPath}} sync {{quote .Root}}
Restart=on-failure
RestartSec=5

[Install]
WantedBy=default.target
`))

type LinuxAutoStarter struct {
	// dir overrides ~/.config/systemd/user.
	dir string
}

func (l *LinuxAutoStarter) servicePath() (string, error) {
	dir := l.dir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".config", "systemd", "user")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	return filepath.Join(dir, serviceName), nil
}

func writeUnit(w io.Writer, execPath, root string) error {
	return serviceTemplate.Execute(w, map[string]string{
		"ExecPath": execPath,
		"Root":     root,
	})
}

func (l *LinuxAutoStarter) Install(execPath, root string) error {
	path, err := l.servicePath()
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create service file: %w", err)
	}

	if err := writeUnit(f, execPath, root); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write service file: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write service file: %w", err)
	}

	if l.dir != "" {
		return nil
	}

	cmds := [][]string{
		{"systemctl", "--user", "daemon-reload"},
		{"systemctl", "--user", "enable", serviceName},
		{"systemctl", "--user", "restart", serviceName},
	}

	for _, args := range cmds {
		cmd := exec.Command(args[0], args[1:]...)
		if out, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("failed to run %v: %w\n%s", args, err, out)
		}
	}

	return nil
}

func (l *LinuxAutoStarter) Uninstall() error {
	if l.dir == "" {
		cmds := [][]string{
			{"systemctl", "--user", "stop", serviceName},
			{"systemctl", "--user", "disable", serviceName},
		}

		for _, args := range cmds {
			_ = exec.Command(args[0], args[1:]...).Run()
		}
	}

	path, err := l.servicePath()
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove service file: %w", err)
	}

	return nil
}

func (l *LinuxAutoStarter) IsInstalled() (bool, error) {
	path, err := l.servicePath()
	if err != nil {
		return false, err
	}

	_, err = os.Stat(path)
	return err == nil, nil
}
