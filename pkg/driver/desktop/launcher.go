package desktop

import (
	"fmt"
	"os/exec"

	"github.com/Matsurin0303/MacroTool-sub000/pkg/core"
	"github.com/Matsurin0303/MacroTool-sub000/pkg/logger"
)

// Launcher starts programs detached from playback. Output goes to the log.
type Launcher struct{}

// Start launches path and returns once the process has started.
func (Launcher) Start(path string, args []string, dir string) error {
	cmd := exec.Command(path, args...)
	cmd.Dir = dir
	cmd.Stdout = logger.GetWriter()
	cmd.Stderr = logger.GetWriter()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", path, err)
	}
	logger.Info("Started %s (pid %d)", path, cmd.Process.Pid)

	go func() {
		if err := cmd.Wait(); err != nil {
			logger.Debug("%s exited: %v", path, err)
		}
	}()
	return nil
}

var _ core.Launcher = Launcher{}
