package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mbbill/samply-for-ai/internal/config"
	"github.com/mbbill/samply-for-ai/internal/session"
)

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running samply server and remove its session file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStop()
		},
	}
}

func runStop() error {
	loader := config.NewLoader()
	path := loader.SessionPath()

	if !session.Exists(path) {
		fmt.Println("no running samply server found")
		return nil
	}

	sess, err := session.Load(path)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	if sess.IsAlive() {
		proc, err := os.FindProcess(int(sess.PID))
		if err != nil {
			return fmt.Errorf("find process %d: %w", sess.PID, err)
		}
		if err := proc.Kill(); err != nil {
			return fmt.Errorf("stop process %d: %w", sess.PID, err)
		}
	}

	if err := session.Remove(path); err != nil {
		return fmt.Errorf("remove session file: %w", err)
	}
	fmt.Printf("stopped samply server (pid %d)\n", sess.PID)
	return nil
}
