package arg

import (
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"

	"github.com/SoarinFerret/SessionTally/internal/ipc"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check if the sessiontally daemon is running",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		obj, closeFn, err := daemonObject()
		if err != nil {
			return err
		}
		defer closeFn()

		var result string
		if err := obj.Call(ipc.InterfaceName+".GetStatus", 0).Store(&result); err != nil {
			return fmt.Errorf("failed to call method: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "SessionTally Status:", result)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// daemonObject connects to the system bus and returns the daemon object.
func daemonObject() (dbus.BusObject, func(), error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to system bus: %w", err)
	}
	obj := conn.Object(ipc.ServiceName, dbus.ObjectPath(ipc.ObjectPath))
	return obj, func() { conn.Close() }, nil
}
