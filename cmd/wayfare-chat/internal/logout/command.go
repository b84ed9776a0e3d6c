package logout

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wayfare-social/wayfare-chat/cmd/wayfare-chat/internal"
	"github.com/wayfare-social/wayfare-chat/pkg/session"
)

func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := session.Clear(internal.GetConfigDir()); err != nil {
				return fmt.Errorf("clearing session: %w", err)
			}
			fmt.Println("Logged out")
			return nil
		},
	}
}
