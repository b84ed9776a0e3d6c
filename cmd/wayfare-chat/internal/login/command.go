package login

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wayfare-social/wayfare-chat/cmd/wayfare-chat/internal"
	"github.com/wayfare-social/wayfare-chat/pkg/session"
)

func NewLoginCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "login <user-id>",
		Short: "Store the session used by chat commands",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			sess, err := session.New(args[0], name)
			if err != nil {
				return err
			}
			if err := sess.Save(internal.GetConfigDir()); err != nil {
				return fmt.Errorf("saving session: %w", err)
			}
			fmt.Printf("%s Logged in as %s\n", internal.Logo, sess.UserID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name for this session")

	return cmd
}
