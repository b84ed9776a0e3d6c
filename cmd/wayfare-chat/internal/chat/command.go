package chat

import (
	"errors"

	"github.com/spf13/cobra"
)

func NewChatCommand() *cobra.Command {
	var peer string
	var group string
	var debug bool

	cmd := &cobra.Command{
		Use:     "chat",
		Aliases: []string{"c"},
		Short:   "Open a conversation",
		Args:    cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if (peer == "") == (group == "") {
				return errors.New("exactly one of --peer or --group is required")
			}
			return chatCmd(peer, group, debug)
		},
	}

	cmd.Flags().StringVarP(&peer, "peer", "p", "", "User id for a direct conversation")
	cmd.Flags().StringVarP(&group, "group", "g", "", "Chat id for a group conversation")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	return cmd
}
