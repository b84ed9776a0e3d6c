package status

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wayfare-social/wayfare-chat/cmd/wayfare-chat/internal"
	"github.com/wayfare-social/wayfare-chat/pkg/session"
)

func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session and configured endpoints",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := internal.LoadConfig()
			if err != nil {
				return err
			}

			sess, err := session.Load(internal.GetConfigDir())
			switch {
			case errors.Is(err, session.ErrNoSession):
				fmt.Println("Session: not logged in")
			case err != nil:
				return err
			default:
				fmt.Printf("Session: %s", sess.UserID)
				if sess.DisplayName != "" {
					fmt.Printf(" (%s)", sess.DisplayName)
				}
				fmt.Printf(", since %s\n", sess.CreatedAt.Format("2006-01-02 15:04"))
			}

			fmt.Printf("Chat server: %s\n", orUnset(cfg.Chat.ServerURL))
			fmt.Printf("Persistence: %s\n", orUnset(cfg.Persistence.BaseURL))
			return nil
		},
	}
}

func orUnset(s string) string {
	if s == "" {
		return "(unset)"
	}
	return s
}
