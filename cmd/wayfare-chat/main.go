package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/wayfare-social/wayfare-chat/cmd/wayfare-chat/internal"
	chatcmd "github.com/wayfare-social/wayfare-chat/cmd/wayfare-chat/internal/chat"
	"github.com/wayfare-social/wayfare-chat/cmd/wayfare-chat/internal/login"
	"github.com/wayfare-social/wayfare-chat/cmd/wayfare-chat/internal/logout"
	"github.com/wayfare-social/wayfare-chat/cmd/wayfare-chat/internal/status"
	"github.com/wayfare-social/wayfare-chat/cmd/wayfare-chat/internal/version"
)

func NewWayfareChatCommand() *cobra.Command {
	short := fmt.Sprintf("%s wayfare-chat - realtime chat client v%s\n\n", internal.Logo, internal.GetVersion())

	cmd := &cobra.Command{
		Use:     "wayfare-chat",
		Short:   short,
		Example: "wayfare-chat chat --peer u2",
	}

	cmd.AddCommand(
		login.NewLoginCommand(),
		logout.NewLogoutCommand(),
		chatcmd.NewChatCommand(),
		status.NewStatusCommand(),
		version.NewVersionCommand(),
	)

	return cmd
}

func main() {
	_ = godotenv.Load()

	cmd := NewWayfareChatCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
