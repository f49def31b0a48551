package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/frahmantamala/ad-user-manager/internal/user"
	"github.com/frahmantamala/ad-user-manager/pkg/logger"
	"github.com/spf13/cobra"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Directory user commands",
	Long:  `Query users straight from Active Directory`,
}

var listUsersCmd = &cobra.Command{
	Use:   "list",
	Short: "List directory users",
	Long:  `List every user the server would return from GET /users`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listUsers(cmd.Context())
	},
}

var usersDisabledOnly bool

func listUsers(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	initLogger(cfg)
	lg := logger.LoggerWrapper()

	dirClient, err := newDirectoryClient(cfg.Directory, lg)
	if err != nil {
		return err
	}

	svc := user.NewService(dirClient, user.Config{
		TTL:    cfg.Cache.TTL,
		Locale: cfg.Directory.Locale,
	}, lg)

	users, err := svc.GetUsers(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tUSERNAME\tEMAIL\tDISABLED")
	for _, u := range users {
		if usersDisabledOnly && !u.Disabled {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", u.Name, u.Username, u.Email, u.Disabled)
	}
	return tw.Flush()
}

func init() {
	listUsersCmd.Flags().BoolVar(&usersDisabledOnly, "disabled", false, "only list disabled accounts")

	usersCmd.AddCommand(listUsersCmd)
}
