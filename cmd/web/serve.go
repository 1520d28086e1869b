package main

import (
	"github.com/spf13/cobra"

	authhttp "github.com/dark-cli/deptmaster/auth/http"
	"github.com/dark-cli/deptmaster/gin"
	"github.com/dark-cli/deptmaster/ledger"
	synchttp "github.com/dark-cli/deptmaster/sync/http"
	"github.com/dark-cli/deptmaster/users"
)

func init() {
	RootCmd.AddCommand(&ServeCommand)
}

var ServeCommand = cobra.Command{
	Use:   "serve",
	Short: "Start the sync server",
	Long:  "Start the sync server",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, closeAll, err := openStack()
		defer closeAll()
		if err != nil {
			return err
		}

		srv := gin.NewServer()
		authhttp.RegisterUserEndpoints(srv, s.users, signingKey)
		authhttp.RegisterWalletEndpoints(srv, s.wallets, signingKey)
		authhttp.RegisterPermissionEndpoints(srv, s.permissions, signingKey)
		synchttp.RegisterSyncEndpoints(srv, s.sync, users.NewAuthenticator(s.users), signingKey)
		ledger.RegisterEndpoints(srv, s.ledger, signingKey)

		addr := config.HTTP.Addr
		if addr == "" {
			addr = ":1705"
		}
		logger.Print("server started, listening on", addr)
		return srv.Run(addr)
	},
}
