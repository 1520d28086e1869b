package main

import (
	"github.com/dark-cli/deptmaster"
	authbolt "github.com/dark-cli/deptmaster/auth/bolt"
	authservices "github.com/dark-cli/deptmaster/auth/services"
	"github.com/dark-cli/deptmaster/bleve"
	"github.com/dark-cli/deptmaster/errors"
	"github.com/dark-cli/deptmaster/jwt"
	"github.com/dark-cli/deptmaster/ledger"
	"github.com/dark-cli/deptmaster/mysql"
	syncbolt "github.com/dark-cli/deptmaster/sync/bolt"
	syncservices "github.com/dark-cli/deptmaster/sync/services"
)

type stack struct {
	users       *authservices.UserService
	wallets     *authservices.WalletService
	permissions *authservices.PermissionService
	sync        *syncservices.SyncService
	ledger      *ledger.Service
}

// openStack wires every service onto its stores. The returned function
// closes everything that was opened, in reverse order.
func openStack() (*stack, func(), error) {
	closers := make([]func() error, 0, 4)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Error("error closing store:", err)
			}
		}
	}

	authDriver := &authbolt.Driver{}
	if err := authDriver.Open(config.Bolt.Auth); err != nil {
		return nil, closeAll, errors.New("error opening auth db", errors.WithCause(err))
	}
	closers = append(closers, authDriver.Close)

	syncDriver := &syncbolt.Driver{}
	if err := syncDriver.Open(config.Bolt.Sync); err != nil {
		return nil, closeAll, errors.New("error opening sync db", errors.WithCause(err))
	}
	closers = append(closers, syncDriver.Close)

	index := &bleve.ContactIndex{}
	if err := index.Open(config.Bleve.Store); err != nil {
		return nil, closeAll, errors.New("error opening contact index", errors.WithCause(err))
	}
	closers = append(closers, index.Close)

	userRepository := authbolt.NewUserRepository(authDriver)
	walletRepository := authbolt.NewWalletRepository(authDriver)
	groupRepository := authbolt.NewGroupRepository(authDriver)
	ruleRepository := authbolt.NewRuleRepository(authDriver)

	eventStore := syncbolt.NewEventStore(syncDriver)

	var projections deptmaster.ProjectionStore = syncbolt.NewProjectionStore(syncDriver)
	if config.MySQL.Enabled {
		mysqlDriver, err := mysql.NewDriver(
			config.MySQL.Host,
			config.MySQL.Port,
			config.MySQL.User,
			config.MySQL.Password,
			config.MySQL.Database,
		)
		if err != nil {
			return nil, closeAll, errors.New("error connecting to MySQL", errors.WithCause(err))
		}
		closers = append(closers, mysqlDriver.Close)
		projections = mysql.NewProjectionStore(mysqlDriver)
	}

	tokenEncoder := jwt.NewEncodeDecoder(signingKey)

	s := &stack{}
	s.users = authservices.NewUserService(userRepository, tokenEncoder)
	s.wallets = authservices.NewWalletService(walletRepository, userRepository, groupRepository)
	s.permissions = authservices.NewPermissionService(walletRepository, groupRepository, ruleRepository)
	s.sync = syncservices.NewSyncService(eventStore, projections, index, s.permissions, walletRepository, logger)
	s.ledger = ledger.NewService(projections, s.permissions, index)

	return s, closeAll, nil
}
