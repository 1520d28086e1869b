package main

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"path"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/dark-cli/deptmaster/log"
)

var (
	// flags
	verbose    bool
	env        string
	configFile string

	// logger
	logger log.Logger

	// configuration
	config Configuration

	// auth
	signingKey []byte
)

type Configuration struct {
	HTTP struct {
		Addr string `toml:"addr"`
	} `toml:"http"`
	Auth struct {
		Key string `toml:"key"`
	} `toml:"auth"`
	Bolt struct {
		Auth string `toml:"auth"`
		Sync string `toml:"sync"`
	} `toml:"bolt"`
	Bleve struct {
		Store string `toml:"store"`
	} `toml:"bleve"`
	MySQL struct {
		Enabled  bool   `toml:"enabled"`
		Host     string `toml:"host"`
		Port     string `toml:"port"`
		User     string `toml:"user"`
		Password string `toml:"password"`
		Database string `toml:"database"`
	} `toml:"mysql"`
}

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose mode")
	RootCmd.PersistentFlags().StringVar(&env, "env", "dev", "environment")
	RootCmd.PersistentFlags().StringVar(&configFile, "config", "", "configuration file")
}

var RootCmd = cobra.Command{
	Use:   "deptmaster",
	Short: "Replicated ledger of contacts and debts",
	Long:  "Replicated ledger of contacts and debts",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = log.New(env)

		if configFile == "" {
			configFile = path.Join("configuration", fmt.Sprintf("config.%s.toml", env))
		}

		cfgData, err := ioutil.ReadFile(configFile)
		if err != nil {
			logger.Fatal("error reading configuration:", err)
		}
		if err := toml.Unmarshal(cfgData, &config); err != nil {
			logger.Fatal("error unmarshalling configuration:", err)
		}

		// Load key from file
		keyData, err := ioutil.ReadFile(config.Auth.Key)
		if err != nil {
			logger.Fatal("could not open key file:", err)
		}
		var key struct {
			Key string `json:"k"`
		}
		if err := json.Unmarshal(keyData, &key); err != nil {
			logger.Fatal("could not read key file:", err)
		}
		signingKey = []byte(key.Key)
	},
}
