/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/valpere/subtran/internal/config"
	"github.com/valpere/subtran/internal/logging"
)

var version = "0.1.0"

var (
	cfgFile string
	v       = config.NewViper()
	appCfg  config.Config
	logger  = zap.NewNop().Sugar()
	syncLog = func() {}
)

var rootCmd = &cobra.Command{
	Use:   "subtran",
	Short: "Live subtitle translation overlay service",
	Long: `A subtitle service that receives short text fragments over WebSocket or HTTP,
shows each fragment immediately and replaces the translation slot once the remote
translation arrives. A local glossary can pin terms or skip the remote call entirely.

Supported services: xfyun (iFlytek), Google Translate, MyMemory

Use "subtran serve --help" to run the intake server.`,
	Version:       version,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		syncLog()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ./subtran.yaml or $HOME/.config/subtran/subtran.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-dir", "", "Directory for daily log files (empty disables file logging)")
}

// flagKeys maps command flags to the config keys they override. Several
// commands share a flag name, so binding happens for the running command only.
var flagKeys = map[string]string{
	"log-level": "log.level",
	"log-dir":   "log.dir",
	"host":      "network.host",
	"port":      "network.port",
	"service":   "translation.service",
	"glossary":  "glossary.path",
	"db":        "glossary.db",
}

func initConfig(cmd *cobra.Command) error {
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("failed to bind --%s: %w", name, err)
			}
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("subtran")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "subtran"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	appCfg = cfg

	l, sync, err := logging.New(cfg.Log.Level, cfg.Log.Dir)
	if err != nil {
		return err
	}
	logger, syncLog = l, sync

	if used := v.ConfigFileUsed(); used != "" {
		logger.Debugw("config loaded", "file", used)
	}
	return nil
}
