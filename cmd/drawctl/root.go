package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	serverKey = "server"
	tokenKey  = "token"
)

// cliConfig is resolved from flags, DRAWCTL_* environment variables and the config file
type cliConfig struct {
	v *viper.Viper
}

func (c *cliConfig) server() string { return c.v.GetString(serverKey) }

func (c *cliConfig) token() (string, error) {
	tok := c.v.GetString(tokenKey)
	if tok == "" {
		return "", errors.New("no token: pass --token or set DRAWCTL_TOKEN")
	}
	return tok, nil
}

func newRootCmd() *cobra.Command {
	cfg := &cliConfig{v: viper.New()}
	var cfgFile string

	root := &cobra.Command{
		Use:           "drawctl",
		Short:         "Command line client for drawing rooms",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(cfg.v, cfgFile)
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.drawctl.yaml)")
	root.PersistentFlags().String("server", "http://localhost:8080", "Base URL of the drawing server")
	root.PersistentFlags().String("token", "", "Bearer token")
	_ = cfg.v.BindPFlag(serverKey, root.PersistentFlags().Lookup("server"))
	_ = cfg.v.BindPFlag(tokenKey, root.PersistentFlags().Lookup("token"))

	root.AddCommand(newHistoryCmd(cfg), newDrawsCmd(cfg), newTailCmd(cfg), newSayCmd(cfg))
	return root
}

// loadConfig reads the optional config file and the environment
func loadConfig(v *viper.Viper, cfgFile string) error {
	v.SetEnvPrefix("drawctl")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		v.AddConfigPath(home)
		v.SetConfigType("yaml")
		v.SetConfigName(".drawctl")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && cfgFile == "" {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}
