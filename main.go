package main

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Zachkp/portfolio/internal/config"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := newRootCmd(config.New()).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	serve := newServeCmd(v)

	root := &cobra.Command{
		Use:          "portfolio",
		Short:        "Portfolio site backend: contact relay, newsletter stub and visitor metrics",
		SilenceUsage: true,
		RunE:         serve.RunE,
	}
	root.AddCommand(serve, newSMTPCheckCmd(v), newContactCmd())
	return root
}

func debugMode() bool {
	return gin.Mode() == gin.DebugMode
}
