// Package main is the brochurebot server and operator CLI.
package main

// @title           BrochureBot API
// @version         1.0
// @description     Multi-tenant question answering over uploaded PDF brochures.

// @contact.name   BrochureBot OSS
// @contact.url    https://github.com/custodia-labs/brochurebot/issues

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /
// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Session JWT. Format: "Bearer {token}"

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/brochurebot/docs"
)

var (
	version = "dev"

	configPath string
	envFiles   []string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "brochurebot",
	Short: "Question answering over uploaded PDF brochures",
	Long: `brochurebot lets an operator upload a PDF brochure and share a public chat
link that answers visitor questions from the brochure's content.

Configuration is read from built-in defaults, an optional YAML file and
BROCHUREBOT_* environment variables, in that order.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	docs.SwaggerInfo.Version = version

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "dotenv files loaded before the environment is read")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(operatorCmd)
}
