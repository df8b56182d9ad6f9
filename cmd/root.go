package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ethiapath/bagcamp/internal/buildinfo"
	"github.com/ethiapath/bagcamp/internal/logging"
)

// global flags
var cfgFile string

const (
	SigningSecretKey = "signing_secret"
	SessionSecretKey = "session_secret"
)

var rootCmd = &cobra.Command{
	Use:   "dlgate",
	Short: fmt.Sprintf("Bagcamp download gate (version: %s, commit: %s)", buildinfo.Version, buildinfo.CommitHash),
	Long: `dlgate guards Bagcamp's music downloads.
	The origin issuer authorizes a download and mints a short-lived,
	path-scoped token; the edge verifier validates it in front of the
	storage origin without ever touching the database.`,
	Version: buildinfo.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Init()
		return nil
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		log.Fatal().Err(err).Msg("execution failed")
		os.Exit(1)
	}
}

func init() {
	// setup pre-flag logger
	logging.InitDefault()

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "f", "bagcamp.yaml",
		"Path to the configuration file")

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	_ = viper.BindPFlag(logging.LevelKey, rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.PersistentFlags().String("log-format", "console", "Log format (console, json)")
	_ = viper.BindPFlag(logging.FormatKey, rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.PersistentFlags().Bool("no-color", false, "Disable color output")
	_ = viper.BindPFlag(logging.NoColorKey, rootCmd.PersistentFlags().Lookup("no-color"))

	viper.SetEnvPrefix("BAGCAMP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))

	viper.AutomaticEnv()

	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
}

// secrets reads the shared key material from the environment.
// Secrets never live in the config file.
func secrets() (signing, session []byte) {
	return []byte(viper.GetString(SigningSecretKey)), []byte(viper.GetString(SessionSecretKey))
}
