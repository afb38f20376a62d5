package cmd

import (
	"os"
	"path/filepath"

	"github.com/easierdata/ipfs-stac/pkg/config"
	"github.com/easierdata/ipfs-stac/pkg/web3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "ipfs-stac",
	Short: "STAC catalog search and IPFS content retrieval",
	Long:  "CLI for querying STAC catalogs and moving the referenced assets over IPFS.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ~/.config/ipfs-stac/config.yaml)")
	rootCmd.PersistentFlags().String("stac-endpoint", "", "STAC API root URL")
	rootCmd.PersistentFlags().String("local-gateway", "", "host of a local IPFS node")
	rootCmd.PersistentFlags().Int("api-port", 0, "local node control API port")
	rootCmd.PersistentFlags().Int("gateway-port", 0, "local node content gateway port")
	rootCmd.PersistentFlags().String("public-gateway", "", "public content gateway URL")
	rootCmd.PersistentFlags().StringSlice("fallback-gateways", nil, "extra public gateways tried in order")
	rootCmd.PersistentFlags().String("daemon-binary", "", "node executable launched by the daemon command")
	rootCmd.PersistentFlags().Bool("debug", false, "enable verbose logging")

	viper.BindPFlag("stac_endpoint", rootCmd.PersistentFlags().Lookup("stac-endpoint"))
	viper.BindPFlag("local_gateway", rootCmd.PersistentFlags().Lookup("local-gateway"))
	viper.BindPFlag("api_port", rootCmd.PersistentFlags().Lookup("api-port"))
	viper.BindPFlag("gateway_port", rootCmd.PersistentFlags().Lookup("gateway-port"))
	viper.BindPFlag("public_gateway", rootCmd.PersistentFlags().Lookup("public-gateway"))
	viper.BindPFlag("fallback_gateways", rootCmd.PersistentFlags().Lookup("fallback-gateways"))
	viper.BindPFlag("daemon_binary", rootCmd.PersistentFlags().Lookup("daemon-binary"))
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
}

func initConfig() {
	if cfg := rootCmd.PersistentFlags().Lookup("config").Value.String(); cfg != "" {
		viper.SetConfigFile(cfg)
	} else {
		viper.AddConfigPath(configDir())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("IPFS_STAC")
	viper.AutomaticEnv()

	viper.ReadInConfig()
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "ipfs-stac")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "ipfs-stac")
	}
	return ".ipfs-stac"
}

func loadConfig() *config.Config {
	return &config.Config{
		StacEndpoint:     viper.GetString("stac_endpoint"),
		LocalGateway:     viper.GetString("local_gateway"),
		APIPort:          viper.GetInt("api_port"),
		GatewayPort:      viper.GetInt("gateway_port"),
		PublicGateway:    viper.GetString("public_gateway"),
		FallbackGateways: viper.GetStringSlice("fallback_gateways"),
		DaemonBinary:     viper.GetString("daemon_binary"),
		Debug:            viper.GetBool("debug"),
	}
}

func newClient() (web3.Web3, error) {
	return web3.New(loadConfig())
}
