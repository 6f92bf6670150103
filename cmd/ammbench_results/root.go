package main

import (
	"fmt"

	"github.com/blagojts/viper"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "ammbench_results",
		Short: "Inspect archived sampling runs",
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().String("archive", "results", "Archive URI: file://<dir>, postgres://..., or a bare directory")
	if err := viper.BindPFlag("archive", rootCmd.PersistentFlags().Lookup("archive")); err != nil {
		panic(err)
	}
	rootCmd.AddCommand(initListCmd())
	rootCmd.AddCommand(initGetCmd())
	rootCmd.AddCommand(initCompareCmd())
}

func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}
