package utils

import (
	"github.com/blagojts/viper"
	"github.com/spf13/pflag"
)

// SetupConfigFile lets every flag of the calling binary also be supplied
// through a config.yaml in the working directory. Flags given on the command
// line take precedence over the file.
func SetupConfigFile() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	if err := viper.BindPFlags(pflag.CommandLine); err != nil {
		return err
	}

	// running without a config file is the common case
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}
	return nil
}
