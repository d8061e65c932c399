package common

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/BjornMelin/contribux-sub004/internal/common/logging"
)

// LoadConfig reads the named config file from path into config. An absent file
// is not an error; defaults and command-line overrides then apply on their own.
func LoadConfig(config interface{}, path string, configName string) error {
	v := viper.New()
	v.SetConfigName(configName)
	v.AddConfigPath(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return errors.WithMessage(err, "error reading config")
		}
	}
	if err := v.Unmarshal(config); err != nil {
		return errors.WithMessage(err, "error unmarshalling config")
	}
	return nil
}

func ConfigureLogging() {
	log.SetFormatter(&log.TextFormatter{ForceColors: true, FullTimestamp: true})
	log.SetOutput(os.Stdout)
}

// ConfigureCommandLineLogging strips log decoration so that CLI output is
// plain messages.
func ConfigureCommandLineLogging() {
	log.SetFormatter(new(logging.CommandLineFormatter))
	log.SetOutput(os.Stdout)
}
