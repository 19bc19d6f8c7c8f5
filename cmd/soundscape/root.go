package main

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/cwbudde/algo-soundscape/internal/logging"
)

const envPrefix = "SOUNDSCAPE"

// app holds the state shared by every subcommand.
type app struct {
	v *viper.Viper

	configFile   string
	logLevel     string
	logFormat    string
	outputFormat string

	log *logrus.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "soundscape",
		Short: "Ambient sound classification and soundscape synthesis",
		Long: `Classify ambient recordings into wind, bird, rain, stream or leaves
and synthesize calm background soundscapes that match them.

Settings can come from flags, a YAML config file (--config) or environment
variables prefixed with SOUNDSCAPE_ (e.g. SOUNDSCAPE_LOG_LEVEL=debug).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initialize(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file (YAML)")
	pf.StringVar(&a.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.StringVar(&a.logFormat, "log-format", "text", "log format (text, json)")
	pf.StringVarP(&a.outputFormat, "output", "o", "text", "result format (text, json)")

	root.AddCommand(
		newClassifyCmd(a),
		newGenerateCmd(a),
		newAnalyzeCmd(a),
		newCompareCmd(a),
		newFitCmd(a),
		newIRCmd(a),
	)
	return root
}

// initialize reads the config file, applies config and environment values
// to unset flags and builds the logger.
func (a *app) initialize(cmd *cobra.Command) error {
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	a.v.AutomaticEnv()

	// --config itself may come from the environment.
	if a.configFile == "" {
		a.configFile = a.v.GetString("config")
	}
	if a.configFile != "" {
		a.v.SetConfigFile(a.configFile)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", a.configFile, err)
		}
	}

	if err := bindFlags(cmd, a.v); err != nil {
		return err
	}

	switch a.outputFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown output format %q (use text or json)", a.outputFormat)
	}

	l, err := logging.New(a.logLevel, a.logFormat, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.log = l
	if a.configFile != "" {
		l.WithField("file", a.v.ConfigFileUsed()).Debug("config loaded")
	}
	return nil
}

// bindFlags binds each cobra flag to its viper key and copies config or
// environment values into flags the user did not set.
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var lastErr error

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
		if err := v.BindEnv(f.Name, envPrefix+"_"+envVarSuffix); err != nil {
			lastErr = err
		}

		if !f.Changed && v.IsSet(f.Name) {
			val := v.Get(f.Name)
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val)); err != nil {
				lastErr = fmt.Errorf("flag --%s: %w", f.Name, err)
			}
		}

		if err := v.BindPFlag(f.Name, f); err != nil {
			lastErr = err
		}
	})

	return lastErr
}

func (a *app) jsonOutput() bool {
	return a.outputFormat == "json"
}
