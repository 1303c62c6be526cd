// Package config loads the tunables of the gamepad core: filter thresholds,
// repeat cadence, queue sizing and extra mapping records. Values come from an
// optional padkit.yaml, PADKIT_* environment variables and the conventional
// SDL_GAMECONTROLLERCONFIG override, in that order of increasing priority.
package config

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Options carries every knob the core accepts. The zero value is not
// meaningful; start from Default.
type Options struct {
	// JitterThreshold is the minimum axis delta the Jitter filter lets
	// through.
	JitterThreshold float32 `mapstructure:"jitter_threshold"`

	// DefaultDeadzone applies to sticks whose backend reports no deadzone of
	// its own.
	DefaultDeadzone float32 `mapstructure:"default_deadzone"`

	// RepeatAfter and RepeatEvery set the ButtonRepeated cadence.
	RepeatAfter time.Duration `mapstructure:"repeat_after"`
	RepeatEvery time.Duration `mapstructure:"repeat_every"`

	// QueueSize bounds the pending event queue between drains.
	QueueSize int `mapstructure:"queue_size"`

	// DefaultFilters enables the stock Jitter and Repeat filters.
	DefaultFilters bool `mapstructure:"default_filters"`

	// Mappings holds extra mapping records, one per line. Populated from
	// SDL_GAMECONTROLLERCONFIG when set.
	Mappings string `mapstructure:"mappings"`

	// BridgeAddr is the websocket URL of the gamepad bridge, used by
	// consumers running the core over the remote backend.
	BridgeAddr string `mapstructure:"bridge_addr"`
}

// Default returns the stock options.
func Default() Options {
	return Options{
		JitterThreshold: 0.01,
		DefaultDeadzone: 0.1,
		RepeatAfter:     500 * time.Millisecond,
		RepeatEvery:     30 * time.Millisecond,
		QueueSize:       256,
		DefaultFilters:  true,
		BridgeAddr:      "ws://127.0.0.1:8080/ws",
	}
}

// Load reads options from padkit.yaml in the working directory (when
// present) and the environment. A missing config file is not an error.
func Load() (Options, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("padkit")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("padkit")
	v.AutomaticEnv()
	if err := v.BindEnv("mappings", "SDL_GAMECONTROLLERCONFIG"); err != nil {
		return Options{}, errors.Wrap(err, "binding mapping override")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Options{}, errors.Wrap(err, "reading config file")
		}
	}

	var opts Options
	if err := v.Unmarshal(&opts); err != nil {
		return Options{}, errors.Wrap(err, "unmarshaling options")
	}
	return opts, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("jitter_threshold", d.JitterThreshold)
	v.SetDefault("default_deadzone", d.DefaultDeadzone)
	v.SetDefault("repeat_after", d.RepeatAfter)
	v.SetDefault("repeat_every", d.RepeatEvery)
	v.SetDefault("queue_size", d.QueueSize)
	v.SetDefault("default_filters", d.DefaultFilters)
	v.SetDefault("bridge_addr", d.BridgeAddr)
}
