package config

const (
	defaultConfigPath           = "~/.config/episodic/config.toml"
	defaultDownloadDir          = "~/Downloads"
	defaultStateDir             = "~/.local/share/episodic"
	defaultLogDir               = "~/.local/share/episodic/logs"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultFindTimeout          = 2
	defaultNavigationTimeout    = 30
	defaultPollIntervalMS       = 100
	defaultSettleDelayMS        = 1000
	defaultPlayerTimeout        = 45
	defaultMinFreeMB            = 512
	defaultNotifyRequestTimeout = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DownloadDir: defaultDownloadDir,
			StateDir:    defaultStateDir,
			LogDir:      defaultLogDir,
		},
		Browser: Browser{
			Headless:          true,
			FindTimeout:       defaultFindTimeout,
			NavigationTimeout: defaultNavigationTimeout,
			PollIntervalMS:    defaultPollIntervalMS,
		},
		Auth: Auth{
			SettleDelayMS: defaultSettleDelayMS,
		},
		Capture: Capture{
			PlayerTimeout: defaultPlayerTimeout,
			MinFreeMB:     defaultMinFreeMB,
			Progress:      true,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
