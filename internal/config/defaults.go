package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel:              "info",
			MaxConcurrentMessages: 3,
		},
		LLM: LLMConfig{
			Model: "gpt-4o-mini",
		},
		Publisher: PublisherConfig{
			Headless:   true,
			ProfileDir: "~/.vibelog/chrome-profiles/default",
			ThreadMode: false,
		},
		Memory: MemoryConfig{
			DBPath:                    "~/.vibelog/vibelog.db",
			BaseURL:                   "https://vibelog.app",
			MaxHistoryPerConversation: 100,
		},
		Session: SessionConfig{
			DBPath: "~/.vibelog/sessions.db",
			Secret: "${VIBELOG_SESSION_SECRET}",
		},
		Channels: ChannelsConfig{
			Telegram: TelegramConfig{
				Enabled:   false,
				ParseMode: "Markdown",
			},
			CLI: CLIConfig{
				Enabled: true,
			},
		},
	}
}
