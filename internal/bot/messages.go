package bot

const (
	messageCommandFailed  = "Something went wrong while handling that command. Please try again later."
	messageSetUsage       = "Usage: `set <key> <value>`"
	messageUnknownSetting = "Unknown setting `%s`."
	messageSettingUpdated = "Setting `%s` updated."
)
