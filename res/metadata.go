package res

const (
	AppName       = "trackplayer-bridge"
	DisplayName   = "TrackPlayer"
	AppVersion    = "0.3.0"
	AppVersionTag = "v" + AppVersion
	ConfigFile    = "config.toml"
	GithubURL     = "https://github.com/supersonic-app/trackplayer-bridge"
	Copyright     = "Copyright © 2022–2026 Drew Weymouth and contributors"
)
