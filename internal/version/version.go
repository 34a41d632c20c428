package version

const (
	AppName    = "Jukebot"
	AppVersion = "0.4.0"
)
