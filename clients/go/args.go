package main

var args struct {
	Command string   `arg:"positional" help:"Command to execute"`
	Args    []string `arg:"positional" help:"Command arguments"`
	URL     string   `arg:"--url,env:MESSENGER_URL" help:"Node URL" default:"http://localhost:8080"`
	Config  string   `arg:"-c,--config,env:MESSENGER_CONFIG" help:"Config directory (default: ~/.messenger)"`
}
