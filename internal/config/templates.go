package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "server", "":
		return serverTemplate, nil
	case "xwayland":
		return xwaylandTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const serverTemplate = `name = "wlcored"
admin_addr = "127.0.0.1:9400"
cors_origins = ["http://localhost:3000"]

[xwayland]
enabled = false
`

const xwaylandTemplate = `name = "wlcored"
admin_addr = "127.0.0.1:9400"
cors_origins = ["http://localhost:3000"]

[xwayland]
enabled = true
path = "Xwayland"
args = []
socket_dir = "/tmp/.X11-unix"
lock_dir = "/tmp"
display_start = 0
display_end = 32
stop_timeout = "5s"
`
