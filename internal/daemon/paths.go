package daemon

import (
	"path/filepath"
)

func runtimeDir(home string) string {
	return filepath.Join(home, "runtime")
}

func addrPath(home string) string {
	return filepath.Join(runtimeDir(home), "seller.addr")
}

func lockPath(home string) string {
	return filepath.Join(runtimeDir(home), "seller.lock")
}

func logPath(home string) string {
	return filepath.Join(runtimeDir(home), "seller.log")
}
