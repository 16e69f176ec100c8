package offering

import (
	"fmt"
	"os"
	"path/filepath"
)

const scaffoldConfig = `name: %s
description: Describe what this offering does.
fee:
  amount: 1
  kind: fixed
requires_external_funds: false
sla_minutes: 60
requirements:
  type: object
  properties:
    input:
      type: string
  required: [input]
handler:
  command: handler
  capabilities: [execute]
`

const scaffoldHandler = `#!/bin/sh
# Handler for one offering capability. Capability name arrives as $1,
# the job request as JSON on stdin; reply with JSON on stdout.
read request
case "$1" in
execute)
  echo '{"deliverable":{"type":"text","value":"\"hello from %s\""}}'
  ;;
*)
  echo "unsupported capability: $1" >&2
  exit 1
  ;;
esac
`

// Scaffold writes a starter offering.yaml and handler script into the
// identity's namespace. It refuses to overwrite an existing offering.
func Scaffold(home, identity, name string) (string, error) {
	if !slugPattern.MatchString(name) {
		return "", fmt.Errorf("offering name %q is not a slug", name)
	}
	dir := (&Registry{Home: home}).Dir(identity, name)
	if _, err := os.Stat(filepath.Join(dir, ConfigFileName)); err == nil {
		return "", fmt.Errorf("offering %q already exists at %s", name, dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(fmt.Sprintf(scaffoldConfig, name)), 0o644); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, "handler"), []byte(fmt.Sprintf(scaffoldHandler, name)), 0o755); err != nil {
		return "", err
	}
	return dir, nil
}
