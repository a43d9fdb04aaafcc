package operator

import (
	"fmt"
	"strings"
)

// ConfigPath is the Duniter environment file on the managed host.
const ConfigPath = "/etc/duniter/env_file"

const (
	cmdDetectBinary   = "command -v duniter2"
	cmdDetectServices = "systemctl list-unit-files | grep -iE 'duniter|distance-oracle'"
	cmdStartOracle    = "sudo systemctl start distance-oracle.service"
	cmdStopOracle     = "sudo systemctl stop distance-oracle.service"
	cmdOracleLogs     = "journalctl -ru distance-oracle -n 100"
	cmdReadConfig     = "sudo cat " + ConfigPath
)

// NodeLogsCommand returns the journal query for a node and the oracle.
func NodeLogsCommand(nodeType string) string {
	return fmt.Sprintf("journalctl -ru duniter-%s.service -u distance-oracle -n 100", nodeType)
}

// StartNodeCommand returns the systemctl start command for a node.
func StartNodeCommand(nodeType string) string {
	return fmt.Sprintf("sudo systemctl start duniter-%s.service", nodeType)
}

// StopNodeCommand returns the systemctl stop command for a node.
func StopNodeCommand(nodeType string) string {
	return fmt.Sprintf("sudo systemctl stop duniter-%s.service", nodeType)
}

// WriteConfigCommand returns the command replacing the config file with the
// trimmed text. The text is not escaped.
func WriteConfigCommand(text string) string {
	return fmt.Sprintf("echo \"%s\" | sudo tee %s", strings.TrimSpace(text), ConfigPath)
}
