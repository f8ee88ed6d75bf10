package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix is used when the configuration leaves the prefix empty.
const DefaultTopicPrefix = "ocppgw"

// Topics builds the gateway's topic names under a prefix.
//
//	topics := mqtt.NewTopics("ocppgw")
//	topics.ConnectorStatus("CP001", 1) // "ocppgw/station/CP001/connector/1/status"
type Topics struct {
	prefix string
}

// NewTopics returns a builder for prefix, falling back to DefaultTopicPrefix.
func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// Prefix returns the topic prefix.
func (t Topics) Prefix() string {
	return t.prefix
}

// SystemStatus is the retained liveness topic of the gateway itself.
func (t Topics) SystemStatus() string {
	return t.prefix + "/system/status"
}

// StationStatus is the retained online flag of a station.
func (t Topics) StationStatus(stationID string) string {
	return fmt.Sprintf("%s/station/%s/status", t.prefix, stationID)
}

// StationBoot carries boot notifications of a station.
func (t Topics) StationBoot(stationID string) string {
	return fmt.Sprintf("%s/station/%s/boot", t.prefix, stationID)
}

// ConnectorStatus is the retained status of one connector.
func (t Topics) ConnectorStatus(stationID string, connectorID int) string {
	return fmt.Sprintf("%s/station/%s/connector/%d/status", t.prefix, stationID, connectorID)
}

// Session carries session started and stopped events of a station.
func (t Topics) Session(stationID string) string {
	return fmt.Sprintf("%s/station/%s/session", t.prefix, stationID)
}

// Command is where operators submit commands for a station.
func (t Topics) Command(stationID string) string {
	return fmt.Sprintf("%s/command/%s", t.prefix, stationID)
}

// CommandResult is where the gateway answers commands for a station.
func (t Topics) CommandResult(stationID string) string {
	return t.Command(stationID) + "/result"
}

// AllCommands matches the command topic of every station.
func (t Topics) AllCommands() string {
	return t.prefix + "/command/+"
}

// AllStations matches every station topic.
func (t Topics) AllStations() string {
	return t.prefix + "/station/#"
}

// StationFromCommand extracts the station identity from a command topic.
func (t Topics) StationFromCommand(topic string) (string, bool) {
	id, ok := strings.CutPrefix(topic, t.prefix+"/command/")
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
