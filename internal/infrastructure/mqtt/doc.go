// Package mqtt connects the gateway to an MQTT broker.
//
// The broker is the gateway's northbound event bus: station and connector
// status, session events and system liveness are published there, and
// operator commands can be submitted on a command topic instead of the
// REST API.
//
//	charge points ⇄ gateway ⇄ MQTT broker ⇄ back-office consumers
//
// # Topics
//
// Every topic lives under a configurable prefix (default "ocppgw"):
//
//	ocppgw/system/status                           retained gateway liveness (LWT)
//	ocppgw/station/{id}/status                     retained online flag
//	ocppgw/station/{id}/boot                       boot notifications
//	ocppgw/station/{id}/connector/{n}/status       retained connector status
//	ocppgw/station/{id}/session                    session started/stopped
//	ocppgw/command/{id}                            command requests (subscribed)
//	ocppgw/command/{id}/result                     command results
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	events := mqtt.NewEventPublisher(client, cfg.MQTT.TopicPrefix, byte(cfg.MQTT.QoS))
//
// The client reconnects automatically and restores its subscriptions.
// A Last Will on the system status topic reports unexpected disconnects.
package mqtt
