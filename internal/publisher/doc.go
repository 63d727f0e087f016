// Package publisher delivers sentinel notifications.
//
// Publisher is the capability the main loop depends on. LogPublisher writes
// events to the log, MQTTPublisher sends them to a broker topic derived from
// the event name, and KafkaPublisher appends them to a Kafka topic keyed by
// the event name. MQTT and Kafka share the JSON envelope built by Encode.
package publisher
