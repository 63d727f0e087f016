// Package broker manages the MQTT session shared by the sensor source, the
// notification publisher and the LED output.
//
// The session reconnects on its own and re-subscribes every topic that was
// subscribed successfully before the connection dropped.
package broker
