//go:build rp2040

package main

import (
	"machine"
)

// InitUSB initializes USB serial communication
// TinyGo automatically sets up USB CDC-ACM on RP2040
func InitUSB() {
	// Configure machine.Serial (which is USB CDC on RP2040)
	err := machine.Serial.Configure(machine.UARTConfig{})
	if err != nil {
		return
	}
}

// USBWriteBytes writes multiple bytes to USB, dropping them if no host is
// listening. The harness never waits on the link.
func USBWriteBytes(data []byte) {
	written := 0
	for written < len(data) {
		n, err := machine.Serial.Write(data[written:])
		if err != nil || n == 0 {
			return
		}
		written += n
	}
}

// consoleLine writes one text log line
func consoleLine(s string) {
	USBWriteBytes([]byte(s))
	USBWriteBytes([]byte("\r\n"))
}
