//go:build rp2040 && spiflash

package main

import (
	"machine"

	"tinygo.org/x/drivers/flash"
	"tinygo.org/x/tinyfs"
)

// External SPI NOR flash on SPI1. The chip select is board wiring.
const spiFlashCS = machine.GPIO9

// flashDevice probes an external SPI NOR chip.
func flashDevice() (tinyfs.BlockDevice, error) {
	dev := flash.NewSPI(
		machine.SPI1,
		machine.SPI1_SDO_PIN,
		machine.SPI1_SDI_PIN,
		machine.SPI1_SCK_PIN,
		spiFlashCS,
	)
	if err := dev.Configure(&flash.DeviceConfig{Identifier: flash.DefaultDeviceIdentifier}); err != nil {
		return nil, err
	}
	return dev, nil
}
