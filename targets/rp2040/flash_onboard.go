//go:build rp2040 && !spiflash

package main

import (
	"machine"

	"tinygo.org/x/tinyfs"
)

// flashDevice is the on-board QSPI flash past the program image.
func flashDevice() (tinyfs.BlockDevice, error) {
	return machine.Flash, nil
}
