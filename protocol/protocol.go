// Package protocol implements the telemetry block format the harness firmware
// streams to the host: Klipper-style framing with VLQ-encoded fields.
package protocol

// Version of the telemetry wire format.
const Version = "1"

// Block layout:
//
//	len | seq | payload ... | crc hi | crc lo | sync
//
// len counts the whole block including header and trailer. BlockMax keeps the
// length byte below SyncByte so a block can never start with a sync byte.
const (
	BlockHeaderSize  = 2
	BlockTrailerSize = 3
	BlockMin         = BlockHeaderSize + BlockTrailerSize
	BlockMax         = SyncByte - 1

	PositionLen = 0
	PositionSeq = 1

	SyncByte = 0x7E
	SeqDest  = 0x10
	SeqMask  = 0x0F
)

// Message identifiers, carried as the first VLQ of every payload.
const (
	MsgLog   = 1
	MsgMount = 2
	MsgCycle = 3
	MsgTimer = 4
)
