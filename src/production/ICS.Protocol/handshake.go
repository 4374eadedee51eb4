package protocol

import (
	"strconv"
	"strings"

	config "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Config"
)

// HandshakeBody renders the option block returned from GET /iclock/cdata.
func HandshakeBody(serial string, opts config.ProtocolConfig) string {
	lines := []string{
		"GET OPTION FROM:" + serial,
		"ATTLOGStamp=" + opts.ATTLogStamp,
		"OPERLOGStamp=" + opts.OperLogStamp,
		"ATTPHOTOStamp=" + opts.ATTPhotoStamp,
		"ErrorDelay=" + strconv.Itoa(opts.ErrorDelay),
		"Delay=" + strconv.Itoa(opts.Delay),
		"TransTimes=" + opts.TransTimes,
		"TransInterval=" + strconv.Itoa(opts.TransInterval),
		"TransFlag=" + opts.TransFlag,
		"TimeZone=" + strconv.Itoa(opts.TimeZone),
		"Realtime=" + flag(opts.Realtime),
		"Encrypt=" + flag(opts.Encrypt),
	}
	return strings.Join(lines, "\n")
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
