package discovery

import (
	"fmt"
	"strconv"
	"strings"
)

// mDNS service constants.
const (
	// ServiceType is the service type gateways register under.
	ServiceType = "_drivecan._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// DefaultPort is the gateway's default TCP port.
	DefaultPort = 2323
)

// TXT record keys.
const (
	txtKeyBus      = "bus"
	txtKeyBitrate  = "br"
	txtKeyChecksum = "ck"
	txtKeyMotors   = "mt"
	txtKeyVersion  = "v"
)

// GatewayInfo describes the bus behind a gateway, as carried in its
// TXT records.
type GatewayInfo struct {
	// BusName labels the bus, matching the name used in protocol logs.
	BusName string

	// CANBitrate is the bus bitrate in bit/s.
	CANBitrate int

	// Checksum is the frame checksum mode name.
	Checksum string

	// Motors lists the addresses of the attached drives.
	Motors []uint8

	// Version is the gateway firmware version string.
	Version string
}

// EncodeTXT renders the info as mDNS TXT strings.
func EncodeTXT(info *GatewayInfo) []string {
	txt := []string{
		txtKeyBus + "=" + info.BusName,
		txtKeyBitrate + "=" + strconv.Itoa(info.CANBitrate),
	}
	if info.Checksum != "" {
		txt = append(txt, txtKeyChecksum+"="+info.Checksum)
	}
	if len(info.Motors) > 0 {
		addrs := make([]string, len(info.Motors))
		for i, a := range info.Motors {
			addrs[i] = strconv.Itoa(int(a))
		}
		txt = append(txt, txtKeyMotors+"="+strings.Join(addrs, ","))
	}
	if info.Version != "" {
		txt = append(txt, txtKeyVersion+"="+info.Version)
	}
	return txt
}

// DecodeTXT parses gateway TXT strings. Unknown keys are ignored; a
// missing bus name is an error since it identifies the gateway.
func DecodeTXT(txt []string) (*GatewayInfo, error) {
	info := &GatewayInfo{}
	for _, record := range txt {
		key, value, ok := strings.Cut(record, "=")
		if !ok {
			continue
		}
		switch key {
		case txtKeyBus:
			info.BusName = value
		case txtKeyBitrate:
			br, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("invalid bitrate %q: %w", value, err)
			}
			info.CANBitrate = br
		case txtKeyChecksum:
			info.Checksum = value
		case txtKeyMotors:
			for _, part := range strings.Split(value, ",") {
				addr, err := strconv.ParseUint(part, 10, 8)
				if err != nil {
					return nil, fmt.Errorf("invalid motor address %q: %w", part, err)
				}
				info.Motors = append(info.Motors, uint8(addr))
			}
		case txtKeyVersion:
			info.Version = value
		}
	}
	if info.BusName == "" {
		return nil, fmt.Errorf("TXT records carry no bus name")
	}
	return info, nil
}
