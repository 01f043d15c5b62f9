// Package discovery finds CAN-over-TCP gateways on the local network
// via mDNS, and lets a gateway announce itself.
//
// Gateways advertise the service type "_drivecan._tcp" with TXT
// records describing the bus behind them: bus name, CAN bitrate,
// checksum mode and the addresses of the attached drives. The browser
// aggregates announcements from multiple network interfaces into one
// entry per gateway.
package discovery
