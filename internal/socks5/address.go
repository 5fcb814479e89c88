package socks5

import (
	"encoding/binary"
	"fmt"
	"net"
	"net/netip"
	"strconv"
)

// MaxDomainLen is the longest domain name that fits the one-byte length
// prefix of an ATYP 0x03 address.
const MaxDomainLen = 255

// Addr is a SOCKS5 address: an IPv4 or IPv6 address, or a domain name to be
// resolved by the proxy, plus a port.
type Addr struct {
	Type   byte
	IP     netip.Addr
	Domain string
	Port   uint16
}

// AddrFromAddrPort returns the IP form of ap. IPv4-mapped IPv6 addresses are
// sent as IPv4.
func AddrFromAddrPort(ap netip.AddrPort) Addr {
	ip := ap.Addr().Unmap()
	if ip.Is4() {
		return Addr{Type: ATYPIPv4, IP: ip, Port: ap.Port()}
	}
	return Addr{Type: ATYPIPv6, IP: ip, Port: ap.Port()}
}

// DomainAddr returns the domain form of name:port.
func DomainAddr(name string, port uint16) (Addr, error) {
	if len(name) > MaxDomainLen {
		return Addr{}, fmt.Errorf("%w: domain name is %d bytes, max %d", ErrUnsupportedAddressType, len(name), MaxDomainLen)
	}
	return Addr{Type: ATYPDomain, Domain: name, Port: port}, nil
}

// ParseAddr parses a host:port string. IP literals produce the IP form, and
// anything else is treated as a domain name.
func ParseAddr(address string) (Addr, error) {
	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return Addr{}, fmt.Errorf("parse address %q: %w", address, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return Addr{}, fmt.Errorf("parse address %q: invalid port", address)
	}
	if ip, err := netip.ParseAddr(host); err == nil {
		if ip.Zone() != "" {
			return Addr{}, fmt.Errorf("%w: zoned address %q", ErrUnsupportedAddressType, host)
		}
		return AddrFromAddrPort(netip.AddrPortFrom(ip, uint16(port))), nil
	}
	return DomainAddr(host, uint16(port))
}

// fields splits a into the ATYP, address and port arguments taken by the
// txsocks5 request and reply constructors. Those add the domain length
// prefix themselves with a plain byte conversion, so the length is checked
// here.
func (a Addr) fields() (atyp byte, host, port []byte, err error) {
	switch a.Type {
	case ATYPIPv4:
		if !a.IP.Is4() {
			return 0, nil, nil, fmt.Errorf("%w: %s is not an IPv4 address", ErrUnsupportedAddressType, a.IP)
		}
		ip := a.IP.As4()
		host = ip[:]
	case ATYPIPv6:
		if !a.IP.Is6() {
			return 0, nil, nil, fmt.Errorf("%w: %s is not an IPv6 address", ErrUnsupportedAddressType, a.IP)
		}
		ip := a.IP.As16()
		host = ip[:]
	case ATYPDomain:
		if len(a.Domain) > MaxDomainLen {
			return 0, nil, nil, fmt.Errorf("%w: domain name is %d bytes, max %d", ErrUnsupportedAddressType, len(a.Domain), MaxDomainLen)
		}
		host = []byte(a.Domain)
	default:
		return 0, nil, nil, fmt.Errorf("%w: %#04x", ErrUnsupportedAddressType, a.Type)
	}
	return a.Type, host, binary.BigEndian.AppendUint16(nil, a.Port), nil
}

// addrFromWire decodes an address as read by txsocks5, where a domain still
// carries its length prefix.
func addrFromWire(atyp byte, host, port []byte) (Addr, error) {
	if len(port) != 2 {
		return Addr{}, fmt.Errorf("%w: port is %d bytes", ErrUnexpectedResponse, len(port))
	}
	a := Addr{Type: atyp, Port: binary.BigEndian.Uint16(port)}

	switch {
	case atyp == ATYPIPv4 && len(host) == 4:
		a.IP = netip.AddrFrom4([4]byte(host))
	case atyp == ATYPIPv6 && len(host) == 16:
		a.IP = netip.AddrFrom16([16]byte(host))
	case atyp == ATYPDomain && len(host) > 0 && int(host[0]) == len(host)-1:
		a.Domain = string(host[1:])
	default:
		return Addr{}, fmt.Errorf("%w: address type %#04x with %d address bytes", ErrUnexpectedResponse, atyp, len(host))
	}
	return a, nil
}

// Host returns the IP or domain part of a, without the port.
func (a Addr) Host() string {
	if a.Type == ATYPDomain {
		return a.Domain
	}
	return a.IP.String()
}

func (a Addr) String() string {
	return net.JoinHostPort(a.Host(), strconv.Itoa(int(a.Port)))
}
