package sckt

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

var udpLog = logrus.WithField("pkg", "sckt")

// UDPSocket is a real UDP datagram socket, dual-stacked over IPv4 and IPv6,
// with multicast group join/leave for both families. It generalizes the
// teacher's IPv6-only udp6socket to both address families, since the
// "all-coap-devices." hostname resolves to both an IPv4 and an IPv6 group.
type UDPSocket struct {
	conn *net.UDPConn
	p4   *ipv4.PacketConn
	p6   *ipv6.PacketConn
	iface *net.Interface
}

// ListenUDP opens a UDP socket on addr (e.g. ":5683" or "[::]:0") and
// prepares both the IPv4 and IPv6 packet-conn wrappers needed for
// multicast membership management, bound to the network interface named by
// ifaceName (empty uses the system default for each group join).
func ListenUDP(addr string, ifaceName string) (*UDPSocket, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, err
	}

	s := &UDPSocket{
		conn: conn,
		p4:   ipv4.NewPacketConn(conn),
		p6:   ipv6.NewPacketConn(conn),
	}
	if ifaceName != "" {
		iface, err := net.InterfaceByName(ifaceName)
		if err != nil {
			conn.Close()
			return nil, err
		}
		s.iface = iface
	}
	udpLog.WithField("local", conn.LocalAddr()).Info("opened UDP socket")
	return s, nil
}

func (s *UDPSocket) LocalAddr() Address {
	return NewUDPAddress(s.conn.LocalAddr().(*net.UDPAddr))
}

func (s *UDPSocket) SendTo(ctx context.Context, buf []byte, addr Address) error {
	ua, ok := addr.(UDPAddress)
	if !ok {
		return fmt.Errorf("sckt: UDPSocket.SendTo requires a UDPAddress, got %T", addr)
	}
	if dl, ok := ctx.Deadline(); ok {
		s.conn.SetWriteDeadline(dl)
		defer s.conn.SetWriteDeadline(time.Time{})
	}
	n, err := s.conn.WriteToUDP(buf, ua.UDPAddr())
	if err != nil {
		return err
	}
	if n != len(buf) {
		return fmt.Errorf("sckt: short write, wrote %d of %d bytes", n, len(buf))
	}
	return nil
}

func (s *UDPSocket) RecvFrom(ctx context.Context, buf []byte) (int, Address, Address, error) {
	if dl, ok := ctx.Deadline(); ok {
		s.conn.SetReadDeadline(dl)
	} else {
		s.conn.SetReadDeadline(time.Time{})
	}

	type result struct {
		n         int
		data      []byte
		remote    *net.UDPAddr
		localHint net.IP
		err       error
	}
	// Read into a goroutine-local buffer rather than the caller's buf:
	// ctx may fire before this goroutine's read completes, and the caller
	// is free to reuse buf as soon as RecvFrom returns on the ctx.Done()
	// path, while this goroutine keeps running until the read unblocks.
	resCh := make(chan result, 1)
	go func() {
		tmp := make([]byte, len(buf))
		cm4 := &ipv4.ControlMessage{}
		n, cm, remote, err := s.p4.ReadFrom(tmp)
		if err == nil {
			if cm != nil {
				cm4 = cm
			}
			resCh <- result{n: n, data: tmp, remote: remote.(*net.UDPAddr), localHint: cm4.Dst, err: nil}
			return
		}
		n2, remote2, err2 := s.conn.ReadFromUDP(tmp)
		resCh <- result{n: n2, data: tmp, remote: remote2, err: err2}
	}()

	select {
	case <-ctx.Done():
		return 0, nil, nil, ctx.Err()
	case r := <-resCh:
		if r.err != nil {
			return 0, nil, nil, r.err
		}
		n := copy(buf, r.data[:r.n])
		var hint Address
		if r.localHint != nil {
			hint = NewUDPAddress(&net.UDPAddr{IP: r.localHint})
		}
		return n, NewUDPAddress(r.remote), hint, nil
	}
}

// JoinMulticastGroup joins group on the bound interface. IPv4 and IPv6
// groups are routed to the matching PacketConn, mirroring the teacher's
// udp6socket JoinGroup call but generalized to both families.
func (s *UDPSocket) JoinMulticastGroup(group Address) error {
	ua, ok := group.(UDPAddress)
	if !ok {
		return fmt.Errorf("sckt: JoinMulticastGroup requires a UDPAddress")
	}
	if ip4 := ua.addr.IP.To4(); ip4 != nil {
		return s.p4.JoinGroup(s.iface, &net.UDPAddr{IP: ip4})
	}
	return s.p6.JoinGroup(s.iface, &net.UDPAddr{IP: ua.addr.IP})
}

func (s *UDPSocket) LeaveMulticastGroup(group Address) error {
	ua, ok := group.(UDPAddress)
	if !ok {
		return fmt.Errorf("sckt: LeaveMulticastGroup requires a UDPAddress")
	}
	if ip4 := ua.addr.IP.To4(); ip4 != nil {
		return s.p4.LeaveGroup(s.iface, &net.UDPAddr{IP: ip4})
	}
	return s.p6.LeaveGroup(s.iface, &net.UDPAddr{IP: ua.addr.IP})
}

func (s *UDPSocket) Close() error {
	return s.conn.Close()
}
