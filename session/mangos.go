// Copyright 2020 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package session // import "github.com/go-daq/ad2/session"

import (
	"context"
	"io"
	"strings"
	"time"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/pub"
	"go.nanomsg.org/mangos/v3/protocol/sub"
	"golang.org/x/xerrors"

	_ "go.nanomsg.org/mangos/v3/transport/ipc"
	_ "go.nanomsg.org/mangos/v3/transport/tcp"
)

// IsSocketAddr reports whether addr names a mangos end-point
// (tcp://, ipc:// or unix://) rather than a file.
func IsSocketAddr(addr string) bool {
	for _, scheme := range []string{"tcp://", "ipc://", "unix://"} {
		if strings.HasPrefix(addr, scheme) {
			return true
		}
	}
	return false
}

func sockAddr(addr string) string {
	if strings.HasPrefix(addr, "unix://") {
		return "ipc://" + strings.TrimPrefix(addr, "unix://")
	}
	return addr
}

// Pub is a Sink publishing packets on a mangos PUB socket.
//
// Subscribers that are not connected when a packet is sent miss it.
type Pub struct {
	sck mangos.Socket
	lis mangos.Listener
}

// NewPub creates a PUB socket listening on addr.
func NewPub(addr string) (*Pub, error) {
	sck, lis, err := makeListener(pub.NewSocket, sockAddr(addr))
	if err != nil {
		return nil, err
	}
	return &Pub{sck: sck, lis: lis}, nil
}

// Addr returns the address the socket listens on.
func (p *Pub) Addr() string {
	return p.lis.Address()
}

func (p *Pub) Send(ctx context.Context, pkt Packet) error {
	raw, err := pkt.MarshalBinary()
	if err != nil {
		return xerrors.Errorf("could not marshal %v packet: %w", pkt.Kind, err)
	}
	err = p.sck.Send(raw)
	if err != nil {
		return xerrors.Errorf("could not publish %v packet: %w", pkt.Kind, err)
	}
	return nil
}

func (p *Pub) Close() error {
	return p.sck.Close()
}

// Sub is a Source receiving packets from a mangos PUB socket.
type Sub struct {
	sck mangos.Socket
	end bool
}

// NewSub creates a SUB socket connected to addr.
func NewSub(addr string) (*Sub, error) {
	sck, err := sub.NewSocket()
	if err != nil {
		return nil, xerrors.Errorf("could not create sub socket: %w", err)
	}

	err = sck.SetOption(mangos.OptionSubscribe, []byte{})
	if err != nil {
		_ = sck.Close()
		return nil, xerrors.Errorf("could not subscribe: %w", err)
	}

	err = sck.SetOption(mangos.OptionRecvDeadline, 100*time.Millisecond)
	if err != nil {
		_ = sck.Close()
		return nil, xerrors.Errorf("could not set receive deadline: %w", err)
	}

	err = sck.Dial(sockAddr(addr))
	if err != nil {
		_ = sck.Close()
		return nil, xerrors.Errorf("could not dial %q: %w", addr, err)
	}

	return &Sub{sck: sck}, nil
}

// Recv returns the next packet. It returns io.EOF once an End packet
// has been received.
func (s *Sub) Recv(ctx context.Context) (Packet, error) {
	if s.end {
		return Packet{}, io.EOF
	}
	for {
		select {
		case <-ctx.Done():
			return Packet{}, ctx.Err()
		default:
		}

		raw, err := s.sck.Recv()
		switch {
		case err == nil:
			var pkt Packet
			err = pkt.UnmarshalBinary(raw)
			if err != nil {
				return pkt, err
			}
			if pkt.Kind == KindEnd {
				s.end = true
			}
			return pkt, nil
		case xerrors.Is(err, mangos.ErrRecvTimeout):
			continue
		default:
			return Packet{}, xerrors.Errorf("could not receive packet: %w", err)
		}
	}
}

func (s *Sub) Close() error {
	return s.sck.Close()
}

func makeListener(fun func() (mangos.Socket, error), ep string) (mangos.Socket, mangos.Listener, error) {
	sck, err := fun()
	if err != nil {
		return nil, nil, xerrors.Errorf("could not create socket %q: %w", ep, err)
	}

	lis, err := sck.NewListener(ep, nil)
	if err != nil {
		_ = sck.Close()
		return nil, nil, xerrors.Errorf("could not create listener %q: %w", ep, err)
	}

	err = lis.Listen()
	if err != nil {
		_ = lis.Close()
		_ = sck.Close()
		return nil, nil, xerrors.Errorf("could not listen on %q: %w", ep, err)
	}

	return sck, lis, nil
}

var (
	_ Sink   = (*Pub)(nil)
	_ Source = (*Sub)(nil)
)
