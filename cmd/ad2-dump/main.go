// Copyright 2020 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command ad2-dump reads a logic session from a file or a socket and
// dumps its packets and per-channel duty cycles on screen.
//
// Usage: ad2-dump [options]
//
// ex:
//
//  $> ad2-dump -i out.ad2
//  $> ad2-dump -i tcp://127.0.0.1:44000 -v
package main // import "github.com/go-daq/ad2/cmd/ad2-dump"

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/go-daq/ad2"
	"github.com/go-daq/ad2/log"
	"github.com/go-daq/ad2/session"
	"golang.org/x/xerrors"
	"gonum.org/v1/gonum/stat"
)

func main() {
	var (
		iname   = flag.String("i", "out.ad2", "session input (file name or tcp://, ipc:// end-point)")
		verbose = flag.Bool("v", false, "dump every packet")
		lvl     = flag.String("lvl", "INFO", "message level (DEBUG|INFO|WARN|ERROR)")
	)
	flag.Parse()

	level, err := log.ParseLevel(*lvl)
	if err != nil {
		log.Fatalf("could not parse message level: %+v", err)
	}
	msg := log.NewMsgStream("ad2-dump", level, os.Stdout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt)
	go func() {
		select {
		case <-sigc:
			cancel()
		case <-ctx.Done():
		}
	}()

	err = run(ctx, *iname, *verbose, os.Stdout, msg)
	if err != nil {
		msg.Errorf("could not dump session: %+v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, iname string, verbose bool, w io.Writer, msg log.MsgStream) error {
	src, err := session.Open(iname)
	if err != nil {
		return xerrors.Errorf("could not open session input: %w", err)
	}
	defer src.Close()

	var dump dumper
	for {
		pkt, err := src.Recv(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				msg.Warnf("interrupted")
				break
			}
			return xerrors.Errorf("could not read packet: %w", err)
		}
		if verbose {
			fmt.Fprintf(w, "%v\n", pkt)
		}
		err = dump.process(pkt)
		if err != nil {
			return err
		}
	}

	dump.summary(w)
	return nil
}

// dumper accumulates per-channel statistics over the logic packets of a session.
type dumper struct {
	hdr     *session.Header
	packets int64
	samples int64
	ends    int64

	duty [ad2.NumChannels][]float64 // fraction of high samples, per packet
}

func (dump *dumper) process(pkt session.Packet) error {
	switch pkt.Kind {
	case session.KindHeader:
		dump.hdr = pkt.Header
	case session.KindEnd:
		dump.ends++
	case session.KindLogic:
		lgc := pkt.Logic
		if lgc.UnitSize != ad2.UnitSize {
			return xerrors.Errorf("invalid logic unit size %d (want %d)", lgc.UnitSize, ad2.UnitSize)
		}
		n := lgc.Samples()
		if n == 0 {
			return nil
		}
		var highs [ad2.NumChannels]int
		for i := 0; i < n; i++ {
			word := lgc.Word(i)
			for ch := range highs {
				if word&(1<<uint(ch)) != 0 {
					highs[ch]++
				}
			}
		}
		for ch, v := range highs {
			dump.duty[ch] = append(dump.duty[ch], float64(v)/float64(n))
		}
		dump.packets++
		dump.samples += int64(n)
	default:
		return xerrors.Errorf("invalid packet kind %v", pkt.Kind)
	}
	return nil
}

// dutyCycle returns the mean and standard deviation of the per-packet
// duty cycle of channel ch.
func (dump *dumper) dutyCycle(ch int) (mean, std float64) {
	vs := dump.duty[ch]
	switch len(vs) {
	case 0:
		return 0, 0
	case 1:
		return vs[0], 0
	}
	return stat.MeanStdDev(vs, nil)
}

func (dump *dumper) summary(w io.Writer) {
	if dump.hdr != nil {
		fmt.Fprintf(w, "device: %s\n", dump.hdr.Device)
		fmt.Fprintf(w, "rate:   %d Hz\n", dump.hdr.SampleRate)
		fmt.Fprintf(w, "start:  %v\n", dump.hdr.Start.UTC())
	}
	fmt.Fprintf(w, "logic packets: %d, samples: %d, ended: %v\n", dump.packets, dump.samples, dump.ends > 0)
	if dump.packets == 0 {
		return
	}
	for ch := 0; ch < ad2.NumChannels; ch++ {
		mean, std := dump.dutyCycle(ch)
		fmt.Fprintf(w, "ch-%02d: duty=%.3f +/- %.3f\n", ch, mean, std)
	}
}
