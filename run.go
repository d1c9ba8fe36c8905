// Copyright 2020 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ad2 // import "github.com/go-daq/ad2"

import (
	"context"
	"sync"
	"time"

	"github.com/go-daq/ad2/dwf"
	"github.com/go-daq/ad2/fsm"
	"github.com/go-daq/ad2/session"
	"github.com/go-daq/ad2/trigger"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

// DefaultPeriod is the default polling period of an acquisition.
const DefaultPeriod = 100 * time.Millisecond

// Options configures an acquisition.
type Options struct {
	Name    string        // name of the acquisition (default: the device description)
	Trigger *trigger.Spec // trigger condition (default: the trigger set on the device)
	Period  time.Duration // polling period (default: DefaultPeriod)
	Limit   int64         // number of samples after which to stop (0: no limit)
}

// Stats holds the counters of an acquisition.
type Stats struct {
	Samples int64 `json:"samples"`
	Packets int64 `json:"packets"`
	Polls   int64 `json:"polls"`
}

// Acquisition streams the samples of an opened device to a sink,
// polling the instrument on a fixed period.
type Acquisition struct {
	dev  *Device
	sink session.Sink
	opts Options

	mu    sync.RWMutex
	state fsm.Status
	stats Stats
	err   error
}

// NewAcquisition returns an idle acquisition of dev, sending its packets to sink.
func NewAcquisition(dev *Device, sink session.Sink, opts Options) *Acquisition {
	if opts.Name == "" {
		opts.Name = dev.String()
	}
	if opts.Period <= 0 {
		opts.Period = DefaultPeriod
	}
	if opts.Trigger == nil {
		opts.Trigger = dev.trig
	}
	return &Acquisition{
		dev:   dev,
		sink:  sink,
		opts:  opts,
		state: fsm.Idle,
	}
}

// Name returns the name of the acquisition.
func (acq *Acquisition) Name() string { return acq.opts.Name }

// Device returns the device being acquired.
func (acq *Acquisition) Device() *Device { return acq.dev }

// State returns the current state of the acquisition.
func (acq *Acquisition) State() fsm.Status {
	acq.mu.RLock()
	defer acq.mu.RUnlock()
	return acq.state
}

// Stats returns a snapshot of the acquisition counters.
func (acq *Acquisition) Stats() Stats {
	acq.mu.RLock()
	defer acq.mu.RUnlock()
	return acq.stats
}

// Err returns the error that ended the acquisition, if any.
func (acq *Acquisition) Err() error {
	acq.mu.RLock()
	defer acq.mu.RUnlock()
	return acq.err
}

func (acq *Acquisition) setState(st fsm.Status) {
	acq.mu.Lock()
	acq.state = st
	acq.mu.Unlock()
}

func (acq *Acquisition) fail(err error) error {
	acq.mu.Lock()
	acq.state = fsm.Error
	acq.err = err
	acq.mu.Unlock()
	acq.dev.msg.Errorf("acquisition %q failed: %+v", acq.opts.Name, err)
	return err
}

// Run runs the acquisition until ctx is canceled, the sample limit is
// reached, the instrument is done recording or an error occurs.
//
// The device must be open. It is closed when Run returns.
// A header packet opens the session; once sent, an end packet always
// closes it.
func (acq *Acquisition) Run(ctx context.Context) error {
	var (
		dev = acq.dev
		msg = dev.msg
	)

	if !dev.open {
		return acq.fail(ErrDevClosed)
	}
	defer func() {
		err := Close(dev)
		if err != nil {
			msg.Errorf("could not close device: %+v", err)
		}
	}()

	err := acq.sink.Send(ctx, session.NewHeader(session.Header{
		Device:     dev.Name,
		SampleRate: dev.rate,
		Start:      time.Now().UTC(),
	}))
	if err != nil {
		return acq.fail(xerrors.Errorf("ad2: could not send session header: %w", err))
	}
	defer func() {
		// the session is closed even if ctx was canceled.
		err := acq.sink.Send(context.Background(), session.NewEnd())
		if err != nil {
			msg.Errorf("could not send session end: %+v", err)
		}
	}()

	masks, degraded := trigger.Translate(acq.opts.Trigger, msg)
	if degraded {
		msg.Debugf("acquisition %q uses the first stage of trigger %q", acq.opts.Name, acq.opts.Trigger.String())
	}

	err = Start(dev, masks, dev.rate)
	if err != nil {
		return acq.fail(err)
	}
	acq.setState(fsm.Armed)
	msg.Infof("acquisition %q armed (rate=%d Hz, trigger=%v)", acq.opts.Name, dev.rate, masks)

	tick := time.NewTicker(acq.opts.Period)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			acq.setState(fsm.Stopped)
			msg.Infof("acquisition %q stopped", acq.opts.Name)
			return nil
		case <-tick.C:
			done, err := acq.poll(ctx)
			if err != nil {
				return acq.fail(err)
			}
			if done {
				acq.setState(fsm.Stopped)
				msg.Infof("acquisition %q done (samples=%d)", acq.opts.Name, acq.Stats().Samples)
				return nil
			}
		}
	}
}

// poll runs one poll cycle, emitting the samples that are ready.
func (acq *Acquisition) poll(ctx context.Context) (done bool, err error) {
	out, err := Poll(acq.dev)

	acq.mu.Lock()
	acq.stats.Polls++
	acq.mu.Unlock()

	if err != nil {
		return false, err
	}

	switch out.Kind {
	case Error:
		return false, xerrors.Errorf("ad2: lost=%d, corrupt=%d: %w",
			out.Status.Lost, out.Status.Corrupt, ErrDataLoss,
		)

	case Continue:
		return out.Status.State == dwf.Done, nil

	case SamplesReady:
		acq.setState(fsm.Running)
		n := int64(out.Samples)
		if acq.opts.Limit > 0 {
			if left := acq.opts.Limit - acq.Stats().Samples; n > left {
				n = left
			}
		}
		for n > 0 {
			burst := n
			if burst > MaxBurst/UnitSize {
				burst = MaxBurst / UnitSize
			}
			err = EmitContext(ctx, acq.dev, int(burst), acq.sink)
			if err != nil {
				return false, err
			}
			acq.mu.Lock()
			acq.stats.Samples += burst
			acq.stats.Packets++
			acq.mu.Unlock()
			n -= burst
		}
		if acq.opts.Limit > 0 && acq.Stats().Samples >= acq.opts.Limit {
			return true, nil
		}
		return false, nil
	}

	return false, xerrors.Errorf("ad2: invalid poll outcome %v", out.Kind)
}

// RunAll runs all the acquisitions concurrently, until all of them
// have completed. The first error cancels the others.
func RunAll(ctx context.Context, acqs ...*Acquisition) error {
	grp, ctx := errgroup.WithContext(ctx)
	for i := range acqs {
		acq := acqs[i]
		grp.Go(func() error {
			return acq.Run(ctx)
		})
	}
	err := grp.Wait()
	if err != nil {
		return xerrors.Errorf("ad2: could not run acquisitions: %w", err)
	}
	return nil
}
