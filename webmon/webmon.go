// Copyright 2020 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package webmon serves the status of running acquisitions over HTTP.
//
// The /status end-point is a websocket streaming JSON reports, the
// /snapshot end-point returns a single JSON report.
package webmon // import "github.com/go-daq/ad2/webmon"

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-daq/ad2"
	"github.com/go-daq/ad2/fsm"
	"github.com/go-daq/ad2/log"
	"golang.org/x/net/websocket"
)

// Monitored is an acquisition whose status can be reported.
type Monitored interface {
	Name() string
	State() fsm.Status
	Stats() ad2.Stats
}

// Report is a snapshot of the monitored acquisitions.
type Report struct {
	Acqs      []Acq  `json:"acqs"`
	Timestamp string `json:"timestamp"`
}

// Acq is the status of one acquisition.
type Acq struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	ad2.Stats
}

// Server is the HTTP monitoring server.
type Server struct {
	Period time.Duration // period of /status reports (at most 1s)

	msg  log.MsgStream
	srv  *http.Server
	quit chan struct{}

	mu   sync.RWMutex
	acqs []Monitored
}

// New creates a monitoring server listening on addr.
func New(addr string, msg log.MsgStream, acqs ...Monitored) *Server {
	if msg == nil {
		msg = log.Discard
	}
	srv := &Server{
		Period: 1 * time.Second,
		msg:    msg,
		quit:   make(chan struct{}),
		acqs:   acqs,
	}
	srv.srv = &http.Server{Addr: addr, Handler: srv.Handler()}
	return srv
}

// Add adds an acquisition to the monitored set.
func (srv *Server) Add(acq Monitored) {
	srv.mu.Lock()
	srv.acqs = append(srv.acqs, acq)
	srv.mu.Unlock()
}

// Handler returns the HTTP handler of the monitoring server.
func (srv *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", srv.home)
	mux.HandleFunc("/snapshot", srv.snapshot)
	mux.Handle("/status", websocket.Handler(srv.status))
	return mux
}

// Run serves HTTP requests until ctx is canceled.
func (srv *Server) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		srv.msg.Infof("starting web monitoring server on %q...", srv.srv.Addr)
		errc <- srv.srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		close(srv.quit)
		return err
	case <-ctx.Done():
		close(srv.quit)
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.srv.Shutdown(sctx)
		if err != nil {
			return err
		}
		err = <-errc
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Report returns the current status of the monitored acquisitions.
func (srv *Server) Report() Report {
	var rep Report
	srv.mu.RLock()
	for _, acq := range srv.acqs {
		rep.Acqs = append(rep.Acqs, Acq{
			Name:   acq.Name(),
			Status: acq.State().String(),
			Stats:  acq.Stats(),
		})
	}
	srv.mu.RUnlock()
	sort.Slice(rep.Acqs, func(i, j int) bool {
		return rep.Acqs[i].Name < rep.Acqs[j].Name
	})
	rep.Timestamp = time.Now().UTC().Format("2006-01-02 15:04:05") + " (UTC)"
	return rep
}

func (srv *Server) home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	err := homeTmpl.Execute(w, nil)
	if err != nil {
		srv.msg.Errorf("error executing web home-page template: %+v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (srv *Server) snapshot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(srv.Report())
	if err != nil {
		srv.msg.Errorf("could not encode /snapshot report: %+v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (srv *Server) status(ws *websocket.Conn) {
	defer ws.Close()

	freq := srv.Period
	if freq <= 0 || freq > 1*time.Second {
		freq = 1 * time.Second
	}

	tick := time.NewTicker(freq)
	defer tick.Stop()

	for {
		select {
		case <-srv.quit:
			return
		case <-tick.C:
			err := websocket.JSON.Send(ws, srv.Report())
			if err != nil {
				srv.msg.Errorf("could not send /status report to websocket client: %+v", err)
				return
			}
		}
	}
}

var homeTmpl = template.Must(template.New("ad2-home").Parse(`<html>
<head>
	<title>ad2 monitor</title>
	<style>
	.msg-log {
		color: black;
		text-align: left;
		font-family: monospace;
	}
	</style>
<script type="text/javascript">
	"use strict"

	window.onload = function() {
		var statusChan = new WebSocket("ws://"+location.host+"/status");
		statusChan.onmessage = function(event) {
			updateStatus(JSON.parse(event.data));
		};
	};

	function updateStatus(data) {
		document.getElementById("acq-status-update").innerHTML = data.timestamp;
		var acqs = document.getElementById("acq-status");
		acqs.innerHTML = "";
		if (data.acqs != null) {
			data.acqs.forEach(function(v) {
				var node = document.createElement("tr");
				node.innerHTML = "<td class=\"msg-log\">" + v.name + "</td>" +
					"<td class=\"msg-log\">" + v.status + "</td>" +
					"<td class=\"msg-log\">" + v.samples + "</td>" +
					"<td class=\"msg-log\">" + v.packets + "</td>" +
					"<td class=\"msg-log\">" + v.polls + "</td>";
				acqs.appendChild(node);
			});
		}
	};
</script>
</head>
<body>
	<h2>ad2 acquisitions</h2>
	<table>
		<thead>
			<tr><th>name</th><th>status</th><th>samples</th><th>packets</th><th>polls</th></tr>
		</thead>
		<tbody id="acq-status"></tbody>
	</table>
	Last status update: <span id="acq-status-update" class="msg-log">N/A</span>
</body>
</html>
`))
