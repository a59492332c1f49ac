// Copyright 2026 The Fleetvisor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rpc

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"vawter.tech/stopper"
)

// shutdownGrace bounds how long Close lets in-flight requests finish.
const shutdownGrace = time.Second

// Server runs a Handler on a listener until closed.
type Server struct {
	ln   net.Listener
	srv  *http.Server
	sctx *stopper.Context
}

// Listen starts serving h on addr in the background.
func Listen(ctx context.Context, addr string, h http.Handler) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s := &Server{
		ln:   ln,
		srv:  &http.Server{Handler: h, ReadHeaderTimeout: 5 * time.Second},
		sctx: stopper.WithContext(ctx),
	}

	s.sctx.Go(func(sctx *stopper.Context) error {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	s.sctx.Go(func(sctx *stopper.Context) error {
		<-sctx.Stopping()
		c, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return s.srv.Shutdown(c)
	})
	return s, nil
}

// Addr is the address actually listened on.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Close stops accepting requests and waits for the server to wind down.
func (s *Server) Close() error {
	s.sctx.Stop(shutdownGrace)
	return s.sctx.Wait()
}
