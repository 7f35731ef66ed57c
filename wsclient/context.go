// Package wsclient is the owning context of spec.md §4.E: two ring
// buffers (RX/TX), one TLS transport, the frame engine, and the single
// cooperative Update pump that drives connect → handshake → stream →
// close. Grounded on lowlevel/client/facade.go's Client/NewClient
// sequencing (parse URL → dial/transport → handshake → connection
// object), collapsed from the teacher's goroutine-per-loop design
// (sendLoop/recvLoop/heartbeatLoop over channels) down to the single
// synchronous Update spec.md §2/§5 requires: no goroutines on the hot
// path, strict per-pass ordering, no locks.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package wsclient

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/momentics/lowlatency-wsclient/internal/diag"
	"github.com/momentics/lowlatency-wsclient/internal/timeutil"
	"github.com/momentics/lowlatency-wsclient/poller"
	"github.com/momentics/lowlatency-wsclient/ringbuf"
	"github.com/momentics/lowlatency-wsclient/transport"
	"github.com/momentics/lowlatency-wsclient/wserr"
	"github.com/momentics/lowlatency-wsclient/wsframe"
)

// maxFlushPerPass bounds how many TX bytes a single Update call pushes
// to the transport, per spec.md §4.D's "Auto-flush on drain."
const maxFlushPerPass = 4096

// handshakeRecvChunk is the scratch buffer size used while accumulating
// the HTTP Upgrade response, matching wsframe.MaxHandshakeResponse's
// bound.
const handshakeRecvChunk = 4096

// MessageFunc receives an inbound WebSocket message. payload aliases the
// RX ring directly and is only valid for the duration of the call, per
// spec.md §4.D's zero-copy callback contract.
type MessageFunc func(opcode wsframe.Opcode, payload []byte)

// StatusFunc receives connection lifecycle notifications: 0 on successful
// handshake completion, a peer close code (when present) on a clean
// remote close, -1 on protocol violation, handshake failure, or any
// fatal I/O error.
type StatusFunc func(code int)

// Context is a single WebSocket connection. It is not safe for concurrent
// use: the whole design is strictly single-threaded per context, per
// spec.md §5.
type Context struct {
	opts Options
	url  parsedURL

	transport *transport.Transport
	rx        *ringbuf.Ring
	tx        *ringbuf.Ring
	engine    *wsframe.Engine

	state State
	hsAcc *wsframe.HandshakeAccumulator

	onMsg    MessageFunc
	onStatus StatusFunc
	notifier poller.Notifier

	counter *timeutil.Counter
	ts      Timestamps
	log     hclog.Logger

	hsRecvBuf []byte

	// Batch processing statistics, grounded on the original client's
	// max_messages_per_update throttle and its total_batches/
	// last_batch_size/max_batch_size/total_messages bookkeeping (see
	// SPEC_FULL.md's SUPPLEMENTED FEATURES).
	maxBatchSize     int
	totalBatches     uint64
	totalMessages    uint64
	lastBatchSize    int
	maxBatchSizeSeen int
}

// Init parses url ("wss://host[:port][/path]" or "ws://..."), allocates
// the RX/TX ring buffers, and opens the transport. The returned Context
// is in StateConnecting; the caller drives it to StateConnected via
// repeated Update calls (typically gated by a poller.Notifier's Wait).
func Init(url string, opts Options) (*Context, error) {
	opts = opts.withDefaults()

	u, err := parseURL(url)
	if err != nil {
		return nil, err
	}

	rx, err := ringbuf.New(opts.RXRingSize)
	if err != nil {
		return nil, fmt.Errorf("wsclient: allocating RX ring: %w", err)
	}
	tx, err := ringbuf.New(opts.TXRingSize)
	if err != nil {
		rx.Close()
		return nil, fmt.Errorf("wsclient: allocating TX ring: %w", err)
	}

	cfg := transport.LoadConfig()
	var tr *transport.Transport
	if u.TLS {
		tr, err = transport.Open(cfg, u.Host, u.Port)
	} else {
		tr, err = transport.OpenPlain(cfg, u.Host, u.Port)
	}
	if err != nil {
		rx.Close()
		tx.Close()
		return nil, err
	}

	return &Context{
		opts:         opts,
		url:          u,
		transport:    tr,
		rx:           rx,
		tx:           tx,
		engine:       wsframe.NewEngine(),
		state:        StateConnecting,
		counter:      timeutil.NewCounter(),
		log:          diag.New(opts.DiagName, "WS_DEBUG"),
		hsRecvBuf:    make([]byte, handshakeRecvChunk),
		maxBatchSize: opts.MaxBatchSize,
	}, nil
}

// SetOnMsg installs the inbound message callback.
func (c *Context) SetOnMsg(fn MessageFunc) { c.onMsg = fn }

// SetOnStatus installs the lifecycle status callback.
func (c *Context) SetOnStatus(fn StatusFunc) { c.onStatus = fn }

// SetNotifier attaches a readiness notifier for auto-arming the write
// interest (spec.md §4.D step 5 of the outbound framer / §4.E contract).
// The context's socket fd is registered for read interest immediately.
func (c *Context) SetNotifier(n poller.Notifier) error {
	c.notifier = n
	fd, err := c.transport.Fd()
	if err != nil {
		return err
	}
	return n.Add(fd, poller.EventRead)
}

// State reports the current connection state.
func (c *Context) State() State { return c.state }

// Fd returns the underlying socket descriptor, for registration with a
// caller-owned poller.Notifier (SetNotifier does this automatically).
func (c *Context) Fd() (uintptr, error) { return c.transport.Fd() }

// CipherName returns the negotiated TLS cipher suite name, empty before
// the handshake completes (or "none" for a ws:// clear-text connection).
func (c *Context) CipherName() string { return c.transport.CipherName() }

// TLSMode returns the active record-layer crypto mode.
func (c *Context) TLSMode() transport.Mode { return c.transport.Mode() }

// HwTsEnabled reports whether hardware receive timestamping is active.
func (c *Context) HwTsEnabled() bool { return c.transport.HwTsEnabled() }

// Timestamps returns the latency breakdown captured for the most
// recently delivered inbound message.
func (c *Context) Timestamps() Timestamps { return c.ts }

// Counter exposes the context's calibrated cycle counter so callers can
// convert Timestamps fields to nanoseconds.
func (c *Context) Counter() *timeutil.Counter { return c.counter }

// SetMaxBatchSize changes the per-Update delivery cap at runtime. Zero
// means unlimited. Mirrors the original client's ws_set_max_batch_size.
func (c *Context) SetMaxBatchSize(n int) { c.maxBatchSize = n }

// LastBatchSize returns how many messages the most recent non-empty
// Update pass delivered. Mirrors ws_get_last_batch_size.
func (c *Context) LastBatchSize() int { return c.lastBatchSize }

// MaxBatchSizeObserved returns the largest batch delivered in any single
// Update pass so far. Mirrors ws_get_max_batch_size (which, in the
// original, reports the historical high-water mark rather than the
// configured cap — the cap itself has no getter there either).
func (c *Context) MaxBatchSizeObserved() int { return c.maxBatchSizeSeen }

// TotalBatches returns how many non-empty Update passes have delivered at
// least one message. Mirrors ws_get_total_batches.
func (c *Context) TotalBatches() uint64 { return c.totalBatches }

// TotalMessages returns the cumulative count of delivered messages across
// the life of the context.
func (c *Context) TotalMessages() uint64 { return c.totalMessages }

// AvgBatchSize returns the mean number of messages per non-empty Update
// pass, or 0 before any batch has been delivered. Mirrors
// ws_get_avg_batch_size.
func (c *Context) AvgBatchSize() float64 {
	if c.totalBatches == 0 {
		return 0
	}
	return float64(c.totalMessages) / float64(c.totalBatches)
}

// Update is the single pump entry point: it advances the handshake if
// not yet connected, drains all decrypted bytes into the RX ring, drains
// all complete frames from the RX ring, and flushes pending TX bytes —
// one pass, per spec.md §2. It never blocks beyond a single non-blocking
// transport recv/send.
func (c *Context) Update() error {
	switch c.state {
	case StateConnecting:
		if err := c.advanceHandshake(); err != nil {
			return err
		}
	case StateHandshaking:
		if err := c.advanceUpgrade(); err != nil {
			return err
		}
	case StateConnected:
		if err := c.drainRX(); err != nil {
			return err
		}
	case StateClosed, StateError:
		return nil
	}
	c.flushTX()
	return nil
}

func (c *Context) advanceHandshake() error {
	hsState, err := c.transport.Handshake()
	if err != nil {
		c.transitionError()
		return err
	}
	if hsState != transport.HandshakeDone {
		return nil
	}

	req, _, err := wsframe.BuildUpgradeRequest(c.url.hostHeader(), c.url.Path)
	if err != nil {
		c.transitionError()
		return err
	}
	if _, err := c.transport.Send([]byte(req)); err != nil && !errors.Is(err, wserr.ErrWouldBlock) {
		c.transitionError()
		return err
	}

	c.hsAcc = wsframe.NewHandshakeAccumulator()
	c.state = StateHandshaking
	c.log.Debug("tls handshake done, upgrade request sent", "cipher", c.transport.CipherName(), "mode", c.transport.Mode().String())
	return nil
}

func (c *Context) advanceUpgrade() error {
	n, err := c.transport.RecvInto(c.hsRecvBuf)
	if err != nil {
		if errors.Is(err, wserr.ErrWouldBlock) {
			return nil
		}
		c.transitionError()
		return err
	}
	if n > 0 {
		if err := c.hsAcc.Feed(c.hsRecvBuf[:n]); err != nil {
			c.transitionError()
			return err
		}
	}

	headerBlock, trailing, ok := c.hsAcc.TryComplete()
	if !ok {
		return nil
	}
	if err := wsframe.ValidateUpgradeResponse(headerBlock); err != nil {
		c.transitionError()
		return err
	}

	c.state = StateConnected
	if len(trailing) > 0 {
		c.writeRX(trailing)
	}
	c.log.Debug("upgrade accepted")
	c.fireStatus(0)
	return nil
}

// writeRX copies data into the RX ring, looping across the non-mirrored
// fallback's wrap boundary exactly as wsframe's outbound writeAll does
// for TX.
func (c *Context) writeRX(data []byte) {
	for len(data) > 0 {
		span := c.rx.WritableSpan()
		if len(span) == 0 {
			c.log.Warn("RX ring has no room for trailing handshake bytes, dropping", "dropped", len(data))
			return
		}
		n := copy(span, data)
		c.rx.CommitWrite(n)
		data = data[n:]
	}
}

func (c *Context) drainRX() error {
	tEvent := c.counter.Now()
	decryptStamped := false

	for {
		span := c.rx.WritableSpan()
		if len(span) == 0 {
			break
		}
		n, err := c.transport.RecvInto(span)
		if n > 0 {
			c.rx.CommitWrite(n)
			if !decryptStamped {
				c.ts.TDecrypt = c.counter.Now()
				decryptStamped = true
			}
			if ts, ok := c.transport.TakeHWTimestamp(); ok {
				c.ts.TNic = ts
				c.ts.HasTNic = true
			} else {
				c.ts.HasTNic = false
			}
		}
		if err != nil {
			if errors.Is(err, wserr.ErrWouldBlock) {
				break
			}
			if errors.Is(err, wserr.ErrClosed) {
				c.state = StateClosed
				c.fireStatus(-1)
				return nil
			}
			c.transitionError()
			return err
		}
		if n == 0 {
			break
		}
	}

	if decryptStamped {
		c.ts.TEvent = tEvent
	}

	delivery, err := c.engine.DrainFrames(c.rx, c.tx, c.maxBatchSize, c.wrapOnMessage())
	if err != nil {
		c.transitionError()
		return err
	}
	if delivery.BatchSize > 0 {
		c.totalBatches++
		c.totalMessages += uint64(delivery.BatchSize)
		c.lastBatchSize = delivery.BatchSize
		if delivery.BatchSize > c.maxBatchSizeSeen {
			c.maxBatchSizeSeen = delivery.BatchSize
		}
	}
	if delivery.PeerClosed {
		c.state = StateClosed
		code := -1
		if delivery.HasCloseCode {
			code = delivery.CloseCode
		}
		c.fireStatus(code)
	}
	return nil
}

func (c *Context) wrapOnMessage() wsframe.MessageFunc {
	return func(opcode wsframe.Opcode, payload []byte) {
		c.ts.TCallback = c.counter.Now()
		if c.onMsg != nil {
			c.onMsg(opcode, payload)
		}
	}
}

// flushTX retries the control-frame backlog, then pushes up to
// maxFlushPerPass bytes of the TX ring's readable span to the transport,
// per spec.md §4.D's "Auto-flush on drain." It arms or disarms the
// attached notifier's write interest to match whether bytes remain
// queued.
func (c *Context) flushTX() {
	c.engine.FlushBacklog(c.tx)

	total := 0
	for total < maxFlushPerPass {
		span := c.tx.ReadableSpan()
		if len(span) == 0 {
			break
		}
		if remaining := maxFlushPerPass - total; len(span) > remaining {
			span = span[:remaining]
		}
		n, err := c.transport.Send(span)
		if n > 0 {
			c.tx.AdvanceRead(n)
			total += n
		}
		if err != nil {
			if errors.Is(err, wserr.ErrWouldBlock) {
				break
			}
			c.transitionError()
			return
		}
		if n < len(span) {
			break // short write; resume next pass
		}
	}
	c.updateWriteInterest()
}

// FlushTX pushes pending TX bytes without waiting for the next Update,
// per spec.md §4.D's "An explicit flush_tx operation."
func (c *Context) FlushTX() { c.flushTX() }

func (c *Context) updateWriteInterest() {
	if c.notifier == nil {
		return
	}
	fd, err := c.transport.Fd()
	if err != nil {
		return
	}
	if c.tx.AvailableRead() > 0 {
		_ = c.notifier.Modify(fd, poller.EventRead|poller.EventWrite)
	} else {
		_ = c.notifier.Modify(fd, poller.EventRead)
	}
}

// Send frames payload as opcode and queues it on the TX ring, arming the
// attached notifier's write interest if one is set.
func (c *Context) Send(opcode wsframe.Opcode, payload []byte) error {
	if c.state != StateConnected {
		return fmt.Errorf("wsclient: send while state=%s: %w", c.state, wserr.ErrInvalidArgument)
	}
	if err := c.engine.Send(c.tx, opcode, payload); err != nil {
		return err
	}
	c.updateWriteInterest()
	return nil
}

// Close enqueues a CLOSE frame (status 1000, Normal Closure) and marks
// the context closed. Idempotent: a second call is a no-op. The socket
// itself is not closed here — only Free releases it, so the buffered
// CLOSE has a chance to leave on a subsequent flush, per spec.md §4.D.
func (c *Context) Close() error {
	if c.state == StateClosed || c.state == StateError {
		return nil
	}
	err := c.engine.LocalClose(c.tx)
	c.state = StateClosed
	c.updateWriteInterest()
	return err
}

// transitionError moves the context to StateError and fires the status
// callback exactly once, per spec.md §4.D's "error... fires the status
// callback once... and is terminal."
func (c *Context) transitionError() {
	if c.state == StateError {
		return
	}
	c.state = StateError
	c.fireStatus(-1)
}

func (c *Context) fireStatus(code int) {
	if c.onStatus != nil {
		c.onStatus(code)
	}
}

// Free zeroes the masking PRNG state, frees both ring buffers, closes the
// transport, and (if attached) closes the notifier. Safe to call once,
// after which the Context must not be used again.
func (c *Context) Free() error {
	c.engine.Zero()
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	record(c.transport.Close())
	record(c.rx.Close())
	record(c.tx.Close())
	if c.notifier != nil {
		record(c.notifier.Close())
	}
	return firstErr
}
