// Package opener implements the client side of the external decrypt
// "opener" subprocess protocol (spec.md §6): a bounded pool of long-lived
// workers, each dialing a fresh connection per request, submitting one
// fixed-size request frame and reading back a raw byte stream until EOF.
//
// Grounded on the teacher's pkg/v1/parallel.go LoadCellsParallel (bounded
// goroutine pool draining a job channel), generalized from one-shot
// parallel loads to a persistent FIFO submit queue with per-submission
// cancellation and maximum-wait, and from in-process work to a networked
// protocol client. The core never implements the opener process itself,
// nor the preload shim that substitutes a socket for the well-known pipe
// path — both are deployment-time collaborators; Dial below is however the
// caller supplies that substitution.
package opener

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/chartkit/enctiles/internal/chartcore"
	"github.com/chartkit/enctiles/internal/metrics"
)

// Opcode selects which opener command a request frame carries. Wire values
// are opaque to the core; only the opener subprocess interprets them.
type Opcode byte

const (
	CmdReadOESU Opcode = iota + 1
	CmdReadOESUHdr
	CmdReadESENC
	CmdReadESENCHdr
	CmdUnknown Opcode = 0xFF
)

const (
	opcodeSize   = 1
	filenameSize = 256
	frameSize    = 1025
	paddingSize  = frameSize - opcodeSize - filenameSize
)

// EncodeFrame builds the fixed 1025-byte request frame for opcode and
// filename. filename longer than 255 bytes (leaving room for the
// terminating zero) is a caller error.
func EncodeFrame(op Opcode, filename string) ([]byte, error) {
	if len(filename) >= filenameSize {
		return nil, fmt.Errorf("opener: filename %q too long for %d-byte field", filename, filenameSize)
	}
	frame := make([]byte, frameSize)
	frame[0] = byte(op)
	copy(frame[opcodeSize:opcodeSize+filenameSize], filename)
	// remaining bytes (zero terminator onward, plus padding) stay zero.
	return frame, nil
}

// Dialer opens a fresh connection to an opener process. The core does not
// select transport (TCP vs. unix socket vs. the preload shim's pipe
// substitute); that choice belongs to the deployment-time collaborator that
// constructs the Dialer.
type Dialer func(ctx context.Context) (net.Conn, error)

type request struct {
	ctx      context.Context
	op       Opcode
	filename string
	result   chan requestResult
}

type requestResult struct {
	data []byte
	err  error
}

// Pool is a bounded worker pool of opener clients. Submissions queue FIFO;
// each worker processes one submission at a time by dialing a new
// connection for it, unless the worker is still backing off after a crash.
type Pool struct {
	dial    Dialer
	workers int
	queue   chan request
	log     *slog.Logger

	wg     sync.WaitGroup
	stopCh chan struct{}
	stopOn sync.Once

	mu          sync.Mutex
	backoffUntil map[int]time.Time // worker index -> earliest next dial attempt after a crash

	// RespawnBackoff is the minimum delay before a worker retries dialing
	// after an opener-process crash (read/write failure mid-request).
	RespawnBackoff time.Duration
}

// New creates a pool of `workers` long-lived opener workers. queueDepth
// bounds how many submissions may wait in the FIFO queue before Submit
// itself blocks (backpressure on the caller).
func New(dial Dialer, workers, queueDepth int, log *slog.Logger) *Pool {
	if log == nil {
		log = slog.Default()
	}
	if workers <= 0 {
		workers = 1
	}
	if queueDepth < 0 {
		queueDepth = 0
	}
	p := &Pool{
		dial:           dial,
		workers:        workers,
		queue:          make(chan request, queueDepth),
		log:            log.With("component", "opener"),
		stopCh:         make(chan struct{}),
		backoffUntil:   make(map[int]time.Time),
		RespawnBackoff: 2 * time.Second,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	return p
}

// Submit enqueues a read request and blocks until it completes, the
// context is cancelled, or ctx's deadline (the "maximum wait" of spec.md
// §5) is exceeded, in which case a KindOpenerTimeout error is returned and
// the request is abandoned in place (the worker that eventually picks it up
// still notices ctx is done and skips it without dialing).
func (p *Pool) Submit(ctx context.Context, op Opcode, filename string) ([]byte, error) {
	start := time.Now()
	req := request{ctx: ctx, op: op, filename: filename, result: make(chan requestResult, 1)}
	select {
	case p.queue <- req:
		metrics.SetOpenerQueueDepth(p.QueueDepth())
	case <-ctx.Done():
		metrics.RecordOpenerSubmit("timeout", time.Since(start))
		return nil, chartcore.New(chartcore.KindOpenerTimeout, "opener.Submit", filename, ctx.Err())
	case <-p.stopCh:
		metrics.RecordOpenerSubmit("stopped", time.Since(start))
		return nil, chartcore.New(chartcore.KindInterrupted, "opener.Submit", filename, fmt.Errorf("pool stopped"))
	}
	select {
	case res := <-req.result:
		metrics.SetOpenerQueueDepth(p.QueueDepth())
		if res.err != nil {
			metrics.RecordOpenerSubmit("error", time.Since(start))
		} else {
			metrics.RecordOpenerSubmit("success", time.Since(start))
		}
		return res.data, res.err
	case <-ctx.Done():
		metrics.RecordOpenerSubmit("timeout", time.Since(start))
		return nil, chartcore.New(chartcore.KindOpenerTimeout, "opener.Submit", filename, ctx.Err())
	case <-p.stopCh:
		metrics.RecordOpenerSubmit("stopped", time.Since(start))
		return nil, chartcore.New(chartcore.KindInterrupted, "opener.Submit", filename, fmt.Errorf("pool stopped"))
	}
}

func (p *Pool) worker(idx int) {
	defer p.wg.Done()
	for {
		select {
		case req, ok := <-p.queue:
			if !ok {
				return
			}
			p.process(idx, req)
		case <-p.stopCh:
			return
		}
	}
}

func (p *Pool) process(idx int, req request) {
	if req.ctx.Err() != nil {
		req.result <- requestResult{err: chartcore.New(chartcore.KindOpenerTimeout, "opener.process", req.filename, req.ctx.Err())}
		return
	}

	p.mu.Lock()
	until, backingOff := p.backoffUntil[idx]
	p.mu.Unlock()
	if backingOff && time.Now().Before(until) {
		req.result <- requestResult{err: chartcore.New(chartcore.KindOpenerCrashed, "opener.process", req.filename,
			fmt.Errorf("worker %d still backing off until %s", idx, until.Format(time.RFC3339)))}
		return
	}

	data, err := p.roundTrip(req.ctx, req.op, req.filename)
	if err != nil {
		p.log.Error("opener round trip failed", "worker", idx, "file", req.filename, "error", err)
		p.mu.Lock()
		p.backoffUntil[idx] = time.Now().Add(p.RespawnBackoff)
		p.mu.Unlock()
		metrics.RecordOpenerCrash()
		req.result <- requestResult{err: err}
		return
	}

	p.mu.Lock()
	delete(p.backoffUntil, idx)
	p.mu.Unlock()
	req.result <- requestResult{data: data}
}

func (p *Pool) roundTrip(ctx context.Context, op Opcode, filename string) ([]byte, error) {
	frame, err := EncodeFrame(op, filename)
	if err != nil {
		return nil, chartcore.New(chartcore.KindBadRequest, "opener.roundTrip", filename, err)
	}

	conn, err := p.dial(ctx)
	if err != nil {
		return nil, chartcore.New(chartcore.KindOpenerCrashed, "opener.roundTrip", filename, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	if _, err := conn.Write(frame); err != nil {
		return nil, chartcore.New(chartcore.KindOpenerCrashed, "opener.roundTrip", filename, fmt.Errorf("write frame: %w", err))
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, conn); err != nil {
		return nil, chartcore.New(chartcore.KindDecryptError, "opener.roundTrip", filename, fmt.Errorf("read response: %w", err))
	}
	return buf.Bytes(), nil
}

// Stop signals all workers to exit after finishing any in-flight request.
// Queued-but-not-yet-picked-up submissions receive a KindInterrupted error.
func (p *Pool) Stop() {
	p.stopOn.Do(func() {
		close(p.stopCh)
	})
	p.wg.Wait()
}

// QueueDepth reports how many submissions are currently queued, for the
// opener-pool-queue-depth metric.
func (p *Pool) QueueDepth() int {
	return len(p.queue)
}
