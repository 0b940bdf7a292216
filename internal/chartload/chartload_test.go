package chartload

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/chartkit/enctiles/internal/opener"
	"github.com/chartkit/enctiles/internal/parser"
)

// fakeDialer stands in for a real opener subprocess connection: it drains
// the fixed-size request frame, writes back response, then closes so the
// caller's io.Copy sees EOF (opener.Pool.roundTrip's protocol).
func fakeDialer(response []byte) opener.Dialer {
	return func(ctx context.Context) (net.Conn, error) {
		client, server := net.Pipe()
		go func() {
			defer server.Close()
			buf := make([]byte, 1025)
			io.ReadFull(server, buf)
			server.Write(response)
		}()
		return client, nil
	}
}

func TestNewLoaderRoundTripsThroughOpenerAndParser(t *testing.T) {
	pool := opener.New(fakeDialer([]byte("not an iso 8211 stream")), 1, 1, nil)
	defer pool.Stop()

	resolve := func(key string) (string, opener.Opcode, error) {
		if key != "test-set/CELL1" {
			t.Fatalf("unexpected key %q", key)
		}
		return "/charts/CELL1.000", opener.CmdReadOESU, nil
	}

	loader := NewLoader(pool, resolve, parser.DefaultParseOptions())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// The fake response isn't real ISO 8211 data, so this must fail inside
	// the decoder rather than at resolve or submit — proving bytes actually
	// reach parser.ParseBytesWithOptions via the opener round trip.
	if _, _, err := loader(ctx, "test-set/CELL1"); err == nil {
		t.Fatal("expected a decode error for a non-ISO-8211 opener response")
	} else if !strings.Contains(err.Error(), "chartload: parse") {
		t.Fatalf("expected a chartload parse error, got: %v", err)
	}
}

func TestNewLoaderPropagatesResolveError(t *testing.T) {
	pool := opener.New(fakeDialer(nil), 1, 1, nil)
	defer pool.Stop()

	boom := errors.New("boom")
	resolve := func(key string) (string, opener.Opcode, error) {
		return "", opener.CmdUnknown, boom
	}
	loader := NewLoader(pool, resolve, parser.DefaultParseOptions())

	_, _, err := loader(context.Background(), "test-set/CELL1")
	if !errors.Is(err, boom) {
		t.Fatalf("expected resolve error to be wrapped, got: %v", err)
	}
}
