package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIsRetriableMatchesKnownPatterns(t *testing.T) {
	require.True(t, IsRetriable(errors.New("dial tcp: i/o timeout")))
	require.True(t, IsRetriable(fmt.Errorf("dial tcp 127.0.0.1:9: connect: %w", syscall.ECONNREFUSED)))
	require.True(t, IsRetriable(fmt.Errorf("read tcp: %w", syscall.ECONNRESET)))
	require.True(t, IsRetriable(fmt.Errorf("write tcp: %w", syscall.EPIPE)))
	require.True(t, IsRetriable(fmt.Errorf("dial tcp: %w", syscall.EHOSTUNREACH)))
	require.False(t, IsRetriable(errors.New("malformed ticket payload")))
	require.False(t, IsRetriable(nil))
}

func splitHostPort(t *testing.T, addr string) (string, int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}

func TestTCPWriterSucceedsAgainstEchoListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 1024)
		_, _ = conn.Read(buf)
	}()

	host, port := splitHostPort(t, ln.Addr().String())

	w := NewTCPWriter()
	w.Timeout = 2 * time.Second
	err = w.Send(context.Background(), host, port, []byte("hello"))
	require.NoError(t, err)
}

func TestTCPWriterRetriesExactlyTwiceOnConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	host, port := splitHostPort(t, ln.Addr().String())
	ln.Close()

	w := NewTCPWriter()
	w.Timeout = 500 * time.Millisecond
	start := time.Now()
	err = w.Send(context.Background(), host, port, []byte("hello"))
	require.Error(t, err)
	require.True(t, IsRetriable(err))
	require.GreaterOrEqual(t, time.Since(start), retryPause)
}

func TestHTTPFiscalClientPostSuccessExtractsReceiptID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/xml; charset=utf-8", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`<response receipt_id="RT-0042" status="ok"/>`))
	}))
	defer srv.Close()

	host, port := splitHostPort(t, srv.Listener.Addr().String())

	c := NewHTTPFiscalClient(HTTPTestTimeout)
	result, err := c.Post(context.Background(), host, port, "/fpmate", []byte("<FPMessage/>"))
	require.NoError(t, err)
	require.Equal(t, "RT-0042", result.ReceiptID)
}

func TestHTTPFiscalClientPostFailsOnErrorKeyword(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`<response>fault: printer jam</response>`))
	}))
	defer srv.Close()

	host, port := splitHostPort(t, srv.Listener.Addr().String())

	c := NewHTTPFiscalClient(HTTPTestTimeout)
	_, err := c.Post(context.Background(), host, port, "/fpmate", []byte("<FPMessage/>"))
	require.Error(t, err)
}

func TestHTTPFiscalClientPostFailsOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	host, port := splitHostPort(t, srv.Listener.Addr().String())

	c := NewHTTPFiscalClient(HTTPTestTimeout)
	_, err := c.Post(context.Background(), host, port, "/fpmate", []byte("<FPMessage/>"))
	require.Error(t, err)
}

func TestExtractReceiptIDPrefersReceiptIDThenDocumentNumber(t *testing.T) {
	require.Equal(t, "A1", extractReceiptID(`document_number=A1 progressive_number=B2`))
	require.Equal(t, "B2", extractReceiptID(`progressive_number=B2`))
	require.Equal(t, "", extractReceiptID(`no markers here`))
}
