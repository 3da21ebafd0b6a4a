package httpserver

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestServerStartShutdown(t *testing.T) {
	srv := New("127.0.0.1:0", okHandler())

	done := make(chan error, 1)
	go func() {
		done <- srv.ListenAndServe()
	}()

	// Give the listener a moment to bind, then shut down.
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, http.ErrServerClosed) {
			t.Errorf("ListenAndServe() error = %v, want ErrServerClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
