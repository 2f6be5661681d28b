package api

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestGzipRequestMiddleware(t *testing.T) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write([]byte("payload")); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set(echo.HeaderContentEncoding, "identity, GZIP")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var got string
	h := GzipRequestMiddleware()(func(c echo.Context) error {
		b, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return err
		}
		got = string(b)
		if enc := c.Request().Header.Get(echo.HeaderContentEncoding); enc != "" {
			t.Fatalf("expected content encoding to be removed, got %q", enc)
		}
		return c.Request().Body.Close()
	})
	if err := h(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if got != "payload" {
		t.Fatalf("unexpected body %q", got)
	}
}

func TestGzipRequestMiddlewarePassThrough(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("plain"))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	h := GzipRequestMiddleware()(func(c echo.Context) error {
		called = true
		b, _ := io.ReadAll(c.Request().Body)
		if string(b) != "plain" {
			t.Fatalf("unexpected body %q", b)
		}
		return nil
	})
	if err := h(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if !called {
		t.Fatalf("expected next handler to run")
	}
}

func TestGzipRequestMiddlewareInvalidBody(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("not gzip"))
	req.Header.Set(echo.HeaderContentEncoding, "gzip")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := GzipRequestMiddleware()(func(echo.Context) error {
		t.Fatalf("next handler should not run")
		return nil
	})
	err := h(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 http error, got %v", err)
	}
}
