package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"bnbbrain-backend/internal/chatclient"
	"bnbbrain-backend/internal/market"
)

func relay(t *testing.T, status int, body string) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestAskSession_HTMLReply(t *testing.T) {
	srv, _ := relay(t, http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"**Buy** <now>"}]}}]}`)

	var out bytes.Buffer
	s := &askSession{client: chatclient.New(srv.URL), out: &out, html: true}

	require.NoError(t, s.ask(context.Background(), "BNB/USDT"))
	require.Equal(t, "<strong>Buy</strong> &lt;now&gt;\n", out.String())
	require.Equal(t, 2, s.conv.Len())
}

func TestAskSession_StrictReportsRelayError(t *testing.T) {
	srv, _ := relay(t, http.StatusInternalServerError, `{"error":"API key not configured"}`)

	var out bytes.Buffer
	s := &askSession{client: chatclient.New(srv.URL), out: &out, strict: true}

	err := s.ask(context.Background(), "BNB/USDT")
	require.Error(t, err)
	require.Contains(t, out.String(), "relay error 500: API key not configured")
}

func TestAskSession_LenientPrintsFallback(t *testing.T) {
	srv, _ := relay(t, http.StatusInternalServerError, `{"error":"boom"}`)

	var out bytes.Buffer
	s := &askSession{client: chatclient.New(srv.URL), out: &out}

	require.NoError(t, s.ask(context.Background(), "BNB/USDT"))
	require.Contains(t, out.String(), chatclient.FallbackError)
}

func TestAskSession_LoopSkipsBlankLines(t *testing.T) {
	srv, calls := relay(t, http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`)

	var out bytes.Buffer
	s := &askSession{client: chatclient.New(srv.URL), out: &out, html: true}

	require.NoError(t, s.loop(context.Background(), strings.NewReader("BNB/USDT\n\n   \nETH/USDT\n")))
	require.EqualValues(t, 2, atomic.LoadInt32(calls))

	msgs := s.conv.Messages()
	require.Len(t, msgs, 4)
	require.Equal(t, "ETH/USDT", msgs[2].Content)
}

func TestPrintTicker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol":"BNBUSDT","lastPrice":"600","priceChangePercent":"-2","volume":"1000000","highPrice":"610","lowPrice":"590"}`))
	}))
	defer srv.Close()

	var out bytes.Buffer
	require.NoError(t, printTicker(context.Background(), &out, market.NewClient(srv.URL), "BNBUSDT"))

	text := out.String()
	require.Contains(t, text, "$600.00")
	require.Contains(t, text, "-2.00%")
	require.Contains(t, text, "$600.00M")
	require.Contains(t, text, "Medium")
}

func TestPrintPrediction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			[1,"1","1","1","1","1",2,"0",0,"0","0","0"],
			[2,"1","1","1","2","1",3,"0",0,"0","0","0"],
			[3,"1","1","1","3","1",4,"0",0,"0","0","0"]
		]`))
	}))
	defer srv.Close()

	var out bytes.Buffer
	require.NoError(t, printPrediction(context.Background(), &out, market.NewClient(srv.URL), "BNBUSDT", "1h", 3))

	text := out.String()
	require.Contains(t, text, "trend")
	require.Contains(t, text, "UP")
	require.Contains(t, text, "needs 20 candles")
	require.Contains(t, text, "next")
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"ask", "ticker", "predict"} {
		require.True(t, names[want], "missing %s", want)
	}
}
