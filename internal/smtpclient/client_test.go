package smtpclient

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"testing"
	"time"
)

// fakeServer is a minimal scripted SMTP server: it replies to each inbound
// line with the next canned response in order, ignoring STARTTLS offers.
func fakeServer(t *testing.T, responses []string) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		w := bufio.NewWriter(conn)
		r := bufio.NewReader(conn)

		write := func(line string) {
			w.WriteString(line + "\r\n")
			w.Flush()
		}

		if len(responses) == 0 {
			return
		}
		write(responses[0])
		for _, resp := range responses[1:] {
			if _, err := r.ReadString('\n'); err != nil {
				return
			}
			write(resp)
		}
	}()

	return ln.Addr().String()
}

func TestCheckAcceptsValidRecipient(t *testing.T) {
	addr := fakeServer(t, []string{
		"220 fake.example.com ESMTP",
		"250 fake.example.com",
		"250 2.1.0 Sender OK",
		"250 2.1.5 Recipient OK",
		"221 Bye",
	})
	host, port := splitHostPort(t, addr)

	client := New(Options{Port: port})
	result := client.Check(context.Background(), "person@example.com", host)

	if result.Code != 250 {
		t.Fatalf("expected code 250, got %d (%s)", result.Code, result.Message)
	}
	if result.IsInvalid {
		t.Fatalf("unexpected invalid flag for 250 response")
	}
}

func TestCheckRejectsUnknownUser(t *testing.T) {
	addr := fakeServer(t, []string{
		"220 fake.example.com ESMTP",
		"250 fake.example.com",
		"250 2.1.0 Sender OK",
		"550 5.1.1 User unknown",
		"221 Bye",
	})
	host, port := splitHostPort(t, addr)

	client := New(Options{Port: port})
	result := client.Check(context.Background(), "nobody@example.com", host)

	if !result.IsInvalid {
		t.Fatalf("expected invalid classification, got %+v", result)
	}
}

func TestCheckHandlesUnreachableHost(t *testing.T) {
	client := New(Options{Port: 1})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result := client.Check(ctx, "person@example.com", "127.0.0.1")
	if result.Code != 0 {
		t.Fatalf("expected code 0 for unreachable host, got %d", result.Code)
	}
}

func TestIsStrictGateway(t *testing.T) {
	if !isStrictGateway("mx1.us.pphosted.com") {
		t.Error("expected pphosted.com host to be flagged strict")
	}
	if isStrictGateway("aspmx.l.google.com") {
		t.Error("did not expect google MX to be flagged strict")
	}
}

func TestRandomAddressIsWellFormed(t *testing.T) {
	addr := randomAddress("example.com")
	if len(addr) == 0 || addr[len(addr)-12:] != "@example.com" {
		t.Errorf("unexpected random address shape: %q", addr)
	}
}

func splitHostPort(t *testing.T, addr string) (string, int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("split host port: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}
	return host, port
}
