// Package smtpclient implements the RCPT-only SMTP handshake used to verify
// mailbox existence (C4). Grounded on the original engine/smtp.py
// (_read_response multi-line reader, smtp_check handshake with greylist
// retries, check_catch_all, smtp_check_batch fallback-to-individual) and on
// ahmadpiran-mailvetter's internal/lookup/smtp.go (strict-gateway hostname
// detection and adaptive command pacing). DATA is never sent.
package smtpclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"math/rand"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"mailnexy/internal/model"
)

const (
	DefaultHeloDomain  = "198-23-249-137-host.colocrossing.com"
	DefaultFromAddress = "postmaster@198-23-249-137-host.colocrossing.com"
	ConnectTimeout     = 10 * time.Second
	CommandTimeout     = 10 * time.Second
	TotalTimeout       = 45 * time.Second
	GreylistDelay      = 35 * time.Second
	GreylistRetries    = 2
	SMTPPort           = 25
)

// strictGateways are enterprise security gateway MX hostname fragments known
// to tarpit fast command sequences; sessions to these hosts are paced.
var strictGateways = []string{
	"mimecast.com", "pphosted.com", "barracudanetworks.com", "messagelabs.com",
	"iphmx.com", "trendmicro.com", "trendmicro.eu", "sophos.com",
	"mailcontrol.com", "mxlogic.net", "fireeye.com", "mx.cloudflare.net",
}

func isStrictGateway(mxHost string) bool {
	lower := strings.ToLower(mxHost)
	for _, gw := range strictGateways {
		if strings.Contains(lower, gw) {
			return true
		}
	}
	return false
}

// Options configures a Client.
type Options struct {
	HeloDomain  string
	FromAddress string
	Port        int
	Limiter     *rate.Limiter // optional pacing, one bucket shared by every host and domain
}

func (o Options) withDefaults() Options {
	if o.HeloDomain == "" {
		o.HeloDomain = DefaultHeloDomain
	}
	if o.FromAddress == "" {
		o.FromAddress = DefaultFromAddress
	}
	if o.Port == 0 {
		o.Port = SMTPPort
	}
	return o
}

// Client drives an SMTP handshake against a single MX host.
type Client struct {
	opts Options
}

// New constructs a Client with the given options.
func New(opts Options) *Client {
	return &Client{opts: opts.withDefaults()}
}

// session wraps one TCP connection through its EHLO/STARTTLS/MAIL-FROM phases.
type session struct {
	conn        net.Conn
	tp          *textproto.Conn
	mxHost      string
	helo        string
	from        string
	strict      bool
	commandWait time.Duration
}

func dialSession(ctx context.Context, mxHost string, port int, opts Options) (*session, error) {
	dialer := net.Dialer{Timeout: ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(mxHost, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("connection failed: %w", err)
	}

	deadline := time.Now().Add(TotalTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	conn.SetDeadline(deadline)

	s := &session{
		conn:   conn,
		tp:     textproto.NewConn(conn),
		mxHost: mxHost,
		helo:   opts.HeloDomain,
		from:   opts.FromAddress,
		strict: isStrictGateway(mxHost),
	}
	if s.strict {
		s.commandWait = time.Second
	}
	return s, nil
}

func (s *session) close() {
	if s.tp != nil {
		_ = s.tp.Close()
	}
}

// pace adds a small fixed delay before commands when talking to a strict
// enterprise gateway, mimicking human typing speed to dodge tarpit heuristics.
func (s *session) pace(ctx context.Context) error {
	if s.commandWait == 0 {
		return nil
	}
	select {
	case <-time.After(s.commandWait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *session) cmd(ctx context.Context, format string, args ...any) (int, string, error) {
	if err := s.pace(ctx); err != nil {
		return 0, "", err
	}
	id, err := s.tp.Cmd(format, args...)
	if err != nil {
		return 0, "", err
	}
	s.tp.StartResponse(id)
	defer s.tp.EndResponse(id)
	code, message, err := s.tp.ReadResponse(-1)
	if err != nil {
		if protoErr, ok := err.(*textproto.Error); ok {
			return protoErr.Code, protoErr.Msg, nil
		}
		return 0, "", err
	}
	return code, message, nil
}

// readBanner reads the server greeting outside the textproto pipeline, so
// the first command sent afterwards still owns response id 0.
func (s *session) readBanner() (int, string, error) {
	code, message, err := s.tp.ReadResponse(-1)
	if err != nil {
		if protoErr, ok := err.(*textproto.Error); ok {
			return protoErr.Code, protoErr.Msg, nil
		}
		return 0, "", err
	}
	return code, message, nil
}

// ehlo performs EHLO, falling back to HELO, and returns the final code,
// the advertised extensions (for STARTTLS detection), and an error.
func (s *session) ehlo(ctx context.Context) (int, string, error) {
	code, message, err := s.cmd(ctx, "EHLO %s", s.helo)
	if err != nil {
		return 0, "", err
	}
	if code != 250 {
		code, message, err = s.cmd(ctx, "HELO %s", s.helo)
		if err != nil {
			return 0, "", err
		}
	}
	return code, message, nil
}

func (s *session) maybeStartTLS(ctx context.Context, ehloMessage string) {
	if !strings.Contains(strings.ToUpper(ehloMessage), "STARTTLS") {
		return
	}
	tlsCode, _, err := s.cmd(ctx, "STARTTLS")
	if err != nil || tlsCode != 220 {
		return
	}

	tlsConn := tls.Client(s.conn, &tls.Config{
		ServerName:         s.mxHost,
		InsecureSkipVerify: true,
	})
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		return
	}
	s.conn = tlsConn
	s.tp = textproto.NewConn(tlsConn)
	_, _, _ = s.ehlo(ctx)
}

func randomAddress(domain string) string {
	const chars = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, 15)
	for i := range b {
		b[i] = chars[rand.Intn(len(chars))]
	}
	return string(b) + "@" + domain
}

// Check performs a single RCPT-only handshake against email at mxHost,
// retrying on greylist responses per GreylistDelay/GreylistRetries.
func (c *Client) Check(ctx context.Context, email, mxHost string) model.SmtpResponse {
	if c.opts.Limiter != nil {
		if err := c.opts.Limiter.Wait(ctx); err != nil {
			return model.SmtpResponse{Code: 0, Message: "rate limit wait cancelled"}
		}
	}

	for attempt := 0; attempt <= GreylistRetries; attempt++ {
		result := c.attempt(ctx, email, mxHost)

		if result.IsGreylisted && attempt < GreylistRetries {
			select {
			case <-time.After(GreylistDelay):
				continue
			case <-ctx.Done():
				return model.SmtpResponse{Code: 0, Message: "context cancelled during greylist wait"}
			}
		}
		return result
	}
	return model.SmtpResponse{Code: 0, Message: "max retries exceeded"}
}

func (c *Client) attempt(ctx context.Context, email, mxHost string) model.SmtpResponse {
	attemptCtx, cancel := context.WithTimeout(ctx, TotalTimeout)
	defer cancel()

	s, err := dialSession(attemptCtx, mxHost, c.opts.Port, c.opts)
	if err != nil {
		return model.SmtpResponse{Code: 0, Message: err.Error()}
	}
	defer s.close()

	code, message, err := s.readBanner()
	if err != nil {
		return model.SmtpResponse{Code: 0, Message: "connection error: " + err.Error()}
	}
	if code != 220 {
		return ParseResponse(code, message)
	}

	code, message, err = s.ehlo(attemptCtx)
	if err != nil {
		return model.SmtpResponse{Code: 0, Message: "EHLO failed: " + err.Error()}
	}
	if code != 250 {
		return ParseResponse(code, message)
	}

	s.maybeStartTLS(attemptCtx, message)

	code, message, err = s.cmd(attemptCtx, "MAIL FROM:<%s>", s.from)
	if err != nil {
		return model.SmtpResponse{Code: 0, Message: "MAIL FROM failed: " + err.Error()}
	}
	if code != 250 {
		return ParseResponse(code, message)
	}

	code, message, err = s.cmd(attemptCtx, "RCPT TO:<%s>", email)
	if err != nil {
		return model.SmtpResponse{Code: 0, Message: "RCPT TO failed: " + err.Error()}
	}

	_, _, _ = s.cmd(attemptCtx, "QUIT")

	return ParseResponse(code, message)
}

// CheckCatchAll probes domain with a random local part at mxHost to
// determine whether the domain accepts all RCPT TOs regardless of mailbox
// existence. Returns nil when the outcome could not be determined.
func (c *Client) CheckCatchAll(ctx context.Context, domain, mxHost string) *bool {
	result := c.Check(ctx, randomAddress(domain), mxHost)

	if result.Code == 250 {
		return model.TriTrue()
	}
	if result.Code >= 500 && result.Code < 600 {
		return model.TriFalse()
	}
	return model.TriNil()
}

// CheckBatch verifies multiple emails against the same mxHost over a single
// connection (one EHLO/MAIL FROM, many RCPT TOs). Falls back to individual
// Check calls if the shared connection cannot be established or negotiated.
func (c *Client) CheckBatch(ctx context.Context, emails []string, mxHost string) []model.SmtpResponse {
	fallback := func() []model.SmtpResponse {
		results := make([]model.SmtpResponse, len(emails))
		for i, email := range emails {
			results[i] = c.Check(ctx, email, mxHost)
		}
		return results
	}

	if c.opts.Limiter != nil {
		if err := c.opts.Limiter.Wait(ctx); err != nil {
			return fallback()
		}
	}

	batchCtx, cancel := context.WithTimeout(ctx, TotalTimeout)
	defer cancel()

	s, err := dialSession(batchCtx, mxHost, c.opts.Port, c.opts)
	if err != nil {
		return fallback()
	}
	defer s.close()

	code, message, err := s.readBanner()
	if err != nil || code != 220 {
		return fallback()
	}

	code, message, err = s.ehlo(batchCtx)
	if err != nil || code != 250 {
		return fallback()
	}

	s.maybeStartTLS(batchCtx, message)

	code, _, err = s.cmd(batchCtx, "MAIL FROM:<%s>", s.from)
	if err != nil || code != 250 {
		return fallback()
	}

	results := make([]model.SmtpResponse, len(emails))
	for i, email := range emails {
		rcptCode, rcptMsg, err := s.cmd(batchCtx, "RCPT TO:<%s>", email)
		if err != nil {
			results[i] = model.SmtpResponse{Code: 0, Message: "RCPT TO failed: " + err.Error()}
			continue
		}
		results[i] = ParseResponse(rcptCode, rcptMsg)
	}

	_, _, _ = s.cmd(batchCtx, "QUIT")

	return results
}
