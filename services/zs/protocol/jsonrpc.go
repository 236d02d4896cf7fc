// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package protocol holds the LSP wire types and the JSON-RPC base
// protocol framing used by the zsls language server.
package protocol

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

// JSONRPCVersion is the JSON-RPC version used by LSP.
const JSONRPCVersion = "2.0"

// DefaultMaxContentLength bounds one frame body when no limit is given.
const DefaultMaxContentLength = 64 << 20

// JSON-RPC and LSP error codes.
const (
	CodeParseError           = -32700
	CodeInvalidRequest       = -32600
	CodeMethodNotFound       = -32601
	CodeInvalidParams        = -32602
	CodeInternalError        = -32603
	CodeServerNotInitialized = -32002
	CodeRequestCancelled     = -32800
)

var (
	// ErrMalformedHeader indicates a frame without a usable Content-Length.
	ErrMalformedHeader = errors.New("malformed message header")

	// ErrFrameTooLarge indicates a Content-Length above the connection's
	// limit. It wraps ErrMalformedHeader.
	ErrFrameTooLarge = fmt.Errorf("%w: frame too large", ErrMalformedHeader)

	// ErrMalformedBody indicates a frame whose body is not JSON-RPC.
	ErrMalformedBody = errors.New("malformed message body")
)

// =============================================================================
// MESSAGES
// =============================================================================

// Message is any incoming JSON-RPC message.
//
// A request has an ID and a Method. A notification has a Method and no
// ID. A response has an ID and no Method.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ResponseError  `json:"error,omitempty"`
}

// IsNotification reports whether the message expects no response.
func (m *Message) IsNotification() bool {
	return len(m.ID) == 0 || string(m.ID) == "null"
}

// Response is an outgoing JSON-RPC response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`

	// Result is always present on success, even when null.
	Result *json.RawMessage `json:"result,omitempty"`

	Error *ResponseError `json:"error,omitempty"`
}

// ResponseError is a JSON-RPC error object.
type ResponseError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Error implements error.
func (e *ResponseError) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// Notification is an outgoing JSON-RPC notification.
type Notification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// =============================================================================
// CONNECTION
// =============================================================================

// Conn frames JSON-RPC messages with Content-Length headers.
//
// Description:
//
//	Reads come from a single goroutine. Writes may come from any
//	goroutine; they are serialized so frames never interleave.
//
// Thread Safety:
//
//	Read must be called from one goroutine. Write, Reply, ReplyError and
//	Notify are safe for concurrent use.
type Conn struct {
	reader  *bufio.Reader
	writer  io.Writer
	writeMu sync.Mutex
	maxBody int
}

// ConnOption configures a Conn.
type ConnOption func(*Conn)

// WithMaxContentLength rejects frames whose body exceeds n bytes. A value
// of zero or less keeps DefaultMaxContentLength.
func WithMaxContentLength(n int) ConnOption {
	return func(c *Conn) {
		if n > 0 {
			c.maxBody = n
		}
	}
}

// NewConn creates a connection reading r and writing w.
func NewConn(r io.Reader, w io.Writer, opts ...ConnOption) *Conn {
	c := &Conn{reader: bufio.NewReader(r), writer: w, maxBody: DefaultMaxContentLength}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Read returns the next message.
//
// Outputs:
//
//	*Message - The decoded message.
//	error    - io.EOF at end of stream, ErrMalformedHeader for bad
//	           framing (ErrFrameTooLarge above the body limit), or
//	           ErrMalformedBody when the frame is intact but
//	           its body is not a JSON-RPC object. After ErrMalformedBody
//	           the stream is still positioned at the next frame.
func (c *Conn) Read() (*Message, error) {
	body, err := c.readFrame()
	if err != nil {
		return nil, err
	}
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedBody, err)
	}
	return &msg, nil
}

func (c *Conn) readFrame() ([]byte, error) {
	contentLength := -1
	headers := 0
	for {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF && line == "" && headers == 0 {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("read header: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			if headers == 0 {
				// Blank lines between frames.
				continue
			}
			if contentLength < 0 {
				return nil, fmt.Errorf("%w: no Content-Length", ErrMalformedHeader)
			}
			break
		}
		headers++

		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMalformedHeader, line)
		}
		if strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: Content-Length %q", ErrMalformedHeader, value)
			}
			if n > c.maxBody {
				return nil, fmt.Errorf("%w: %d > %d bytes", ErrFrameTooLarge, n, c.maxBody)
			}
			contentLength = n
		}
		// Content-Type and other headers are ignored.
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(c.reader, body); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// Write marshals v and writes it as one frame.
func (c *Conn) Write(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(data))
	if _, err := io.WriteString(c.writer, header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := c.writer.Write(data); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	return nil
}

// Reply sends a successful response. A nil result is sent as null.
func (c *Conn) Reply(id json.RawMessage, result interface{}) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	raw := json.RawMessage(data)
	return c.Write(Response{JSONRPC: JSONRPCVersion, ID: nullID(id), Result: &raw})
}

// ReplyError sends an error response.
func (c *Conn) ReplyError(id json.RawMessage, code int, message string) error {
	return c.Write(Response{
		JSONRPC: JSONRPCVersion,
		ID:      nullID(id),
		Error:   &ResponseError{Code: code, Message: message},
	})
}

// Notify sends a notification.
func (c *Conn) Notify(method string, params interface{}) error {
	return c.Write(Notification{JSONRPC: JSONRPCVersion, Method: method, Params: params})
}

func nullID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}
