// Package client is a Go client for the collaboration socket. Edits and
// outputs are coalesced per cell before they go on the wire.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"actually-colab-be/pkg/compression"
	"actually-colab-be/pkg/protocol"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var ErrClosed = errors.New("client closed")

// Conn is the part of *websocket.Conn the client needs.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Listener receives server events. Nil callbacks are skipped. The *uuid.UUID
// argument is the user who triggered the event, nil for server-originated ones.
type Listener struct {
	OnNotebookOpened   func(user protocol.User, by *uuid.UUID)
	OnNotebookContents func(contents protocol.NotebookContents, by *uuid.UUID)
	OnNotebookClosed   func(ref protocol.NotebookRef, by *uuid.UUID)
	OnNotebookShared   func(shared protocol.NotebookShared, by *uuid.UUID)
	OnNotebookUnshared func(unshared protocol.NotebookUnshared, by *uuid.UUID)
	OnCellCreated      func(cell protocol.Cell, by *uuid.UUID)
	OnCellLocked       func(cell protocol.Cell, by *uuid.UUID)
	OnCellUnlocked     func(cell protocol.Cell, by *uuid.UUID)
	OnCellEdited       func(cell protocol.Cell, by *uuid.UUID)
	OnCellDeleted      func(ref protocol.CellRef, by *uuid.UUID)
	// OnOutputUpdated gets the decompressed output, off the read loop.
	OnOutputUpdated func(output protocol.Output, by *uuid.UUID)
	OnChatMessage   func(msg protocol.ChatMessage, by *uuid.UUID)
	OnError         func(report protocol.ErrorReport)

	// OnProtocolError reports frames that could not be decoded and coalesced
	// sends that failed.
	OnProtocolError func(err error)
	// OnClose runs once when the read loop stops. err is nil after Close.
	OnClose func(err error)
}

type Options struct {
	EditWait      time.Duration
	EditMaxWait   time.Duration
	OutputWait    time.Duration
	OutputMaxWait time.Duration
}

func DefaultOptions() Options {
	return Options{
		EditWait:      time.Second,
		EditMaxWait:   5 * time.Second,
		OutputWait:    3 * time.Second,
		OutputMaxWait: 5 * time.Second,
	}
}

type cellKey struct {
	nb   uuid.UUID
	cell uuid.UUID
}

type outputJob struct {
	key    cellKey
	output string
}

type Client struct {
	conn     Conn
	listener Listener

	edits   *Coalescer[cellKey, protocol.CellData]
	outputs *Coalescer[cellKey, string]

	writeMu    sync.Mutex
	connClosed bool

	mu      sync.Mutex
	closed  bool
	jobs    chan outputJob
	workers sync.WaitGroup

	done chan struct{}
}

// Dial connects to a socket URL such as ws://host/api/ws, authenticating with token.
func Dial(ctx context.Context, url, token string, listener Listener, opts Options) (*Client, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %s: %w", url, resp.Status, err)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return New(ws, listener, opts), nil
}

// New starts a client on an established connection.
func New(conn Conn, listener Listener, opts Options) *Client {
	c := &Client{
		conn:     conn,
		listener: listener,
		jobs:     make(chan outputJob, 64),
		done:     make(chan struct{}),
	}
	c.edits = NewCoalescer(opts.EditWait, opts.EditMaxWait, func(k cellKey, data protocol.CellData) {
		d := data
		c.sendAsync(protocol.ActionEditCell, protocol.EditCell{NbId: k.nb, CellId: k.cell, CellData: &d})
	})
	c.outputs = NewCoalescer(opts.OutputWait, opts.OutputMaxWait, func(k cellKey, packed string) {
		c.sendAsync(protocol.ActionUpdateOutput, protocol.UpdateOutput{NbId: k.nb, CellId: k.cell, Output: packed})
	})

	c.workers.Add(1)
	go c.compressLoop()
	go c.readLoop()
	return c
}

// Done is closed when the read loop stops.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) OpenNotebook(nb uuid.UUID) error {
	return c.send(protocol.ActionOpenNotebook, protocol.OpenNotebook{NbId: nb})
}

func (c *Client) CloseNotebook(nb uuid.UUID) error {
	return c.send(protocol.ActionCloseNotebook, protocol.CloseNotebook{NbId: nb})
}

// CreateCell appends a cell, or inserts it at position when given.
func (c *Client) CreateCell(nb uuid.UUID, language string, position *int) error {
	return c.send(protocol.ActionCreateCell, protocol.CreateCell{NbId: nb, Language: language, Position: position})
}

func (c *Client) LockCell(nb, cell uuid.UUID) error {
	return c.send(protocol.ActionLockCell, protocol.LockCell{NbId: nb, CellId: cell})
}

// EditCell queues data as the latest contents of a locked cell.
func (c *Client) EditCell(nb, cell uuid.UUID, data protocol.CellData) error {
	if c.isClosed() {
		return ErrClosed
	}
	c.edits.Submit(cellKey{nb: nb, cell: cell}, data)
	return nil
}

// UnlockCell sends any pending edit first, then releases the lock carrying
// that edit as the final contents.
func (c *Client) UnlockCell(nb, cell uuid.UUID) error {
	key := cellKey{nb: nb, cell: cell}
	req := protocol.UnlockCell{NbId: nb, CellId: cell}
	if data, ok := c.edits.Pending(key); ok {
		req.CellData = &data
	}
	c.edits.Flush(key)
	return c.send(protocol.ActionUnlockCell, req)
}

// DeleteCell drops any pending edit and deletes the cell. The lock must be held.
func (c *Client) DeleteCell(nb, cell uuid.UUID) error {
	c.edits.Cancel(cellKey{nb: nb, cell: cell})
	return c.send(protocol.ActionEditCell, protocol.EditCell{NbId: nb, CellId: cell})
}

// UpdateOutput compresses output off the caller's goroutine and queues it.
func (c *Client) UpdateOutput(nb, cell uuid.UUID, output string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.jobs <- outputJob{key: cellKey{nb: nb, cell: cell}, output: output}
	return nil
}

// ShareNotebook grants level to emails. A nil level revokes their access.
func (c *Client) ShareNotebook(nb uuid.UUID, emails []string, level *string) error {
	return c.send(protocol.ActionShareNotebook, protocol.ShareNotebook{NbId: nb, Emails: emails, AccessLevel: level})
}

func (c *Client) SendChatMessage(nb uuid.UUID, message string) error {
	return c.send(protocol.ActionSendChatMessage, protocol.SendChatMessage{NbId: nb, Message: message})
}

// Close sends everything still pending and closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.jobs)
	c.mu.Unlock()

	c.workers.Wait()
	c.outputs.FlushAll()
	c.edits.FlushAll()
	c.outputs.Stop()
	c.edits.Stop()

	c.writeMu.Lock()
	c.connClosed = true
	err := c.conn.Close()
	c.writeMu.Unlock()
	return err
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Client) compressLoop() {
	defer c.workers.Done()
	for job := range c.jobs {
		packed, err := compression.Compress(job.output)
		if err != nil {
			c.protocolError(err)
			continue
		}
		c.outputs.Submit(job.key, packed)
	}
}

func (c *Client) send(action protocol.Action, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(protocol.Envelope{Action: action, Data: payload})
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.connClosed {
		return ErrClosed
	}
	return c.conn.WriteMessage(websocket.TextMessage, raw)
}

// sendAsync is used by coalesced sends, which have no caller to return to.
func (c *Client) sendAsync(action protocol.Action, data interface{}) {
	if err := c.send(action, data); err != nil {
		c.protocolError(fmt.Errorf("%s: %w", action, err))
	}
}

func (c *Client) protocolError(err error) {
	if c.listener.OnProtocolError != nil {
		c.listener.OnProtocolError(err)
	}
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if c.isClosed() {
				err = nil
			}
			if c.listener.OnClose != nil {
				c.listener.OnClose(err)
			}
			return
		}

		env, err := protocol.DecodeEvent(raw)
		if err != nil {
			c.protocolError(err)
			continue
		}
		c.dispatch(env)
	}
}

func (c *Client) dispatch(env *protocol.Envelope) {
	l := c.listener
	switch env.Action {
	case protocol.ActionNotebookOpened:
		emit(c, env, l.OnNotebookOpened)
	case protocol.ActionNotebookContents:
		emit(c, env, l.OnNotebookContents)
	case protocol.ActionNotebookClosed:
		emit(c, env, l.OnNotebookClosed)
	case protocol.ActionNotebookShared:
		emit(c, env, l.OnNotebookShared)
	case protocol.ActionNotebookUnshared:
		emit(c, env, l.OnNotebookUnshared)
	case protocol.ActionCellCreated:
		emit(c, env, l.OnCellCreated)
	case protocol.ActionCellLocked:
		emit(c, env, l.OnCellLocked)
	case protocol.ActionCellUnlocked:
		emit(c, env, l.OnCellUnlocked)
	case protocol.ActionCellEdited:
		emit(c, env, l.OnCellEdited)
	case protocol.ActionCellDeleted:
		emit(c, env, l.OnCellDeleted)
	case protocol.ActionChatMessageSent:
		emit(c, env, l.OnChatMessage)
	case protocol.ActionOutputUpdated:
		if l.OnOutputUpdated == nil {
			return
		}
		out, err := protocol.Unmarshal[protocol.Output](env)
		if err != nil {
			c.protocolError(err)
			return
		}
		go func() {
			text, err := compression.Decompress(out.Output)
			if err != nil {
				c.protocolError(err)
				return
			}
			out.Output = text
			l.OnOutputUpdated(out, env.TriggeredBy)
		}()
	case protocol.ActionError:
		if l.OnError == nil {
			return
		}
		emit(c, env, func(report protocol.ErrorReport, _ *uuid.UUID) { l.OnError(report) })
	default:
		c.protocolError(fmt.Errorf("%w: unknown action %q", protocol.ErrMalformed, env.Action))
	}
}

func emit[T any](c *Client, env *protocol.Envelope, fn func(T, *uuid.UUID)) {
	if fn == nil {
		return
	}
	v, err := protocol.Unmarshal[T](env)
	if err != nil {
		c.protocolError(err)
		return
	}
	fn(v, env.TriggeredBy)
}
