package worker

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/andresmejia3/faceguard/internal/biometric"
	"github.com/andresmejia3/faceguard/internal/extractor"
	"github.com/andresmejia3/faceguard/internal/types"
	"github.com/andresmejia3/faceguard/internal/utils" // Using the SafeCommand wrapper
)

// EngineWorker is one detection engine subprocess. It handles a single
// request at a time; Pool lends it to one caller at a time.
type EngineWorker struct {
	ID       int
	Cmd      *utils.SafeCommand
	Stdin    io.WriteCloser
	DataPipe io.ReadCloser

	broken bool
}

// NewEngineWorker starts `command -u script` with a side-channel pipe on fd 3.
func NewEngineWorker(id int, command, script string) (*EngineWorker, error) {
	// 1. Initialize the SafeCommand we built
	eng := utils.NewSafeCommand(command, "-u", script)

	// Create a side-channel pipe (FD 3) for clean data transfer
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create pipe: %w", err)
	}
	// Pass the write-end to the child process. It will appear as FD 3.
	eng.Cmd.ExtraFiles = []*os.File{w}

	stdin, err := eng.StdinPipe()
	if err != nil {
		w.Close() // Prevent FD leak
		r.Close() // Close read-end too!
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}

	if err := eng.Start(); err != nil {
		w.Close() // Close write end if start fails
		r.Close() // Close read-end too!
		return nil, fmt.Errorf("worker %d failed to start: %w", id, err)
	}

	// Close the write-end in the parent so only the child holds it
	w.Close()

	return &EngineWorker{
		ID:       id,
		Cmd:      eng,
		Stdin:    stdin,
		DataPipe: r,
	}, nil
}

// Communicate sends one frame and reads one frame back.
func (w *EngineWorker) Communicate(data []byte) ([]byte, error) {
	// Protocol: [Length][Data]
	if err := binary.Write(w.Stdin, binary.BigEndian, uint32(len(data))); err != nil {
		return nil, err
	}
	if _, err := w.Stdin.Write(data); err != nil {
		return nil, err
	}

	// Read Result
	header := make([]byte, 4)
	if _, err := io.ReadFull(w.DataPipe, header); err != nil {
		return nil, err // This is where we catch an engine that crashed on import
	}

	respLen := binary.BigEndian.Uint32(header)
	respBody := make([]byte, respLen)
	_, err := io.ReadFull(w.DataPipe, respBody)
	return respBody, err
}

// Detect runs detection on one image. If ctx ends first the process is
// killed and the worker is marked broken.
func (w *EngineWorker) Detect(ctx context.Context, image []byte) ([]types.DetectedFace, error) {
	type result struct {
		body []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		body, err := w.Communicate(image)
		done <- result{body, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			w.broken = true
			return nil, fmt.Errorf("%w: worker %d: %v", biometric.ErrDetectionFailed, w.ID, r.err)
		}
		return extractor.DecodeFaces(r.body)
	case <-ctx.Done():
		w.broken = true
		w.Kill()
		<-done
		return nil, fmt.Errorf("%w: worker %d: %v", biometric.ErrDetectionFailed, w.ID, ctx.Err())
	}
}

// Broken reports whether the pipe protocol failed and the worker must be replaced.
func (w *EngineWorker) Broken() bool {
	return w.broken
}

// Kill stops the process without waiting for it.
func (w *EngineWorker) Kill() {
	if w.Cmd != nil && w.Cmd.Process != nil {
		w.Cmd.Process.Kill()
	}
	w.Stdin.Close()
	w.DataPipe.Close()
}

// Close shuts the pipes and waits for the process to exit.
func (w *EngineWorker) Close() {
	w.Stdin.Close()
	w.DataPipe.Close()
	if w.Cmd != nil {
		w.Cmd.Wait()
	}
}

// Logs returns what the process wrote to stderr. Only call after Close.
func (w *EngineWorker) Logs() string {
	if w.Cmd == nil {
		return ""
	}
	return w.Cmd.Stderr.String()
}
