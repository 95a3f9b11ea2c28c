// Package uploader drives a single video upload from the client side:
// reserving a slot, streaming the bytes and registering the result.
package uploader

import (
	"bitwise74/reel-api/pkg/apperr"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrBusy           = apperr.Conflict("An upload is already in progress")
	ErrNothingToRetry = apperr.Validation("Nothing to retry")
	ErrCancelled      = apperr.Validation("Upload was cancelled")
)

type Options struct {
	Gateway   GatewayClient
	Transport Transport
	// Token returns the current credential. An empty string means the
	// user isn't signed in.
	Token      func() string
	CORSOrigin string
	// OnChange is called after every state change, never while the
	// manager's lock is held.
	OnChange func(UploadState)
}

type attempt struct {
	file File
	meta Metadata
}

// Manager runs at most one upload at a time. It's safe for concurrent
// use.
type Manager struct {
	opts Options

	mu     sync.Mutex
	state  UploadState
	gen    uint64
	cancel context.CancelFunc
	last   *attempt
}

func New(opts Options) *Manager {
	if opts.Transport == nil {
		opts.Transport = &HTTPTransport{}
	}

	return &Manager{
		opts:  opts,
		state: UploadState{Status: StatusIdle},
	}
}

func (m *Manager) State() UploadState {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

// UploadVideo blocks until the upload is registered, fails or gets
// cancelled. Missing credentials and unusable files are reported before
// any network request is made.
func (m *Manager) UploadVideo(ctx context.Context, file File, meta Metadata) (string, error) {
	m.mu.Lock()
	if m.state.Status.Busy() {
		m.mu.Unlock()
		return "", ErrBusy
	}

	token := ""
	if m.opts.Token != nil {
		token = m.opts.Token()
	}

	if err := precheck(token, file); err != nil {
		m.gen++
		m.last = nil
		m.state = UploadState{Status: StatusError, Err: err}
		snap := m.state
		m.mu.Unlock()

		m.emit(snap)
		return "", err
	}

	m.gen++
	gen := m.gen

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.last = &attempt{file: file, meta: meta}
	m.state = UploadState{Status: StatusCreatingUpload}
	snap := m.state
	m.mu.Unlock()

	m.emit(snap)
	defer cancel()

	return m.run(runCtx, gen, token, file, meta)
}

// RetryUpload replays the last attempt with a fresh upload slot. Only an
// attempt that ended in the error state can be retried.
func (m *Manager) RetryUpload(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.state.Status.Busy() {
		m.mu.Unlock()
		return "", ErrBusy
	}

	last := m.last
	failed := m.state.Status == StatusError
	m.mu.Unlock()

	if last == nil || !failed {
		return "", ErrNothingToRetry
	}

	return m.UploadVideo(ctx, last.file, last.meta)
}

// CancelUpload aborts the transfer if one is running and resets the
// manager to idle. Results of the cancelled attempt that arrive later are
// dropped.
func (m *Manager) CancelUpload() {
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}

	m.gen++
	m.last = nil
	m.state = UploadState{Status: StatusIdle}
	snap := m.state
	m.mu.Unlock()

	m.emit(snap)
}

func precheck(token string, file File) error {
	if token == "" {
		return apperr.Auth("You must be signed in to upload")
	}

	if file == nil {
		return apperr.Validation("No file selected")
	}

	if file.Size() <= 0 {
		return apperr.Validation("File is empty")
	}

	r, err := file.Open()
	if err != nil {
		return apperr.Validation("File can't be read")
	}
	r.Close()

	return nil
}

func (m *Manager) run(ctx context.Context, gen uint64, token string, file File, meta Metadata) (string, error) {
	slot, err := m.opts.Gateway.CreateUpload(ctx, token, CreateUploadRequest{
		CORSOrigin: m.opts.CORSOrigin,
		Metadata:   meta,
	})
	if err != nil {
		return "", m.fail(ctx, gen, err)
	}

	m.update(gen, func(s *UploadState) {
		s.Status = StatusUploading
		s.Progress = progressTransferStart
		s.SessionID = slot.SessionID
	})

	contentType, err := detectType(file)
	if err != nil {
		return "", m.fail(ctx, gen, apperr.Validation("File can't be read"))
	}

	body, err := file.Open()
	if err != nil {
		return "", m.fail(ctx, gen, apperr.Validation("File can't be read"))
	}
	defer body.Close()

	span := float64(progressTransferEnd - progressTransferStart)
	err = m.opts.Transport.Put(ctx, slot.UploadURL, body, file.Size(), contentType, func(p float64) {
		m.update(gen, func(s *UploadState) {
			s.Progress = progressTransferStart + int(p*span)
		})
	})
	if err != nil {
		return "", m.fail(ctx, gen, err)
	}

	m.update(gen, func(s *UploadState) {
		s.Status = StatusProcessing
		s.Progress = progressRegistering
	})

	videoID, err := m.opts.Gateway.Register(ctx, token, RegisterRequest{
		SessionID: slot.SessionID,
		AssetID:   slot.AssetID,
		Metadata:  meta,
	})
	if err != nil {
		return "", m.fail(ctx, gen, err)
	}

	// fn runs under the lock, the finished attempt isn't retained
	m.update(gen, func(s *UploadState) {
		s.Status = StatusReady
		s.Progress = progressDone
		s.VideoID = videoID
		m.last = nil
	})

	return videoID, nil
}

// update applies fn if gen is still the current attempt. Progress never
// goes backwards within an attempt.
func (m *Manager) update(gen uint64, fn func(*UploadState)) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}

	prev := m.state
	fn(&m.state)
	if m.state.Progress < prev.Progress {
		m.state.Progress = prev.Progress
	}

	changed := m.state != prev
	snap := m.state
	m.mu.Unlock()

	if changed {
		m.emit(snap)
	}
}

func (m *Manager) fail(ctx context.Context, gen uint64, err error) error {
	m.mu.Lock()
	stale := gen != m.gen
	m.mu.Unlock()

	if stale {
		return ErrCancelled
	}

	if errors.Is(ctx.Err(), context.Canceled) {
		m.update(gen, func(s *UploadState) {
			*s = UploadState{Status: StatusIdle}
			m.last = nil
		})
		return ErrCancelled
	}

	var ae *apperr.Error
	if !errors.As(err, &ae) {
		err = apperr.TransientIO("Upload failed", err)
	}

	m.update(gen, func(s *UploadState) {
		s.Status = StatusError
		s.Err = err
	})

	return err
}

func (m *Manager) emit(s UploadState) {
	if m.opts.OnChange != nil {
		m.opts.OnChange(s)
	}
}

func detectType(file File) (string, error) {
	r, err := file.Open()
	if err != nil {
		return "", err
	}
	defer r.Close()

	mt, err := mimetype.DetectReader(io.LimitReader(r, 3072))
	if err != nil {
		return "", err
	}

	return mt.String(), nil
}
