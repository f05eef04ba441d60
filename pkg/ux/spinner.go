// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner is an animated waiting indicator for the interactive chat
// loop. It draws on a single line and clears itself when stopped, so
// streamed reply text starts on a clean line.
type Spinner struct {
	message string
	out     io.Writer

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewSpinner creates a spinner that writes to stdout.
func NewSpinner(message string) *Spinner {
	return &Spinner{message: message, out: os.Stdout}
}

// WithWriter redirects the spinner output, used in tests.
func (s *Spinner) WithWriter(w io.Writer) *Spinner {
	s.out = w
	return s
}

// Start begins the animation. Starting a running spinner is a no-op.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go func(stop, done chan struct{}) {
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()
		frame := 0
		for {
			select {
			case <-stop:
				fmt.Fprint(s.out, "\r\033[K")
				close(done)
				return
			case <-ticker.C:
				fmt.Fprintf(s.out, "\r%s %s",
					Styles.Highlight.Render(spinnerFrames[frame]), s.message)
				frame = (frame + 1) % len(spinnerFrames)
			}
		}
	}(s.stop, s.done)
}

// Stop halts the animation and clears the line. It blocks until the
// spinner goroutine has finished writing.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stop, done := s.stop, s.done
	s.mu.Unlock()

	close(stop)
	<-done
}
