// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package statemachine

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/argusai/argus/services/agent/datatypes"
	"github.com/argusai/argus/services/agent/observability"
)

var tracer = otel.Tracer("services/agent/statemachine")

// Engine drives turns through the phase machine. One engine serves all
// sessions; everything request-scoped arrives on the Turn.
type Engine struct {
	sessions *Store
	factory  *Factory
	prompts  PromptSource
	metrics  *observability.AgentMetrics
	logger   *slog.Logger
}

// NewEngine builds an engine over the shared session store and phase
// factory.
func NewEngine(sessions *Store, factory *Factory, prompts PromptSource, metrics *observability.AgentMetrics, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		sessions: sessions,
		factory:  factory,
		prompts:  prompts,
		metrics:  metrics,
		logger:   logger,
	}
}

// Sessions exposes the engine's session store.
func (e *Engine) Sessions() *Store {
	return e.sessions
}

// ProcessTurn runs one chat turn to completion.
//
// The turn resumes at the session's stored phase, or at domain
// selection for a new user. Phases run in a loop: each iteration
// refreshes the session context message in the transcript, hands the
// turn to the active phase, and continues as long as phases conclude.
// A turn therefore traverses as many phases as the model settles in
// one exchange. The stream is completed before returning on success;
// on error the caller decides what the client sees.
//
// Turns for the same user are serialized on the session's turn lock,
// so a client that fires a second request before the first finishes
// waits instead of corrupting phase state.
func (e *Engine) ProcessTurn(ctx context.Context, t *Turn) error {
	ctx, span := tracer.Start(ctx, "Engine.ProcessTurn")
	defer span.End()
	span.SetAttributes(attribute.String("user.key", t.UserKey))

	sess := e.sessions.GetOrCreate(t.UserKey)
	release := sess.Acquire()
	defer release()
	t.Session = sess

	var sc *StateContext
	var transition Transition
	if current := sess.CurrentState(); current != nil {
		sc = NewStateContext(current)
		transition = sess.CurrentTransition()
	} else {
		sc = NewStateContext(e.factory.DomainSelect())
		transition = TransitionDomainSelect
	}

	for {
		t.Transcript.RemoveSystemContaining(SessionContextMarker)
		contextMsg, err := e.prompts.Render(PromptSessionContext, sess.ContextSnapshot())
		if err != nil {
			e.metrics.RecordTurn("error")
			span.RecordError(err)
			span.SetStatus(codes.Error, "session context render failed")
			return err
		}
		t.Transcript.Append(datatypes.RoleSystem, contextMsg)

		sess.SetCurrentStep(sc.Current(), transition)
		e.logger.Debug("handling phase",
			"user", t.UserKey,
			"state", sc.Current().Name(),
			"transition", transition.String())

		next, concluded, err := sc.Handle(ctx, t)
		if err != nil {
			e.metrics.RecordTurn("error")
			span.RecordError(err)
			span.SetStatus(codes.Error, "phase failed")
			return err
		}
		transition = next
		if !concluded {
			break
		}
	}

	e.metrics.RecordTurn("success")
	return t.Reporter.Complete()
}
