package fsm_test

import (
	"context"
	"errors"
	"testing"

	adapter "github.com/neomorfeo/dealflow/internal/adapter/fsm"
	"github.com/neomorfeo/dealflow/internal/domain"
)

func TestValidator_AllTransitions(t *testing.T) {
	v := adapter.New()
	ctx := context.Background()

	for _, tr := range domain.Transitions {
		dst, err := v.Apply(ctx, tr.Src, tr.Event)
		if err != nil {
			t.Errorf("Apply(%q, %q) unexpected error: %v", tr.Src, tr.Event, err)
			continue
		}
		if dst != tr.Dst {
			t.Errorf("Apply(%q, %q) = %q, want %q", tr.Src, tr.Event, dst, tr.Dst)
		}
	}
}

func TestValidator_MoveKeepsOpen(t *testing.T) {
	v := adapter.New()

	got, err := v.Apply(context.Background(), domain.StatusOpen, domain.EventMove)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != domain.StatusOpen {
		t.Errorf("got %q, want %q", got, domain.StatusOpen)
	}
}

func TestValidator_TerminalStatesRejectEverything(t *testing.T) {
	v := adapter.New()
	ctx := context.Background()

	for _, current := range []domain.Status{domain.StatusWon, domain.StatusLost} {
		for _, event := range []domain.Event{domain.EventMove, domain.EventWin, domain.EventLose} {
			_, err := v.Apply(ctx, current, event)
			var trErr *domain.TransitionError
			if !errors.As(err, &trErr) {
				t.Errorf("Apply(%q, %q): expected TransitionError, got %v", current, event, err)
				continue
			}
			if trErr.Event != event || trErr.Current != current {
				t.Errorf("TransitionError = %+v, want event %q from %q", trErr, event, current)
			}
		}
	}
}

func TestValidator_UnknownEvent(t *testing.T) {
	v := adapter.New()

	_, err := v.Apply(context.Background(), domain.StatusOpen, domain.Event("reopen"))
	var trErr *domain.TransitionError
	if !errors.As(err, &trErr) {
		t.Fatalf("expected TransitionError, got %v", err)
	}
}
