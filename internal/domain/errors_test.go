package domain_test

import (
	"testing"

	"github.com/neomorfeo/dealflow/internal/domain"
)

func TestErrorMessages(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&domain.ValidationError{Field: "title", Reason: "must not be blank"}, `invalid title: must not be blank`},
		{&domain.NotFoundError{Entity: "deal", ID: "d-1"}, `deal "d-1" not found`},
		{&domain.InvalidStateError{DealID: "d-1", Status: domain.StatusWon, Op: "close"}, `cannot close deal "d-1" in status "won"`},
		{&domain.RequiresClosureDataError{StageID: "won", Closure: "closeWon"}, `stage "won" is terminal; use closeWon to close the deal`},
		{&domain.ConflictError{DealID: "d-1", Expected: "s-1", Actual: "s-2"}, `deal "d-1": expected "s-1", found "s-2"`},
		{&domain.ConflictError{DealID: "d-1"}, `deal "d-1" was modified concurrently`},
		{&domain.ConfigurationError{Reason: "no open stage"}, `pipeline configuration: no open stage`},
		{&domain.TransitionError{Event: domain.EventWin, Current: domain.StatusLost}, `event "win" is not valid from state "lost"`},
	}

	for _, tc := range cases {
		if got := tc.err.Error(); got != tc.want {
			t.Errorf("Error() = %q, want %q", got, tc.want)
		}
	}
}
