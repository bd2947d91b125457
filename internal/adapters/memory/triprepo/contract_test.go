package triprepo

import (
	"testing"

	"github.com/peraluna/trip-planner-api/internal/adapters/contracttest"
	triprepoport "github.com/peraluna/trip-planner-api/internal/ports/out/triprepo"
)

func TestContract_TripRepo(t *testing.T) {
	contracttest.RunTripRepo(t, func(t *testing.T) (triprepoport.Repository, func()) {
		t.Helper()
		return NewRepo(), nil
	})
}
