package promotions

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"pressing_chatbot_backend/platform/logger"
)

func TestBestDiscountPicksHighestPercent(t *testing.T) {
	promos := []Promotion{
		{ID: "p1", Title: "Chemise -10", Discount: 10},
		{ID: "p2", Title: "Chemise -25", Discount: 25},
		{ID: "p3", Title: "Costume -50", Discount: 50},
	}

	assert.Equal(t, 25.0, BestDiscount(promos, "Chemise"))
	assert.Equal(t, 50.0, BestDiscount(promos, "Costume"))
	assert.Equal(t, 0.0, BestDiscount(promos, "Drap"))
}

func TestBestDiscountTieBreaksByID(t *testing.T) {
	promos := []Promotion{
		{ID: "zz", Title: "chemise promo", Discount: 20},
		{ID: "aa", Title: "chemise soldes", Discount: 20},
	}

	// Same percent either way; the selection must be deterministic.
	assert.Equal(t, 20.0, BestDiscount(promos, "chemise"))
	assert.Equal(t, 20.0, BestDiscount([]Promotion{promos[1], promos[0]}, "chemise"))
}

func TestBestDiscountIgnoresOutOfRange(t *testing.T) {
	promos := []Promotion{
		{ID: "p1", Title: "chemise", Discount: 0},
		{ID: "p2", Title: "chemise", Discount: -5},
		{ID: "p3", Title: "chemise", Discount: 150},
	}

	assert.Equal(t, 0.0, BestDiscount(promos, "chemise"))
}

func TestBestDiscountUntitledPromoIsStorewide(t *testing.T) {
	promos := []Promotion{{ID: "p1", Discount: 5}}

	assert.Equal(t, 5.0, BestDiscount(promos, "Serviette"))
}

type stubPuller struct {
	resp json.RawMessage
	err  error
}

func (s stubPuller) Request(context.Context, string, any) (json.RawMessage, error) {
	return s.resp, s.err
}

func TestHighestDiscountDegradesToZero(t *testing.T) {
	log := logger.New("development")

	s := NewService(stubPuller{err: errors.New("scenario down")}, log)
	assert.Equal(t, 0.0, s.HighestDiscount(context.Background(), "Chemise"))

	s = NewService(stubPuller{resp: json.RawMessage(`not json`)}, log)
	assert.Equal(t, 0.0, s.HighestDiscount(context.Background(), "Chemise"))
}

func TestHighestDiscountParsesRelayResponse(t *testing.T) {
	resp := json.RawMessage(`[{"id":"p1","title":"Chemise de mars","discount":15}]`)
	s := NewService(stubPuller{resp: resp}, logger.New("development"))

	assert.Equal(t, 15.0, s.HighestDiscount(context.Background(), "chemise"))
}
