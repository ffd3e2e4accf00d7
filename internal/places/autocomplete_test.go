package places

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/Cherry1177/cloudtribe/internal/models"
)

type fakeAPI struct {
	predictionsFunc func(ctx context.Context, input string) ([]models.Prediction, error)
	detailsFunc     func(ctx context.Context, placeID string) (*models.PlaceDetails, error)
}

func (f *fakeAPI) Predictions(ctx context.Context, input string) ([]models.Prediction, error) {
	return f.predictionsFunc(ctx, input)
}

func (f *fakeAPI) Details(ctx context.Context, placeID string) (*models.PlaceDetails, error) {
	return f.detailsFunc(ctx, placeID)
}

func prediction(id string) models.Prediction {
	return models.Prediction{PlaceID: id, MainText: id}
}

func collect() (func([]models.Prediction), chan []models.Prediction) {
	ch := make(chan []models.Prediction, 16)
	return func(p []models.Prediction) { ch <- p }, ch
}

func TestInput_BelowMinLengthClearsWithoutLookup(t *testing.T) {
	var calls atomic.Int32
	api := &fakeAPI{
		predictionsFunc: func(context.Context, string) ([]models.Prediction, error) {
			calls.Add(1)
			return nil, nil
		},
	}
	onPredictions, batches := collect()
	a := NewAutocomplete(api, time.Millisecond, 2, onPredictions, zap.NewNop())

	a.Input("七")

	select {
	case batch := <-batches:
		assert.Empty(t, batch)
	case <-time.After(time.Second):
		t.Fatal("expected an immediate clear")
	}

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, StateTyping, a.CurrentState())
}

func TestInput_DebouncedLookupPublishesPredictions(t *testing.T) {
	api := &fakeAPI{
		predictionsFunc: func(_ context.Context, input string) ([]models.Prediction, error) {
			assert.Equal(t, "7-11", input)
			return []models.Prediction{prediction("p1"), prediction("p2")}, nil
		},
	}
	onPredictions, batches := collect()
	a := NewAutocomplete(api, 5*time.Millisecond, 2, onPredictions, zap.NewNop())

	a.Input("7-11")

	select {
	case batch := <-batches:
		assert.Len(t, batch, 2)
	case <-time.After(time.Second):
		t.Fatal("expected predictions")
	}
	assert.Equal(t, StatePredictionsShown, a.CurrentState())
}

func TestInput_LastKeystrokeWinsTheDebounce(t *testing.T) {
	var lookups atomic.Int32
	api := &fakeAPI{
		predictionsFunc: func(_ context.Context, input string) ([]models.Prediction, error) {
			lookups.Add(1)
			assert.Equal(t, "全聯福利中心", input)
			return []models.Prediction{prediction("p1")}, nil
		},
	}
	onPredictions, batches := collect()
	a := NewAutocomplete(api, 30*time.Millisecond, 2, onPredictions, zap.NewNop())

	a.Input("全聯")
	a.Input("全聯福利")
	a.Input("全聯福利中心")

	select {
	case batch := <-batches:
		assert.Len(t, batch, 1)
	case <-time.After(time.Second):
		t.Fatal("expected predictions")
	}

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), lookups.Load())
}

func TestInput_StaleInFlightReplyIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	api := &fakeAPI{
		predictionsFunc: func(_ context.Context, input string) ([]models.Prediction, error) {
			if input == "老街" {
				<-release
				return []models.Prediction{prediction("stale")}, nil
			}
			return []models.Prediction{prediction("fresh")}, nil
		},
	}
	onPredictions, batches := collect()
	a := NewAutocomplete(api, time.Millisecond, 2, onPredictions, zap.NewNop())

	a.Input("老街")
	time.Sleep(10 * time.Millisecond) // the slow lookup is now in flight
	a.Input("夜市")

	select {
	case batch := <-batches:
		assert.Equal(t, "fresh", batch[0].PlaceID)
	case <-time.After(time.Second):
		t.Fatal("expected fresh predictions")
	}

	close(release)
	select {
	case batch := <-batches:
		t.Fatalf("stale reply must be dropped, got %v", batch)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestInput_PredictionFailureDegradesToNoResults(t *testing.T) {
	api := &fakeAPI{
		predictionsFunc: func(context.Context, string) ([]models.Prediction, error) {
			return nil, errors.New("quota exceeded")
		},
	}
	onPredictions, batches := collect()
	a := NewAutocomplete(api, time.Millisecond, 2, onPredictions, zap.NewNop())

	a.Input("7-11")

	select {
	case batch := <-batches:
		assert.Empty(t, batch)
	case <-time.After(time.Second):
		t.Fatal("expected an empty batch")
	}
}

func TestSelect_ResolvesDestinationAndSuppressesSearch(t *testing.T) {
	var lookups atomic.Int32
	api := &fakeAPI{
		predictionsFunc: func(context.Context, string) ([]models.Prediction, error) {
			lookups.Add(1)
			return []models.Prediction{prediction("p1")}, nil
		},
		detailsFunc: func(_ context.Context, placeID string) (*models.PlaceDetails, error) {
			assert.Equal(t, "p1", placeID)
			return &models.PlaceDetails{
				Name:             "便利商店",
				FormattedAddress: "宜蘭縣大同鄉",
				Lat:              24.5,
				Lng:              121.3,
			}, nil
		},
	}
	a := NewAutocomplete(api, 30*time.Millisecond, 2, nil, zap.NewNop())

	// A keystroke is pending when the user clicks a prediction.
	a.Input("便利")
	destination, err := a.Select(context.Background(), "p1")

	assert.NoError(t, err)
	assert.Equal(t, "便利商店 宜蘭縣大同鄉", destination.Name)
	assert.Equal(t, 24.5, destination.Location.Lat)
	assert.Equal(t, "便利商店 宜蘭縣大同鄉", a.Text())
	assert.Equal(t, StateResolved, a.CurrentState())
	assert.Equal(t, destination, a.Destination())

	// The programmatic text update must not fire the pending lookup.
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), lookups.Load())
}

func TestSelect_DetailFailureSurfacesLocalizedError(t *testing.T) {
	api := &fakeAPI{
		detailsFunc: func(context.Context, string) (*models.PlaceDetails, error) {
			return nil, errors.New("boom")
		},
	}
	a := NewAutocomplete(api, time.Millisecond, 2, nil, zap.NewNop())

	_, err := a.Select(context.Background(), "p1")

	assert.ErrorIs(t, err, ErrDetailsUnavailable)
	assert.Nil(t, a.Destination())
}

func TestInput_AfterResolveReturnsToTyping(t *testing.T) {
	api := &fakeAPI{
		predictionsFunc: func(context.Context, string) ([]models.Prediction, error) {
			return nil, nil
		},
		detailsFunc: func(context.Context, string) (*models.PlaceDetails, error) {
			return &models.PlaceDetails{Name: "商店", FormattedAddress: "某地"}, nil
		},
	}
	a := NewAutocomplete(api, time.Millisecond, 2, nil, zap.NewNop())

	_, err := a.Select(context.Background(), "p1")
	assert.NoError(t, err)
	assert.Equal(t, StateResolved, a.CurrentState())

	a.Input("商店 某")
	assert.Equal(t, StateTyping, a.CurrentState())
}
