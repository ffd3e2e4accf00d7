package places

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Cherry1177/cloudtribe/internal/models"
)

// ErrDetailsUnavailable surfaces a failed detail resolution. Unlike a
// failed prediction fetch, this one is shown to the user.
var ErrDetailsUnavailable = errors.New("無法獲取地點詳細資訊")

// State of the destination field.
type State int

const (
	StateIdle State = iota
	StateTyping
	StatePredictionsShown
	StateResolved
)

// Autocomplete runs the destination search over a single text field:
// keystrokes are debounced, only inputs of the configured minimum length
// trigger a lookup, and only the newest lookup may publish predictions.
// A lookup dispatched before a newer keystroke is not cancelled, so the
// sequence check is what keeps stale predictions from flashing over
// fresh ones.
type Autocomplete struct {
	api      API
	debounce time.Duration
	minInput int
	logger   *zap.Logger

	// onPredictions receives every prediction-list change, including the
	// clears. Called without the lock held.
	onPredictions func([]models.Prediction)

	mu          sync.Mutex
	timer       *time.Timer
	seq         uint64
	state       State
	text        string
	manualInput bool
	destination *models.FinalDestination
}

func NewAutocomplete(api API, debounce time.Duration, minInput int, onPredictions func([]models.Prediction), logger *zap.Logger) *Autocomplete {
	if onPredictions == nil {
		onPredictions = func([]models.Prediction) {}
	}
	return &Autocomplete{
		api:           api,
		debounce:      debounce,
		minInput:      minInput,
		logger:        logger,
		onPredictions: onPredictions,
		state:         StateIdle,
	}
}

// Input records a manual edit of the field. It resets a pending debounce
// timer (last writer wins) and schedules a lookup once the input settles.
func (a *Autocomplete) Input(text string) {
	a.mu.Lock()
	a.text = text
	a.manualInput = true
	a.state = StateTyping
	a.seq++
	seq := a.seq

	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}

	if len([]rune(text)) < a.minInput {
		a.mu.Unlock()
		a.onPredictions(nil)
		return
	}

	a.timer = time.AfterFunc(a.debounce, func() {
		a.lookup(seq, text)
	})
	a.mu.Unlock()
}

func (a *Autocomplete) lookup(seq uint64, input string) {
	a.mu.Lock()
	if seq != a.seq || !a.manualInput {
		a.mu.Unlock()
		return
	}
	a.mu.Unlock()

	predictions, err := a.api.Predictions(context.Background(), input)
	if err != nil {
		// Treated as "no results", not an error the user sees.
		a.logger.Debug("prediction fetch failed", zap.Error(err))
		predictions = nil
	}

	a.mu.Lock()
	if seq != a.seq {
		// A newer keystroke superseded this lookup while it was in flight.
		a.mu.Unlock()
		return
	}
	if len(predictions) > 0 {
		a.state = StatePredictionsShown
	}
	a.mu.Unlock()

	a.onPredictions(predictions)
}

// Select resolves a prediction to a final destination. The field text is
// replaced programmatically with the composed label, which must not
// re-trigger a search.
func (a *Autocomplete) Select(ctx context.Context, placeID string) (*models.FinalDestination, error) {
	details, err := a.api.Details(ctx, placeID)
	if err != nil {
		a.logger.Warn("place details fetch failed", zap.String("place_id", placeID), zap.Error(err))
		return nil, ErrDetailsUnavailable
	}

	label := details.Name + " " + details.FormattedAddress
	destination := &models.FinalDestination{
		Name:     label,
		Location: models.LatLng{Lat: details.Lat, Lng: details.Lng},
	}

	a.mu.Lock()
	a.seq++ // invalidates any in-flight lookup
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.text = label
	a.manualInput = false
	a.state = StateResolved
	a.destination = destination
	a.mu.Unlock()

	a.onPredictions(nil)
	return destination, nil
}

// Destination returns the resolved navigation target, if any.
func (a *Autocomplete) Destination() *models.FinalDestination {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.destination == nil {
		return nil
	}
	d := *a.destination
	return &d
}

// Text returns the current field content.
func (a *Autocomplete) Text() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.text
}

// State returns where the field's state machine currently is.
func (a *Autocomplete) CurrentState() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Stop cancels a pending debounce timer.
func (a *Autocomplete) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}
